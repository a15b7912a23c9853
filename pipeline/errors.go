package pipeline

import "errors"

var (
	// ErrReaderRequired is returned when a source reader is not provided.
	ErrReaderRequired = errors.New("source reader required")

	// ErrWriterRequired is returned when an enrichment writer is not provided.
	ErrWriterRequired = errors.New("enrichment writer required")

	// ErrChainRequired is returned when a module chain is not provided.
	ErrChainRequired = errors.New("module chain required")

	// ErrRegistryRequired is returned when a provider registry is not provided.
	ErrRegistryRequired = errors.New("provider registry required")

	// ErrSetupFailed is returned when the output table cannot be prepared.
	ErrSetupFailed = errors.New("output setup failed")
)
