package enrichment

import "errors"

var (
	// ErrDuplicateModule is returned by NewChain when two modules share a name.
	ErrDuplicateModule = errors.New("duplicate module")

	// ErrModulePanic wraps a panic recovered from a module.
	ErrModulePanic = errors.New("module panicked")

	// ErrUnexpectedResult is returned when a module yields a result for another module, or none.
	ErrUnexpectedResult = errors.New("unexpected module result")

	// ErrUnknownWindow is returned for an unrecognized percentile window.
	ErrUnknownWindow = errors.New("unknown percentile window")
)
