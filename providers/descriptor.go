package providers

import (
	"errors"
	"fmt"

	"github.com/poiesic/enrichit/core"
)

var (
	// ErrInvalidDescriptor is returned when a descriptor is missing its name or id column.
	ErrInvalidDescriptor = errors.New("invalid provider descriptor")

	// ErrDuplicateProvider is returned when a name is registered twice.
	ErrDuplicateProvider = errors.New("duplicate provider")
)

// Descriptor maps one source table onto the canonical record shape.
// Descriptors are immutable once registered.
type Descriptor struct {
	// Name is the registry key and the source table name.
	Name string

	// IDColumn holds the provider-local unique id.
	IDColumn string

	// Fields maps each canonical field to one or more source columns.
	// Text joins every non-empty column with a space; other fields take the first non-empty column.
	Fields map[core.Field][]string

	// HasText is false for sources without extractable text. Those are never enabled.
	HasText bool

	DefaultRegion   string
	DefaultCategory string

	// Passthrough columns are copied verbatim into CanonicalRecord.Metadata.
	Passthrough []string
}

// Columns returns the source columns mapped for a canonical field.
func (d *Descriptor) Columns(f core.Field) []string {
	return d.Fields[f]
}

func (d *Descriptor) validate() error {
	if d == nil {
		return fmt.Errorf("%w: descriptor is nil", ErrInvalidDescriptor)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidDescriptor)
	}
	if d.IDColumn == "" {
		return fmt.Errorf("%w: %s has no id column", ErrInvalidDescriptor, d.Name)
	}
	return nil
}
