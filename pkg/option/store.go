package option

import (
	"context"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// Store is the key/value backend options read from and write to.
type Store interface {
	// Get returns the value stored under name and whether it exists.
	Get(ctx context.Context, name string) (mask.Value, bool, error)
	// Set stores v under name. It reports false when nothing changed.
	Set(ctx context.Context, name string, v mask.Value) (bool, error)
}

// Overrides supplies deployment-time constants that take precedence over
// stored values. An overridden option is read-only.
type Overrides interface {
	Lookup(name string) (string, bool)
}

// FilterFunc rewrites a value after it is read from storage.
type FilterFunc func(ctx context.Context, name string, v mask.Value) mask.Value

// OverrideMap is an in-memory Overrides.
type OverrideMap map[string]string

func (m OverrideMap) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}
