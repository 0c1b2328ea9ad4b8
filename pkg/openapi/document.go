package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrUnknownComponent is returned when a component schema does not exist.
var ErrUnknownComponent = errors.New("openapi: unknown component schema")

// Document is a raw OpenAPI payload and its origin.
type Document struct {
	source Source
	raw    []byte
}

func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("openapi: source is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("openapi: raw document is empty")
	}
	return Document{source: src, raw: append([]byte(nil), raw...)}, nil
}

func (d Document) Source() Source { return d.source }

// Raw returns a copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// Components lists the component schema names, sorted.
func (d Document) Components(ctx context.Context) ([]string, error) {
	spec, err := d.parse(ctx)
	if err != nil {
		return nil, err
	}
	if spec.Components == nil {
		return nil, nil
	}
	names := make([]string, 0, len(spec.Components.Schemas))
	for name := range spec.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (d Document) parse(ctx context.Context) (*openapi3.T, error) {
	if len(d.raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = false
	spec, err := loader.LoadFromData(d.raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: parse %s: %w", d.Location(), err)
	}
	return spec, nil
}

func (d Document) component(ctx context.Context, name string) (*openapi3.Schema, error) {
	spec, err := d.parse(ctx)
	if err != nil {
		return nil, err
	}
	if spec.Components == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	ref, ok := spec.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return ref.Value, nil
}
