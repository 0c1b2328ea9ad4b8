package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidDescriptor marks descriptor contract violations.
	ErrInvalidDescriptor = errors.New("model: invalid descriptor")
	// ErrUnknownProperty is wrapped when a document names a property no
	// descriptor declares.
	ErrUnknownProperty = errors.New("model: unknown property")
)

// DescriptorError reports which descriptor and property broke the contract.
// Key is the dotted path of template keys leading to the descriptor.
type DescriptorError struct {
	Key      string
	Property string
	Reason   string
}

func (e *DescriptorError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("model: %s: %s", e.Property, e.Reason)
	}
	return fmt.Sprintf("model: %s.%s: %s", e.Key, e.Property, e.Reason)
}

func (e *DescriptorError) Unwrap() error {
	return ErrInvalidDescriptor
}

func nestDescriptorError(parent string, err error) error {
	var descErr *DescriptorError
	if !errors.As(err, &descErr) || parent == "" {
		return err
	}
	nested := *descErr
	if nested.Key == "" {
		nested.Key = parent
	} else {
		nested.Key = parent + "." + nested.Key
	}
	return &nested
}

// decodeStrict decodes node rejecting unknown fields, which a plain
// node.Decode would silently drop.
func decodeStrict(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return classifyYAMLError(err)
	}
	return nil
}

func classifyYAMLError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not found in type") {
		return fmt.Errorf("%w: %w", ErrUnknownProperty, err)
	}
	return err
}
