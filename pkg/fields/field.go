// Package fields renders the primitive form controls: booleans, numbers,
// text inputs, choices and the empty fallback that precedes every composite
// field. Each control is built from its own config struct and validated at
// construction; rendering is pure string building.
package fields

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
)

// Validation codes.
const (
	CodeRequired  = "required_field_not_provided"
	CodeValueList = "value_must_be_list"
)

// ErrInvalidConfig is matched by every ValidationErrors value.
var ErrInvalidConfig = errors.New("fields: invalid config")

// ValidationError is one broken config rule.
type ValidationError struct {
	Code    string
	Message string
	Field   string
}

// ValidationErrors collects the rules a config broke.
type ValidationErrors []ValidationError

// Error lists every broken rule with its code.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "fields: invalid config"
	}
	parts := make([]string, 0, len(e))
	for _, item := range e {
		parts = append(parts, fmt.Sprintf("%s (%s)", item.Message, item.Code))
	}
	return "fields: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

// Has reports whether code is among the errors.
func (e ValidationErrors) Has(code string) bool {
	for _, item := range e {
		if item.Code == code {
			return true
		}
	}
	return false
}

func required(field string) ValidationError {
	return ValidationError{
		Code:    CodeRequired,
		Message: fmt.Sprintf("required field `%s` not provided", field),
		Field:   field,
	}
}

// Field is a rendered control.
type Field interface {
	HTML() string
}

// Common holds the properties every control accepts.
type Common struct {
	Name        string
	Value       mask.Value
	Disabled    bool
	Readonly    bool
	Required    bool
	Placeholder string
	Attrs       markup.Attrs
	Data        map[string]string
}

func (c Common) validate() ValidationErrors {
	if strings.TrimSpace(c.Name) == "" {
		return ValidationErrors{required("name")}
	}
	return nil
}

// attrs returns the control attributes: caller attrs first, then name, the
// data bag and the state flags.
func (c Common) attrs(inputType, name string) markup.Attrs {
	attrs := c.Attrs.Clone()
	if inputType != "" {
		attrs.Set("type", inputType)
	}
	attrs.Set("name", name)
	attrs.Data(c.Data)
	return attrs
}

func (c Common) flags(attrs *markup.Attrs) {
	attrs.Flag("readonly", c.Readonly)
	attrs.Flag("disabled", c.Disabled)
	attrs.Flag("required", c.Required)
}

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}
