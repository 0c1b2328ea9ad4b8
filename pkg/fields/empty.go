package fields

import (
	"strings"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
)

// EmptyConfig describes the hidden fallback emitted before composite inputs.
type EmptyConfig struct {
	Name     string
	Array    bool
	Disabled bool
}

// Empty keeps a field present in the submission when none of its real
// inputs are: it decodes to Null, or to an empty list when Array is set.
type Empty struct {
	cfg EmptyConfig
}

// NewEmpty requires a name.
func NewEmpty(cfg EmptyConfig) (*Empty, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, ValidationErrors{required("name")}
	}
	return &Empty{cfg: cfg}, nil
}

// MustEmpty is NewEmpty that panics on an invalid config.
func MustEmpty(cfg EmptyConfig) *Empty {
	return must(NewEmpty(cfg))
}

// HTML renders the hidden input carrying the null or empty list token.
func (e *Empty) HTML() string {
	value := mask.MaskNull
	if e.cfg.Array {
		value = mask.MaskList
	}
	var attrs markup.Attrs
	attrs.Set("type", "hidden").Set("name", e.cfg.Name).Set("value", value)
	attrs.Flag("disabled", e.cfg.Disabled)
	return markup.Void("input", attrs)
}
