package fields

import (
	"strings"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
)

// BooleanConfig configures a checkbox. Value is read for truthiness.
type BooleanConfig struct {
	Common
}

// Boolean renders a hidden false sentinel followed by a checkbox carrying the
// true sentinel, so an unchecked box still submits an explicit false.
type Boolean struct {
	cfg BooleanConfig
}

// NewBoolean validates cfg and returns the control.
func NewBoolean(cfg BooleanConfig) (*Boolean, error) {
	if errs := cfg.validate(); len(errs) > 0 {
		return nil, errs
	}
	return &Boolean{cfg: cfg}, nil
}

// MustBoolean is NewBoolean that panics on an invalid config.
func MustBoolean(cfg BooleanConfig) *Boolean {
	return must(NewBoolean(cfg))
}

// HTML renders the hidden false input and the checkbox.
func (b *Boolean) HTML() string {
	var out strings.Builder

	var hidden markup.Attrs
	hidden.Set("type", "hidden").Set("name", b.cfg.Name).Set("value", mask.MaskFalse)
	hidden.Flag("disabled", b.cfg.Disabled)
	out.WriteString(markup.Void("input", hidden))

	box := b.cfg.attrs("checkbox", b.cfg.Name)
	box.Set("value", mask.MaskTrue)
	box.Flag("checked", b.cfg.Value.Truthy())
	b.cfg.flags(&box)
	out.WriteString(markup.Void("input", box))

	return out.String()
}
