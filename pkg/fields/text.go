package fields

import "github.com/goliatone/go-optionform/pkg/markup"

// TextConfig configures a text input or textarea.
type TextConfig struct {
	Common
	// Large renders a textarea.
	Large bool
	// Type overrides the input type; defaults to text.
	Type string
}

// Text renders a single line input, or a textarea when Large is set.
type Text struct {
	cfg TextConfig
}

// NewText validates cfg and returns the control.
func NewText(cfg TextConfig) (*Text, error) {
	if errs := cfg.validate(); len(errs) > 0 {
		return nil, errs
	}
	return &Text{cfg: cfg}, nil
}

// MustText is NewText that panics on an invalid config.
func MustText(cfg TextConfig) *Text {
	return must(NewText(cfg))
}

// HTML renders the input with the value as plain text.
func (t *Text) HTML() string {
	if t.cfg.Large {
		attrs := t.cfg.attrs("", t.cfg.Name)
		attrs.SetIf("placeholder", t.cfg.Placeholder)
		t.cfg.flags(&attrs)
		return markup.Element("textarea", attrs, markup.Text(t.cfg.Value.Text()))
	}

	inputType := t.cfg.Type
	if inputType == "" {
		inputType = "text"
	}
	attrs := t.cfg.attrs(inputType, t.cfg.Name)
	attrs.Set("value", t.cfg.Value.Text())
	attrs.SetIf("placeholder", t.cfg.Placeholder)
	t.cfg.flags(&attrs)
	return markup.Void("input", attrs)
}
