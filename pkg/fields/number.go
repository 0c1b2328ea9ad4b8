package fields

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
)

// DefaultFloatStep is used for float inputs without an explicit step.
const DefaultFloatStep = 0.01

// NumberConfig configures a number input. Float switches the hidden copy to
// the float token and defaults Step to DefaultFloatStep. Min, Max and Step
// are left off the input when nil.
type NumberConfig struct {
	Common
	Float bool
	Step  *float64
	Min   *float64
	Max   *float64
}

// Number renders a visible number input followed by a hidden masked copy.
// The hidden copy comes last, so it wins when the submission is decoded.
type Number struct {
	cfg NumberConfig
}

// NewNumber validates cfg, including that Min does not exceed Max.
func NewNumber(cfg NumberConfig) (*Number, error) {
	errs := cfg.validate()
	if cfg.Min != nil && cfg.Max != nil && *cfg.Min > *cfg.Max {
		errs = append(errs, ValidationError{
			Code:    "min_greater_than_max",
			Message: fmt.Sprintf("`min` (%v) is greater than `max` (%v)", *cfg.Min, *cfg.Max),
			Field:   "min",
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &Number{cfg: cfg}, nil
}

// MustNumber is NewNumber that panics on an invalid config.
func MustNumber(cfg NumberConfig) *Number {
	return must(NewNumber(cfg))
}

func (n *Number) token() string {
	if n.cfg.Float {
		return mask.MaskFloat
	}
	return mask.MaskInt
}

// HTML renders the visible input and its hidden masked copy.
func (n *Number) HTML() string {
	token := n.token()
	value := n.cfg.Value.Text()

	var out strings.Builder

	visible := n.cfg.attrs("number", n.cfg.Name)
	visible.Set("value", value)
	visible.SetIf("placeholder", n.cfg.Placeholder)
	visible.Set("onchange", fmt.Sprintf("this.nextElementSibling.value='%s'+this.value", token))
	if n.cfg.Float {
		step := DefaultFloatStep
		if n.cfg.Step != nil {
			step = *n.cfg.Step
		}
		visible.Set("step", formatBound(step))
	} else if n.cfg.Step != nil {
		visible.Set("step", formatBound(*n.cfg.Step))
	}
	if n.cfg.Min != nil {
		visible.Set("min", formatBound(*n.cfg.Min))
	}
	if n.cfg.Max != nil {
		visible.Set("max", formatBound(*n.cfg.Max))
	}
	n.cfg.flags(&visible)
	out.WriteString(markup.Void("input", visible))

	var hidden markup.Attrs
	hidden.Set("type", "hidden").Set("name", n.cfg.Name).Set("value", token+value)
	hidden.Flag("disabled", n.cfg.Disabled)
	out.WriteString(markup.Void("input", hidden))

	return out.String()
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
