package fields

import (
	"sort"
	"strings"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// ChoiceConfig configures a select, radio or checkbox group. Choices must be
// set, but may be empty.
type ChoiceConfig struct {
	Common
	Choices  model.Choices
	Multiple bool
	// Markup is select (default) or checkbox; checkbox renders radios when
	// Multiple is false.
	Markup model.Markup
}

// Choice renders a fixed set of values. Multiple choices submit a list under
// name[].
type Choice struct {
	cfg      ChoiceConfig
	selected []mask.Value
}

// NewChoice validates cfg. A multiple choice with a Null value starts as an
// empty list; any other non-list value is rejected.
func NewChoice(cfg ChoiceConfig) (*Choice, error) {
	errs := cfg.validate()

	var selected []mask.Value
	if cfg.Multiple {
		switch cfg.Value.Kind() {
		case mask.KindNull:
			cfg.Value = mask.List()
		case mask.KindList:
			selected = cfg.Value.Items()
		case mask.KindMap:
			for _, entry := range cfg.Value.Entries() {
				selected = append(selected, entry.Value)
			}
		default:
			errs = append(errs, ValidationError{
				Code:    CodeValueList,
				Message: "`value` must be a list when multiple is set",
				Field:   "value",
			})
		}
	}

	if cfg.Choices == nil {
		errs = append(errs, required("choices"))
	}

	if cfg.Markup != model.MarkupSelect && cfg.Markup != model.MarkupCheckbox {
		cfg.Markup = model.MarkupSelect
	}

	if len(errs) > 0 {
		return nil, errs
	}

	c := &Choice{cfg: cfg, selected: selected}
	if cfg.Multiple {
		c.cfg.Choices = SortSelected(cfg.Choices, selected)
	}
	return c, nil
}

// MustChoice is NewChoice that panics on an invalid config.
func MustChoice(cfg ChoiceConfig) *Choice {
	return must(NewChoice(cfg))
}

// Choices returns the choices in render order.
func (c *Choice) Choices() model.Choices {
	return append(model.Choices(nil), c.cfg.Choices...)
}

// SortSelected moves selected choices to the front, in the order they appear
// in selected. Unselected choices keep their relative order.
func SortSelected(choices model.Choices, selected []mask.Value) model.Choices {
	out := append(model.Choices(nil), choices...)
	position := func(choice model.Choice) int {
		for idx, value := range selected {
			if mask.Loose(mask.String(choice.Value), value) {
				return idx
			}
		}
		return len(selected)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return position(out[i]) < position(out[j])
	})
	return out
}

func (c *Choice) isSelected(choice model.Choice) bool {
	key := mask.String(choice.Value)
	if !c.cfg.Multiple {
		return mask.Loose(key, c.cfg.Value)
	}
	for _, value := range c.selected {
		if mask.Loose(key, value) {
			return true
		}
	}
	return false
}

func (c *Choice) name() string {
	if c.cfg.Multiple {
		return c.cfg.Name + "[]"
	}
	return c.cfg.Name
}

// HTML renders a select, or one labelled input per choice for the checkbox
// markup.
func (c *Choice) HTML() string {
	if c.cfg.Markup == model.MarkupCheckbox {
		return c.checkboxes()
	}

	attrs := c.cfg.attrs("", c.name())
	c.cfg.flags(&attrs)
	attrs.Set("select2", "true")
	attrs.Flag("multiple", c.cfg.Multiple)

	var options strings.Builder
	for _, choice := range c.cfg.Choices {
		var optAttrs markup.Attrs
		optAttrs.Set("value", choice.Value)
		optAttrs.Flag("selected", c.isSelected(choice))
		options.WriteString(markup.Element("option", optAttrs, markup.Text(choice.Label)))
	}
	return markup.Element("select", attrs, options.String())
}

func (c *Choice) checkboxes() string {
	inputType := "radio"
	if c.cfg.Multiple {
		inputType = "checkbox"
	}

	var out strings.Builder
	for _, choice := range c.cfg.Choices {
		attrs := c.cfg.attrs(inputType, c.name())
		attrs.Set("value", choice.Value)
		attrs.Flag("checked", c.isSelected(choice))
		c.cfg.flags(&attrs)
		label := markup.Element("label", nil, markup.Void("input", attrs)+markup.Text(choice.Label))
		out.WriteString(markup.Group(label, nil))
	}
	return out.String()
}
