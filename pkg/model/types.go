package model

import (
	"context"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// Kind is the shape of a field's value.
type Kind string

const (
	KindText   Kind = "text"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindObject Kind = "object"
	KindGroup  Kind = "group"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindBool, KindNumber, KindObject, KindGroup:
		return true
	}
	return false
}

// Method selects between a single value and a repeatable list.
type Method string

const (
	MethodSingle   Method = "single"
	MethodMultiple Method = "multiple"
)

func (m Method) Valid() bool {
	return m == MethodSingle || m == MethodMultiple
}

// Markup is the HTML control used for scalar fields.
type Markup string

const (
	MarkupText     Markup = "text"
	MarkupNumber   Markup = "number"
	MarkupTextarea Markup = "textarea"
	MarkupSelect   Markup = "select"
	MarkupCheckbox Markup = "checkbox"
)

func (m Markup) Valid() bool {
	switch m {
	case MarkupText, MarkupNumber, MarkupTextarea, MarkupSelect, MarkupCheckbox:
		return true
	}
	return false
}

// Choice is one selectable value and its display label.
type Choice struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Choices keeps declaration order. In YAML it accepts a mapping
// (value: label), a list of strings (indexed from zero) or a list of
// {value, label} records.
type Choices []Choice

func (c Choices) Label(value string) (string, bool) {
	for _, choice := range c {
		if choice.Value == value {
			return choice.Label, true
		}
	}
	return "", false
}

func (c *Choices) UnmarshalYAML(node *yaml.Node) error {
	out := Choices{}
	switch node.Kind {
	case yaml.MappingNode:
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			out = append(out, Choice{Value: node.Content[idx].Value, Label: node.Content[idx+1].Value})
		}
	case yaml.SequenceNode:
		for idx, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, Choice{Value: strconv.Itoa(idx), Label: item.Value})
			case yaml.MappingNode:
				var choice Choice
				if err := item.Decode(&choice); err != nil {
					return fmt.Errorf("model: choice at line %d: %w", item.Line, err)
				}
				out = append(out, choice)
			default:
				return fmt.Errorf("model: unsupported choice at line %d", item.Line)
			}
		}
	default:
		return fmt.Errorf("model: choices at line %d must be a mapping or a list", node.Line)
	}
	*c = out
	return nil
}

// Template is the ordered set of named children of a composite field.
type Template []Descriptor

// Child returns the template child registered under key.
func (t Template) Child(key string) (Descriptor, bool) {
	for _, child := range t {
		if child.Key == key {
			return child, true
		}
	}
	return Descriptor{}, false
}

func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("model: template at line %d must be a mapping", node.Line)
	}
	out := make(Template, 0, len(node.Content)/2)
	for idx := 0; idx+1 < len(node.Content); idx += 2 {
		key := node.Content[idx].Value
		var child Descriptor
		body := node.Content[idx+1]
		if body.Kind == yaml.ScalarNode && body.ShortTag() == "!!null" {
			child = Descriptor{}
		} else if err := decodeStrict(body, &child); err != nil {
			return fmt.Errorf("model: template child %q: %w", key, err)
		}
		child.Key = key
		out = append(out, child)
	}
	*t = out
	return nil
}

func (t Template) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, child := range t {
		var value yaml.Node
		if err := value.Encode(child); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: child.Key},
			&value,
		)
	}
	return node, nil
}

// ValueSource exposes the current stored value of another option.
type ValueSource interface {
	ElementID() string
	CurrentValue(ctx context.Context) (mask.Value, error)
}

// Dependency hides a field unless the referenced option's value loosely
// equals Expect. Ref is the route name of the controlling option.
type Dependency struct {
	Ref    string      `yaml:"option" json:"option"`
	Expect mask.Value  `yaml:"value" json:"value"`
	Source ValueSource `yaml:"-" json:"-"`
}

// Relation sources a field's choices from the list value of another option.
// Each item contributes item[Key] as the choice value and item[Label] as its
// label; the item index is used when either is missing.
type Relation struct {
	Ref    string      `yaml:"option" json:"option"`
	Key    string      `yaml:"key" json:"key,omitempty"`
	Label  string      `yaml:"label" json:"label,omitempty"`
	Source ValueSource `yaml:"-" json:"-"`
}

// Descriptor declares one form field.
type Descriptor struct {
	ID     string `yaml:"id" json:"id,omitempty"`
	Key    string `yaml:"key" json:"key,omitempty"`
	Kind   Kind   `yaml:"type" json:"type,omitempty"`
	Method Method `yaml:"method" json:"method,omitempty"`
	Markup Markup `yaml:"markup" json:"markup,omitempty"`

	Choices             Choices     `yaml:"choices" json:"choices,omitempty"`
	Template            Template    `yaml:"template" json:"template,omitempty"`
	TemplateDescription Label       `yaml:"template_description" json:"template_description"`
	Field               *Descriptor `yaml:"field" json:"field,omitempty"`

	Name   string `yaml:"name" json:"name,omitempty"`
	Parent string `yaml:"parent" json:"parent,omitempty"`

	Value   mask.Value `yaml:"value" json:"-"`
	Default mask.Value `yaml:"default" json:"default"`

	Disabled bool `yaml:"disabled" json:"disabled,omitempty"`
	Readonly bool `yaml:"readonly" json:"readonly,omitempty"`
	Required bool `yaml:"required" json:"required,omitempty"`

	Label       Label  `yaml:"label" json:"label"`
	Description Label  `yaml:"description" json:"description"`
	Placeholder string `yaml:"placeholder" json:"placeholder,omitempty"`

	Data  map[string]string `yaml:"data" json:"data,omitempty"`
	Attrs map[string]string `yaml:"attrs" json:"attrs,omitempty"`

	Float bool     `yaml:"float" json:"float,omitempty"`
	Step  *float64 `yaml:"step" json:"step,omitempty"`
	Min   *float64 `yaml:"min" json:"min,omitempty"`
	Max   *float64 `yaml:"max" json:"max,omitempty"`

	DependsOn []Dependency `yaml:"depends_on" json:"depends_on,omitempty"`
	Relation  *Relation    `yaml:"relation" json:"relation,omitempty"`
}

// Normalize fills defaults: kind text, method single, and markup chosen from
// the kind and the presence of choices.
func (d Descriptor) Normalize() Descriptor {
	if d.Kind == "" {
		d.Kind = KindText
	}
	if d.Method == "" {
		d.Method = MethodSingle
	}
	if d.Markup == "" {
		switch {
		case d.Kind == KindNumber:
			d.Markup = MarkupNumber
		case d.Choices != nil || d.Relation != nil:
			d.Markup = MarkupSelect
		default:
			d.Markup = MarkupText
		}
	}
	return d
}

// Current returns Value, falling back to Default when Value is Null.
func (d Descriptor) Current() mask.Value {
	if d.Value.IsNull() {
		return d.Default
	}
	return d.Value
}

// Multiple reports whether the field repeats.
func (d Descriptor) Multiple() bool {
	return d.Method == MethodMultiple
}

// Clone returns a copy that shares no mutable state with d.
func (d Descriptor) Clone() Descriptor {
	out := d
	out.Value = d.Value.Clone()
	out.Default = d.Default.Clone()
	if d.Choices != nil {
		out.Choices = append(Choices{}, d.Choices...)
	}
	if d.Template != nil {
		out.Template = make(Template, len(d.Template))
		for idx, child := range d.Template {
			out.Template[idx] = child.Clone()
		}
	}
	if d.Field != nil {
		field := d.Field.Clone()
		out.Field = &field
	}
	out.Data = cloneStrings(d.Data)
	out.Attrs = cloneStrings(d.Attrs)
	if d.DependsOn != nil {
		out.DependsOn = append([]Dependency(nil), d.DependsOn...)
	}
	if d.Relation != nil {
		relation := *d.Relation
		out.Relation = &relation
	}
	return out
}

// Validate checks the descriptor's enumerations and composite shape.
func (d Descriptor) Validate() error {
	n := d.Normalize()
	if !n.Kind.Valid() {
		return &DescriptorError{Key: d.Key, Property: "type", Reason: fmt.Sprintf("unknown type %q", d.Kind)}
	}
	if !n.Method.Valid() {
		return &DescriptorError{Key: d.Key, Property: "method", Reason: fmt.Sprintf("unknown method %q", d.Method)}
	}
	if !n.Markup.Valid() {
		return &DescriptorError{Key: d.Key, Property: "markup", Reason: fmt.Sprintf("unknown markup %q", d.Markup)}
	}
	if n.Kind == KindObject && len(n.Template) == 0 && n.Field == nil {
		return &DescriptorError{Key: d.Key, Property: "template", Reason: "object fields need a template or a field"}
	}
	if n.Kind == KindGroup && len(n.Template) == 0 {
		return &DescriptorError{Key: d.Key, Property: "template", Reason: "group fields need a template"}
	}
	for idx, dep := range n.DependsOn {
		if dep.Ref == "" && dep.Source == nil {
			return &DescriptorError{Key: d.Key, Property: "depends_on", Reason: fmt.Sprintf("dependency %d has no option", idx)}
		}
	}
	if n.Relation != nil && n.Relation.Ref == "" && n.Relation.Source == nil {
		return &DescriptorError{Key: d.Key, Property: "relation", Reason: "relation has no option"}
	}
	for _, child := range n.Template {
		if err := child.Validate(); err != nil {
			return nestDescriptorError(d.Key, err)
		}
	}
	if n.Field != nil {
		if err := n.Field.Validate(); err != nil {
			return nestDescriptorError(d.Key, err)
		}
	}
	return nil
}

func cloneStrings(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
