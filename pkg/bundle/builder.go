// Package bundle expands field descriptors into form markup. Scalar kinds
// map onto a single primitive control; object and group kinds recurse into
// their templates, adding hidden prototypes that the browser runtime clones
// when the user adds an item.
package bundle

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionform/pkg/fields"
	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// DefaultNamespace is the global object the browser runtime installs.
const DefaultNamespace = "optionform"

// Option configures a Builder.
type Option func(*Builder)

// WithNamespace changes the JavaScript namespace used in inline handlers.
func WithNamespace(ns string) Option {
	return func(b *Builder) {
		if strings.TrimSpace(ns) != "" {
			b.namespace = ns
		}
	}
}

// WithSanitizer replaces the label/description sanitizer. Pass nil to render
// labels as escaped text.
func WithSanitizer(fn func(string) string) Option {
	return func(b *Builder) {
		b.sanitize = fn
	}
}

// Builder renders descriptors. It holds no per-render state and is safe for
// concurrent use.
type Builder struct {
	namespace string
	sanitize  func(string) string
}

func New(opts ...Option) *Builder {
	b := &Builder{
		namespace: DefaultNamespace,
		sanitize:  markup.Sanitize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Namespace is the JavaScript global referenced by inline handlers.
func (b *Builder) Namespace() string { return b.namespace }

// Render expands d at nesting level one.
func (b *Builder) Render(ctx context.Context, d model.Descriptor) (string, error) {
	return b.RenderAt(ctx, d, 1)
}

// RenderAt expands d at the given nesting level.
func (b *Builder) RenderAt(ctx context.Context, d model.Descriptor, level int) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if level < 1 {
		level = 1
	}
	return b.render(ctx, d, level)
}

type field struct {
	desc   model.Descriptor
	name   string
	id     string
	level  int
	value  mask.Value
	label  string
	plain  string
	main   markup.Attrs
	input  markup.Attrs
	lbl    markup.Attrs
	desca  markup.Attrs
	after  strings.Builder
	hidden bool
}

func (b *Builder) render(ctx context.Context, d model.Descriptor, level int) (string, error) {
	d = d.Normalize()

	f := &field{desc: d, level: level}
	f.name = d.Name
	if d.Parent != "" {
		f.name = markup.Name(d.Parent, d.Name)
	}
	if strings.TrimSpace(f.name) == "" {
		return "", fmt.Errorf("bundle: descriptor %q has no name", d.Key)
	}
	f.id = d.ID
	if f.id == "" {
		f.id = ElementID(f.name)
	}
	f.value = d.Current()
	data := make(map[string]string, len(d.Data)+1)
	for key, value := range d.Data {
		data[key] = value
	}
	if _, ok := data["name"]; !ok {
		data["name"] = f.name
	}
	f.desc.Data = data

	labelCtx := model.LabelContext{Name: f.name, Key: d.Key, Index: -1, Value: f.value}
	f.label = d.Label.Resolve(labelCtx)
	f.plain = markup.PlainText(f.label)

	f.main.Set("option-id", f.id).Set("level", strconv.Itoa(level))
	f.main.AddClass("main group")
	f.input.Set("option-id", f.id)
	f.input.AddClass("input", string(d.Kind), string(d.Method))
	f.input.Merge(d.Attrs)
	f.lbl.Set("option-id", f.id)
	f.lbl.AddClass("label")
	f.desca.Set("option-id", f.id)
	f.desca.AddClass("description")

	if err := b.applyDependencies(ctx, f); err != nil {
		return "", err
	}
	if err := b.applyRelation(ctx, f); err != nil {
		return "", err
	}

	var body strings.Builder
	body.WriteString(fields.MustEmpty(fields.EmptyConfig{
		Name:     f.name,
		Array:    d.Multiple(),
		Disabled: d.Disabled,
	}).HTML())

	var (
		inner string
		err   error
	)
	switch d.Kind {
	case model.KindBool:
		inner, err = b.boolean(f)
	case model.KindNumber:
		inner, err = b.number(f)
	case model.KindObject:
		inner, err = b.object(ctx, f)
	case model.KindGroup:
		inner, err = b.group(ctx, f)
	default:
		inner, err = b.scalar(f)
	}
	if err != nil {
		return "", err
	}
	body.WriteString(inner)

	var out strings.Builder
	if f.label != "" {
		out.WriteString(markup.Element("div", f.lbl, b.labelHTML(f.label)))
	}
	out.WriteString(markup.Element("div", f.main, body.String()))
	if desc := d.Description.Resolve(labelCtx); desc != "" {
		out.WriteString(markup.Element("div", f.desca, b.labelHTML(desc)))
	}
	out.WriteString(f.after.String())
	return out.String(), nil
}

func (b *Builder) labelHTML(text string) string {
	if b.sanitize == nil {
		return markup.Text(text)
	}
	return b.sanitize(text)
}

func (f *field) common(name string, value mask.Value) fields.Common {
	return fields.Common{
		Name:        name,
		Value:       value,
		Disabled:    f.desc.Disabled,
		Readonly:    f.desc.Readonly,
		Required:    f.desc.Required,
		Placeholder: f.desc.Placeholder,
		Attrs:       f.input.Clone(),
		Data:        f.desc.Data,
	}
}

func (b *Builder) boolean(f *field) (string, error) {
	control, err := fields.NewBoolean(fields.BooleanConfig{Common: f.common(f.name, f.value)})
	if err != nil {
		return "", fieldError(f.name, err)
	}
	return control.HTML(), nil
}

func (b *Builder) number(f *field) (string, error) {
	common := f.common(f.name, f.value)
	common.Attrs.AddClass("full")
	if common.Placeholder == "" {
		common.Placeholder = f.plain
	}
	control, err := fields.NewNumber(fields.NumberConfig{
		Common: common,
		Float:  f.desc.Float,
		Step:   f.desc.Step,
		Min:    f.desc.Min,
		Max:    f.desc.Max,
	})
	if err != nil {
		return "", fieldError(f.name, err)
	}
	return control.HTML(), nil
}

// scalar renders text kinds: choices, text lists, or a single input.
func (b *Builder) scalar(f *field) (string, error) {
	d := f.desc
	switch {
	case d.Choices != nil:
		common := f.common(f.name, f.value)
		common.Attrs.AddClass("full")
		control, err := fields.NewChoice(fields.ChoiceConfig{
			Common:   common,
			Choices:  d.Choices,
			Multiple: d.Multiple(),
			Markup:   d.Markup,
		})
		if err != nil {
			return "", fieldError(f.name, err)
		}
		return control.HTML(), nil
	case d.Relation != nil:
		// A relation whose source has no items yet leaves nothing to pick.
		attrs := f.input.Clone()
		attrs.AddClass("full")
		attrs.Set("name", f.name).Flag("disabled", true)
		return markup.Element("select", attrs, ""), nil
	case d.Multiple():
		return b.textList(f)
	case d.Markup == model.MarkupNumber:
		return b.number(f)
	default:
		common := f.common(f.name, f.value)
		common.Attrs.AddClass("full")
		if common.Placeholder == "" {
			common.Placeholder = f.plain
		}
		control, err := fields.NewText(fields.TextConfig{
			Common: common,
			Large:  d.Markup == model.MarkupTextarea,
		})
		if err != nil {
			return "", fieldError(f.name, err)
		}
		return control.HTML(), nil
	}
}

func fieldError(name string, err error) error {
	return fmt.Errorf("bundle: field %q: %w", name, err)
}

var idUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ElementID derives a DOM id from a bracket name.
func ElementID(name string) string {
	id := idUnsafe.ReplaceAllString(name, "-")
	return strings.Trim(id, "-")
}
