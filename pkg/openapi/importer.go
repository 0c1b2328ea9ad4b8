package openapi

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// Extension is the schema extension read for form hints. Recognised keys:
// slug, title (component only), markup, placeholder, order, serialize,
// single_option and depends_on (a list of {option, value}).
const Extension = "x-optionform"

// ImportOption configures Form.
type ImportOption func(*importer)

// WithSlug sets the document slug instead of deriving it.
func WithSlug(slug string) ImportOption {
	return func(im *importer) { im.slug = slug }
}

// WithGeneralSection names the section that holds top-level scalar
// properties. It defaults to "general".
func WithGeneralSection(key, label string) ImportOption {
	return func(im *importer) {
		im.generalKey = key
		im.generalLabel = label
	}
}

type importer struct {
	slug         string
	generalKey   string
	generalLabel string
}

// Form builds a form document from the component schema name.
func (d Document) Form(ctx context.Context, component string, opts ...ImportOption) (model.Document, error) {
	schema, err := d.component(ctx, component)
	if err != nil {
		return model.Document{}, err
	}
	im := &importer{generalKey: "general", generalLabel: "General"}
	for _, opt := range opts {
		if opt != nil {
			opt(im)
		}
	}
	if !isType(schema, openapi3.TypeObject) || len(schema.Properties) == 0 {
		return model.Document{}, fmt.Errorf("openapi: component %q is not an object with properties", component)
	}

	ext := hints(schema)
	doc := model.Document{
		Slug:        firstNonEmpty(im.slug, ext.str("slug"), slugify(component)),
		Title:       firstNonEmpty(ext.str("title"), schema.Title, model.ToLabel(component)),
		Description: schema.Description,
		Source:      d.Location(),
	}

	general := model.Section{Key: im.generalKey, Label: model.Literal(im.generalLabel)}
	for _, name := range propertyOrder(schema) {
		prop := schema.Properties[name].Value
		if prop == nil {
			continue
		}
		if isSection(prop) {
			section, err := buildSection(name, prop)
			if err != nil {
				return model.Document{}, err
			}
			doc.Sections = append(doc.Sections, section)
			continue
		}
		spec, err := optionSpec(name, prop, contains(schema.Required, name))
		if err != nil {
			return model.Document{}, err
		}
		general.Options = append(general.Options, spec)
	}
	if len(general.Options) > 0 {
		doc.Sections = append([]model.Section{general}, doc.Sections...)
	}
	return doc, nil
}

func buildSection(key string, schema *openapi3.Schema) (model.Section, error) {
	section := model.Section{
		Key:         key,
		Label:       literal(schema.Title),
		Description: literal(schema.Description),
	}
	for _, name := range propertyOrder(schema) {
		prop := schema.Properties[name].Value
		if prop == nil {
			continue
		}
		if isSection(prop) {
			child, err := buildSection(name, prop)
			if err != nil {
				return model.Section{}, err
			}
			section.Sections = append(section.Sections, child)
			continue
		}
		spec, err := optionSpec(name, prop, contains(schema.Required, name))
		if err != nil {
			return model.Section{}, fmt.Errorf("openapi: section %s: %w", key, err)
		}
		section.Options = append(section.Options, spec)
	}
	return section, nil
}

func optionSpec(key string, schema *openapi3.Schema, required bool) (model.OptionSpec, error) {
	desc, err := descriptor(key, schema, required)
	if err != nil {
		return model.OptionSpec{}, err
	}
	if err := desc.Validate(); err != nil {
		return model.OptionSpec{}, err
	}
	ext := hints(schema)
	return model.OptionSpec{
		Descriptor: desc,
		Layout: model.Layout{
			Serialize:    ext.boolean("serialize"),
			SingleOption: ext.boolean("single_option"),
		},
	}, nil
}

func descriptor(key string, schema *openapi3.Schema, required bool) (model.Descriptor, error) {
	ext := hints(schema)
	d := model.Descriptor{
		Key:         key,
		Required:    required,
		Readonly:    schema.ReadOnly,
		Label:       literal(schema.Title),
		Description: literal(schema.Description),
		Placeholder: ext.str("placeholder"),
		Markup:      model.Markup(ext.str("markup")),
	}
	d.DependsOn = ext.dependencies()

	switch {
	case isType(schema, openapi3.TypeArray):
		if schema.Items == nil || schema.Items.Value == nil {
			return d, &model.DescriptorError{Key: key, Property: "items", Reason: "array schema must define items"}
		}
		d.Method = model.MethodMultiple
		item := schema.Items.Value
		if isType(item, openapi3.TypeObject) && len(item.Properties) > 0 {
			d.Kind = model.KindObject
			template, err := templateOf(item)
			if err != nil {
				return d, nestError(key, err)
			}
			d.Template = template
		} else {
			inner, err := descriptor(key, item, false)
			if err != nil {
				return d, err
			}
			d.Kind, d.Float, d.Min, d.Max, d.Step = inner.Kind, inner.Float, inner.Min, inner.Max, inner.Step
			d.Choices = inner.Choices
		}
	case isType(schema, openapi3.TypeObject):
		switch {
		case len(schema.Properties) > 0:
			d.Kind = model.KindGroup
			template, err := templateOf(schema)
			if err != nil {
				return d, nestError(key, err)
			}
			d.Template = template
		case schema.AdditionalProperties.Schema != nil && schema.AdditionalProperties.Schema.Value != nil:
			d.Kind = model.KindObject
			field, err := descriptor("", schema.AdditionalProperties.Schema.Value, false)
			if err != nil {
				return d, nestError(key, err)
			}
			d.Field = &field
		default:
			return d, &model.DescriptorError{Key: key, Property: "type", Reason: "object needs properties or additionalProperties"}
		}
	case isType(schema, openapi3.TypeBoolean):
		d.Kind = model.KindBool
	case isType(schema, openapi3.TypeInteger):
		d.Kind = model.KindNumber
		d.Min, d.Max = schema.Min, schema.Max
	case isType(schema, openapi3.TypeNumber):
		d.Kind = model.KindNumber
		d.Float = true
		d.Min, d.Max = schema.Min, schema.Max
	default:
		d.Kind = model.KindText
		if schema.Format == "textarea" && d.Markup == "" {
			d.Markup = model.MarkupTextarea
		}
	}

	for _, value := range schema.Enum {
		text := mask.FromAny(value).Text()
		d.Choices = append(d.Choices, model.Choice{Value: text, Label: model.ToLabel(text)})
	}
	if schema.Default != nil {
		d.Default = numberDefault(d, mask.FromAny(schema.Default))
	}
	return d, nil
}

func templateOf(schema *openapi3.Schema) (model.Template, error) {
	var template model.Template
	for _, name := range propertyOrder(schema) {
		prop := schema.Properties[name].Value
		if prop == nil {
			continue
		}
		child, err := descriptor(name, prop, contains(schema.Required, name))
		if err != nil {
			return nil, err
		}
		template = append(template, child)
	}
	return template, nil
}

// numberDefault narrows whole JSON numbers to ints for integer fields.
func numberDefault(d model.Descriptor, v mask.Value) mask.Value {
	if d.Kind != model.KindNumber || d.Float {
		return v
	}
	switch v.Kind() {
	case mask.KindFloat:
		f, _ := v.Float()
		if f == math.Trunc(f) {
			return mask.Int(int64(f))
		}
	case mask.KindList:
		items := v.Items()
		for i, item := range items {
			items[i] = numberDefault(d, item)
		}
		return mask.List(items...)
	}
	return v
}

// isSection reports whether a property opens a nested section.
func isSection(schema *openapi3.Schema) bool {
	if !isType(schema, openapi3.TypeObject) || len(schema.Properties) == 0 {
		return false
	}
	return hints(schema).str("markup") == ""
}

func isType(schema *openapi3.Schema, typ string) bool {
	if schema.Type == nil {
		return typ == openapi3.TypeObject && len(schema.Properties) > 0
	}
	return schema.Type.Includes(typ)
}

// propertyOrder lists the names in the extension's order first, then the
// rest alphabetically.
func propertyOrder(schema *openapi3.Schema) []string {
	seen := make(map[string]struct{}, len(schema.Properties))
	var out []string
	for _, name := range hints(schema).strings("order") {
		if _, ok := schema.Properties[name]; ok {
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				out = append(out, name)
			}
		}
	}
	rest := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

type extension map[string]any

func hints(schema *openapi3.Schema) extension {
	raw, _ := schema.Extensions[Extension].(map[string]any)
	return extension(raw)
}

func (e extension) str(key string) string {
	s, _ := e[key].(string)
	return strings.TrimSpace(s)
}

func (e extension) boolean(key string) *bool {
	b, ok := e[key].(bool)
	if !ok {
		return nil
	}
	return &b
}

func (e extension) strings(key string) []string {
	list, _ := e[key].([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (e extension) dependencies() []model.Dependency {
	list, _ := e["depends_on"].([]any)
	var out []model.Dependency
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ref, _ := entry["option"].(string)
		if ref == "" {
			continue
		}
		out = append(out, model.Dependency{Ref: ref, Expect: mask.FromAny(entry["value"])})
	}
	return out
}

func nestError(key string, err error) error {
	return fmt.Errorf("openapi: %s: %w", key, err)
}

func literal(text string) model.Label {
	if text == "" {
		return model.Label{}
	}
	return model.Literal(text)
}

func contains(list []string, name string) bool {
	for _, item := range list {
		if item == name {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// slugify turns "ShopSettings" into "shop_settings".
func slugify(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevLower = true
		default:
			if b.Len() > 0 && prevLower {
				b.WriteByte('_')
			}
			prevLower = false
		}
	}
	return strings.Trim(b.String(), "_")
}
