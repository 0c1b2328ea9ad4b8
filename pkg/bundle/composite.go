package bundle

import (
	"context"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionform/pkg/fields"
	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// child prepares a template child for rendering under the parent field.
func (f *field) child(d model.Descriptor, name string, value mask.Value, disabled bool) model.Descriptor {
	c := d.Clone()
	c.Name = name
	c.Parent = ""
	c.ID = ""
	c.Value = value
	c.Disabled = c.Disabled || disabled || f.desc.Disabled
	return c
}

func labelFromKey(d model.Descriptor) model.Descriptor {
	if d.Label.IsZero() && !model.IsNumericKey(d.Key) {
		d.Label = model.Literal(model.ToLabel(d.Key))
	}
	return d
}

// object renders one row per map entry (key input plus template children),
// then a disabled prototype row and the add-new button.
func (b *Builder) object(ctx context.Context, f *field) (string, error) {
	d := f.desc
	if len(d.Template) == 0 && d.Field == nil {
		return "", nil
	}
	keyAttrs := markup.Attrs{}
	keyAttrs.Set("type", "text")
	keyAttrs.SetIf("placeholder", f.plain)
	keyAttrs.Set("level", strconv.Itoa(f.level))
	keyAttrs.Set("onchange", b.call("objectKeyChange", "this"))
	for _, attr := range f.input {
		if attr.Name == "class" {
			continue
		}
		keyAttrs = append(keyAttrs, attr)
	}
	keyAttrs.AddClass(classOf(f.input), "key full")

	var out strings.Builder
	for _, entry := range f.value.Entries() {
		encoded := markup.Name(f.name, mask.EncodeKey(entry.Key))
		placeholder := markup.Name(f.name, mask.KeyToken)

		rowKey := keyAttrs.Clone()
		rowKey.Set("value", entry.Key)

		var row strings.Builder
		row.WriteString(markup.Void("input", rowKey))

		if len(d.Template) > 0 {
			var inner strings.Builder
			for _, tmpl := range d.Template {
				childValue, _ := entry.Value.Lookup(tmpl.Key)
				c := f.child(tmpl, encoded+"["+tmpl.Key+"]", childValue, false)
				c.Data = withName(c.Data, placeholder+"["+tmpl.Key+"]")
				html, err := b.render(ctx, c, f.level+1)
				if err != nil {
					return "", err
				}
				inner.WriteString(html)
			}
			row.WriteString(markup.Group(inner.String(), nil))
			row.WriteString(b.itemButtons(buttonDuplicate, buttonMinimise, buttonRemove))
			out.WriteString(markup.Group(row.String(), groupAttrs(f.level, "minimised", "false")))
			continue
		}

		c := f.child(*d.Field, encoded, entry.Value, false)
		c.Data = withName(c.Data, placeholder)
		html, err := b.render(ctx, c, f.level+1)
		if err != nil {
			return "", err
		}
		row.WriteString(html)
		row.WriteString(b.itemButtons(buttonDuplicate, buttonMinimise, buttonRemove))
		out.WriteString(markup.Group(row.String(), groupAttrs(f.level)))
	}

	prototypeName := markup.Name(f.name, mask.KeyToken)
	var proto strings.Builder
	if len(d.Template) > 0 {
		for _, tmpl := range d.Template {
			c := f.child(tmpl, prototypeName+"["+tmpl.Key+"]", mask.Null(), true)
			html, err := b.render(ctx, c, f.level+1)
			if err != nil {
				return "", err
			}
			proto.WriteString(html)
		}
	} else {
		c := f.child(*d.Field, prototypeName, mask.Null(), true)
		html, err := b.render(ctx, c, f.level+1)
		if err != nil {
			return "", err
		}
		proto.WriteString(html)
	}

	var row strings.Builder
	row.WriteString(markup.Void("input", keyAttrs))
	row.WriteString(markup.Group(proto.String(), nil))
	row.WriteString(b.itemButtons(buttonDuplicate, buttonRemove))
	out.WriteString(markup.Group(row.String(), prototypeAttrs(f.level)))
	out.WriteString(b.addNewButton(f.plain, 0))
	return out.String(), nil
}

// group renders a fixed-shape record, or for multiple groups a list of
// records plus a prototype named with the last-key placeholder.
func (b *Builder) group(ctx context.Context, f *field) (string, error) {
	d := f.desc
	if len(d.Template) == 0 {
		return "", nil
	}

	if !d.Multiple() {
		var out strings.Builder
		for _, tmpl := range d.Template {
			childValue, _ := f.value.Lookup(tmpl.Key)
			c := labelFromKey(f.child(tmpl, markup.Name(f.name, tmpl.Key), childValue, false))
			html, err := b.render(ctx, c, f.level+1)
			if err != nil {
				return "", err
			}
			out.WriteString(html)
		}
		return out.String(), nil
	}

	items := listItems(f.value)
	var out strings.Builder
	for idx, item := range items {
		index := strconv.Itoa(idx)
		var inner strings.Builder
		for _, tmpl := range d.Template {
			childValue, _ := item.Lookup(tmpl.Key)
			c := labelFromKey(f.child(tmpl, markup.Name(f.name, index, tmpl.Key), childValue, false))
			html, err := b.render(ctx, c, f.level+1)
			if err != nil {
				return "", err
			}
			inner.WriteString(html)
		}
		inner.WriteString(b.templateDescription(d, model.LabelContext{Name: f.name, Key: index, Index: idx, Value: item}))
		inner.WriteString(b.itemButtons(buttonRemove))
		out.WriteString(markup.Group(inner.String(), groupAttrs(f.level, "minimised", "false")))
	}

	var proto strings.Builder
	for _, tmpl := range d.Template {
		c := labelFromKey(f.child(tmpl, markup.Name(f.name, mask.LastKeyToken, tmpl.Key), mask.Null(), true))
		html, err := b.render(ctx, c, f.level+1)
		if err != nil {
			return "", err
		}
		proto.WriteString(html)
	}
	proto.WriteString(b.templateDescription(d, model.LabelContext{Name: f.name, Index: -1, Value: mask.Null()}))
	proto.WriteString(b.itemButtons(buttonRemove))
	attrs := prototypeAttrs(f.level)
	attrs.Set("minimised", "false")
	out.WriteString(markup.Group(proto.String(), attrs))
	out.WriteString(b.addNewButton(f.plain, len(items)-1))
	return out.String(), nil
}

// textList renders one input per non-empty item of a multiple text field.
func (b *Builder) textList(f *field) (string, error) {
	d := f.desc
	inputType := string(d.Markup)
	large := d.Markup == model.MarkupTextarea
	if large || inputType == "" {
		inputType = "text"
	}
	listName := f.name + "[]"

	var out strings.Builder
	for _, item := range listItems(f.value) {
		if !item.Truthy() {
			continue
		}
		common := f.common(listName, item)
		common.Attrs.AddClass("full")
		common.Placeholder = f.plain
		control, err := fields.NewText(fields.TextConfig{Common: common, Type: inputType, Large: large})
		if err != nil {
			return "", fieldError(listName, err)
		}
		out.WriteString(markup.Group(control.HTML()+b.itemButtons(buttonDuplicate, buttonRemove), nil))
	}

	common := f.common(listName, mask.Null())
	common.Attrs.AddClass("full")
	common.Placeholder = f.plain
	common.Disabled = true
	common.Readonly = false
	common.Required = false
	control, err := fields.NewText(fields.TextConfig{Common: common, Type: inputType, Large: large})
	if err != nil {
		return "", fieldError(listName, err)
	}
	var protoAttrs markup.Attrs
	protoAttrs.AddClass("hidden")
	protoAttrs.Set("new", "true")
	protoAttrs.Set("onclick", "var e=this.querySelector('[name]'); e.disabled = false; e.focus()")
	out.WriteString(markup.Group(control.HTML()+b.itemButtons(buttonRemove), protoAttrs))
	out.WriteString(b.addNewButton(f.plain, 0))
	return out.String(), nil
}

func (b *Builder) templateDescription(d model.Descriptor, ctx model.LabelContext) string {
	if d.TemplateDescription.IsZero() {
		return ""
	}
	text := d.TemplateDescription.Resolve(ctx)
	if text == "" {
		return ""
	}
	var attrs markup.Attrs
	attrs.AddClass("description")
	return markup.Element("div", attrs, b.labelHTML(text))
}

// listItems returns list items, or the values of a map in order.
func listItems(v mask.Value) []mask.Value {
	switch v.Kind() {
	case mask.KindList:
		return v.Items()
	case mask.KindMap:
		entries := v.Entries()
		out := make([]mask.Value, 0, len(entries))
		for _, entry := range entries {
			out = append(out, entry.Value)
		}
		return out
	default:
		return nil
	}
}

func withName(data map[string]string, name string) map[string]string {
	out := make(map[string]string, len(data)+1)
	for key, value := range data {
		out[key] = value
	}
	out["name"] = name
	return out
}

func groupAttrs(level int, extra ...string) markup.Attrs {
	var attrs markup.Attrs
	for idx := 0; idx+1 < len(extra); idx += 2 {
		attrs.Set(extra[idx], extra[idx+1])
	}
	attrs.Set("level", strconv.Itoa(level))
	return attrs
}

func prototypeAttrs(level int) markup.Attrs {
	var attrs markup.Attrs
	attrs.Set("new", "true")
	attrs.AddClass("hidden")
	attrs.Set("level", strconv.Itoa(level))
	return attrs
}

func classOf(attrs markup.Attrs) string {
	class, _ := attrs.Get("class")
	return class
}
