package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// applyDependencies hides the field when any bound dependency's stored value
// does not loosely equal the expected value, and registers a change listener
// per dependency so the browser can toggle visibility.
func (b *Builder) applyDependencies(ctx context.Context, f *field) error {
	for _, dep := range f.desc.DependsOn {
		if dep.Source == nil {
			continue
		}
		current, err := dep.Source.CurrentValue(ctx)
		if err != nil {
			return fmt.Errorf("bundle: dependency %q of %q: %w", dep.Ref, f.name, err)
		}
		if !mask.Loose(current, dep.Expect) {
			f.hidden = true
		}
		expected, err := mask.Encode(dep.Expect)
		if err != nil {
			return fmt.Errorf("bundle: dependency %q of %q: %w", dep.Ref, f.name, err)
		}
		script, err := b.script("registerDependencyChangeListener", f.id, dep.Source.ElementID(), expected)
		if err != nil {
			return err
		}
		f.after.WriteString(markup.Script(script))
	}
	if f.hidden {
		f.main.AddClass("hidden")
		f.lbl.AddClass("hidden")
		f.desca.AddClass("hidden")
	}
	return nil
}

// applyRelation replaces the field's choices with the items of the related
// option's value.
func (b *Builder) applyRelation(ctx context.Context, f *field) error {
	rel := f.desc.Relation
	if rel == nil || rel.Source == nil {
		return nil
	}
	current, err := rel.Source.CurrentValue(ctx)
	if err != nil {
		return fmt.Errorf("bundle: relation %q of %q: %w", rel.Ref, f.name, err)
	}
	var choices model.Choices
	for _, entry := range current.Entries() {
		choice := model.Choice{Value: entry.Key, Label: entry.Key}
		if rel.Key != "" {
			if v, ok := entry.Value.Lookup(rel.Key); ok && !v.IsNull() {
				choice.Value = v.Text()
			}
		}
		if rel.Label != "" {
			if v, ok := entry.Value.Lookup(rel.Label); ok && !v.IsNull() {
				choice.Label = v.Text()
			}
		}
		choices = append(choices, choice)
	}
	f.desc.Choices = choices
	return nil
}

// script builds a namespaced call with JSON encoded arguments.
func (b *Builder) script(fn string, args ...string) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("bundle: encode %s argument: %w", fn, err)
		}
		encoded = append(encoded, string(raw))
	}
	return b.call(fn, encoded...), nil
}

// call builds a namespaced call with raw JavaScript arguments.
func (b *Builder) call(fn string, args ...string) string {
	return b.namespace + "." + fn + "(" + strings.Join(args, ", ") + ")"
}

type button int

const (
	buttonDuplicate button = iota
	buttonMinimise
	buttonRemove
)

func (b *Builder) itemButtons(kinds ...button) string {
	var inner strings.Builder
	for _, kind := range kinds {
		var attrs markup.Attrs
		attrs.Set("type", "button")
		var text string
		switch kind {
		case buttonDuplicate:
			attrs.Set("onclick", b.call("duplicateItem", "this")).Set("title", "Duplicate")
			text = "&#65291;"
		case buttonMinimise:
			attrs.Set("onclick", b.call("minimiseItem", "this")).Set("title", "Minimise")
			text = "&#8212;"
		case buttonRemove:
			attrs.Set("onclick", b.call("removeItem", "this")).Set("title", "Remove")
			text = "X"
		}
		attrs.AddClass("button")
		inner.WriteString(markup.Element("button", attrs, text))
	}
	var attrs markup.Attrs
	attrs.AddClass("buttons")
	return markup.Element("div", attrs, inner.String())
}

// addNewButton renders the control that clones the sibling prototype. The
// last-key attribute seeds the index used for the next group item.
func (b *Builder) addNewButton(label string, lastKey int) string {
	noun := strings.ToLower(strings.TrimSpace(label))
	if noun == "" {
		noun = "item"
	}
	var attrs markup.Attrs
	attrs.Set("type", "button")
	attrs.Set("last-key", strconv.Itoa(lastKey))
	attrs.AddClass("button button-primary")
	attrs.Set("onclick", b.call("addNew", "this"))
	attrs.Set("title", "Click to add new "+noun)
	return markup.Group(markup.Element("button", attrs, "+ Add "+markup.Text(noun)), nil)
}
