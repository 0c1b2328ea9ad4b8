// Package prompt edits a form's options interactively in a terminal. Each
// option is asked in outline order with a control matching its descriptor,
// and the answers are applied through the form so post-save hooks run.
package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/logging"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/option"
)

// Option configures an Editor.
type Option func(*Editor)

func WithLogger(l logging.Logger) Option {
	return func(e *Editor) { e.logger = logging.OrNop(l) }
}

// WithRoute limits editing to the options under a route prefix, given as
// segments.
func WithRoute(route ...string) Option {
	return func(e *Editor) { e.route = append([]string(nil), route...) }
}

// Editor walks a form and asks for a new value per option.
type Editor struct {
	form   *form.Form
	driver Driver
	logger logging.Logger
	route  []string
}

func NewEditor(f *form.Form, driver Driver, opts ...Option) (*Editor, error) {
	if f == nil {
		return nil, ErrNoForm
	}
	if driver == nil {
		driver = NewSurveyDriver()
	}
	e := &Editor{form: f, driver: driver, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Edit prompts for every editable option and saves the answers.
// Overridden options are reported and skipped.
func (e *Editor) Edit(ctx context.Context) (form.Result, error) {
	answers := mask.NewMap()
	for _, leaf := range e.form.Tree().Leaves() {
		if !hasPrefix(leaf.Route, e.route) {
			continue
		}
		opt := leaf.Option
		label := e.label(leaf)
		if opt.Overridden() {
			if err := e.driver.Info(ctx, fmt.Sprintf("%s is fixed by a constant override", label)); err != nil {
				return form.Result{}, err
			}
			continue
		}
		current, err := opt.Value(ctx)
		if err != nil {
			return form.Result{}, err
		}
		value, err := e.ask(ctx, opt, label, current)
		if err != nil {
			return form.Result{}, fmt.Errorf("prompt: %s: %w", opt.Name(), err)
		}
		answers.Set(opt.Name(), value)
	}

	res, err := e.form.Apply(ctx, mask.FromMap(answers))
	if err != nil {
		return res, err
	}
	summary := "No changes."
	if res.Changed() {
		summary = fmt.Sprintf("%s (%d changed)", res.Message, len(res.Saved))
	}
	e.logger.Debug("editor finished", "form", e.form.Slug(), "saved", len(res.Saved))
	return res, e.driver.Info(ctx, summary)
}

func (e *Editor) label(leaf form.Leaf) string {
	d := leaf.Option.Descriptor()
	text := d.Label.Text()
	if text == "" {
		text = model.ToLabel(leaf.Route[len(leaf.Route)-1])
	}
	parts := make([]string, 0, len(leaf.Route))
	for depth := 1; depth < len(leaf.Route); depth++ {
		if node, ok := e.form.Tree().Lookup(leaf.Route[:depth]...); ok {
			parts = append(parts, node.DisplayLabel())
		}
	}
	return strings.Join(append(parts, text), " / ")
}

func (e *Editor) ask(ctx context.Context, opt *option.Option, label string, current mask.Value) (mask.Value, error) {
	d := opt.Descriptor().Normalize()
	help := d.Description.Text()

	switch {
	case d.Kind == model.KindObject, d.Kind == model.KindGroup:
		return e.askJSON(ctx, label, help, current)
	case d.Kind == model.KindBool:
		on, err := e.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: current.Truthy(), Help: help})
		if err != nil {
			return mask.Null(), err
		}
		return mask.Bool(on), nil
	}

	if choices := e.choices(ctx, d); len(choices) > 0 {
		return e.askChoice(ctx, d, label, help, choices, current)
	}
	if d.Multiple() {
		return e.askLines(ctx, d, label, help, current)
	}
	raw, err := e.driver.Input(ctx, InputConfig{
		Message:   label,
		Default:   current.Text(),
		Help:      help,
		Validator: scalarValidator(d),
	})
	if err != nil {
		return mask.Null(), err
	}
	return parseScalar(d, raw)
}

func (e *Editor) askChoice(ctx context.Context, d model.Descriptor, label, help string, choices model.Choices, current mask.Value) (mask.Value, error) {
	options := make([]string, len(choices))
	for i, choice := range choices {
		options[i] = choice.Label
	}
	if d.Multiple() {
		var defaults []int
		for _, item := range current.Items() {
			if idx := choiceIndex(choices, item.Text()); idx >= 0 {
				defaults = append(defaults, idx)
			}
		}
		picked, err := e.driver.MultiSelect(ctx, SelectConfig{Message: label, Options: options, Defaults: defaults, Help: help})
		if err != nil {
			return mask.Null(), err
		}
		items := make([]mask.Value, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(choices) {
				items = append(items, mask.String(choices[idx].Value))
			}
		}
		return mask.List(items...), nil
	}

	idx, err := e.driver.Select(ctx, SelectConfig{
		Message:      label,
		Options:      options,
		DefaultIndex: choiceIndex(choices, current.Text()),
		Help:         help,
	})
	if err != nil {
		return mask.Null(), err
	}
	if idx < 0 || idx >= len(choices) {
		return current, nil
	}
	return mask.String(choices[idx].Value), nil
}

// askLines edits a list of scalars one per line.
func (e *Editor) askLines(ctx context.Context, d model.Descriptor, label, help string, current mask.Value) (mask.Value, error) {
	lines := make([]string, 0, current.Len())
	for _, item := range current.Items() {
		lines = append(lines, item.Text())
	}
	raw, err := e.driver.TextArea(ctx, TextAreaConfig{
		Message: label + " (one per line)",
		Default: strings.Join(lines, "\n"),
		Help:    help,
		Validator: func(s string) error {
			for _, line := range splitLines(s) {
				if err := scalarValidator(d)(line); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if err != nil {
		return mask.Null(), err
	}
	var items []mask.Value
	for _, line := range splitLines(raw) {
		v, err := parseScalar(d, line)
		if err != nil {
			return mask.Null(), err
		}
		items = append(items, v)
	}
	return mask.List(items...), nil
}

func (e *Editor) askJSON(ctx context.Context, label, help string, current mask.Value) (mask.Value, error) {
	encoded, err := current.MarshalJSON()
	if err != nil {
		return mask.Null(), err
	}
	raw, err := e.driver.TextArea(ctx, TextAreaConfig{
		Message: label + " (JSON)",
		Default: string(encoded),
		Help:    help,
		Validator: func(s string) error {
			var v mask.Value
			return v.UnmarshalJSON([]byte(strings.TrimSpace(s)))
		},
	})
	if err != nil {
		return mask.Null(), err
	}
	var v mask.Value
	if err := v.UnmarshalJSON([]byte(strings.TrimSpace(raw))); err != nil {
		return mask.Null(), err
	}
	return v, nil
}

// choices returns declared choices, or those of a bound relation.
func (e *Editor) choices(ctx context.Context, d model.Descriptor) model.Choices {
	rel := d.Relation
	if rel == nil || rel.Source == nil {
		return d.Choices
	}
	value, err := rel.Source.CurrentValue(ctx)
	if err != nil {
		e.logger.Warn("relation unavailable", "option", d.Name, "error", err)
		return nil
	}
	var out model.Choices
	for _, entry := range value.Entries() {
		choice := model.Choice{Value: entry.Key, Label: entry.Key}
		if v, ok := entry.Value.Lookup(rel.Key); ok && rel.Key != "" && !v.IsNull() {
			choice.Value = v.Text()
		}
		if v, ok := entry.Value.Lookup(rel.Label); ok && rel.Label != "" && !v.IsNull() {
			choice.Label = v.Text()
		}
		out = append(out, choice)
	}
	return out
}

func scalarValidator(d model.Descriptor) func(string) error {
	return func(raw string) error {
		if d.Required && strings.TrimSpace(raw) == "" {
			return fmt.Errorf("a value is required")
		}
		if d.Kind != model.KindNumber || strings.TrimSpace(raw) == "" {
			return nil
		}
		_, err := parseScalar(d, raw)
		return err
	}
}

func parseScalar(d model.Descriptor, raw string) (mask.Value, error) {
	if d.Kind != model.KindNumber {
		return mask.String(raw), nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return mask.Null(), nil
	}
	var n float64
	if d.Float {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return mask.Null(), fmt.Errorf("%q is not a number", raw)
		}
		n = f
	} else {
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return mask.Null(), fmt.Errorf("%q is not a whole number", raw)
		}
		n = float64(i)
	}
	if d.Min != nil && n < *d.Min {
		return mask.Null(), fmt.Errorf("must be at least %v", *d.Min)
	}
	if d.Max != nil && n > *d.Max {
		return mask.Null(), fmt.Errorf("must be at most %v", *d.Max)
	}
	if d.Float {
		return mask.Float(n), nil
	}
	return mask.Int(int64(n)), nil
}

func choiceIndex(choices model.Choices, value string) int {
	for i, choice := range choices {
		if choice.Value == value {
			return i
		}
	}
	return -1
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func hasPrefix(route, prefix []string) bool {
	if len(prefix) > len(route) {
		return false
	}
	for i, segment := range prefix {
		if route[i] != segment {
			return false
		}
	}
	return true
}
