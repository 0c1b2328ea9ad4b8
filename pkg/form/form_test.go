package form_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/option"
	"github.com/goliatone/go-optionform/pkg/store"
)

func fixtureTree() *form.Tree {
	return form.MustBuild(
		form.Section("general", "General",
			form.Item("title", option.New("", model.Descriptor{Label: model.Literal("Title"), Default: mask.String("Docs")})),
			form.Item("limit", option.New("", model.Descriptor{Kind: model.KindNumber, Default: mask.Int(10)})),
			form.Item("debug", option.New("", model.Descriptor{Kind: model.KindBool})),
		),
		form.Section("advanced", "Advanced",
			form.Section("cache", "",
				form.Item("ttl", option.New("", model.Descriptor{
					Kind:      model.KindNumber,
					DependsOn: []model.Dependency{{Ref: "debug", Expect: mask.Bool(true)}},
				})),
			),
		),
	)
}

func newForm(t *testing.T, mem *store.Memory, opts ...form.Option) *form.Form {
	t.Helper()
	f, err := form.New("opts", fixtureTree(), mem, opts...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return f
}

func submission(f *form.Form, pairs ...mask.Pair) form.Request {
	return form.Request{Pairs: append([]mask.Pair{{Name: form.FieldNonce, Value: f.Nonce()}}, pairs...)}
}

func TestNewBindsRoutes(t *testing.T) {
	f := newForm(t, store.NewMemory())
	var names []string
	for _, opt := range f.Options() {
		names = append(names, opt.Name())
		if opt.Parent() != "opts" {
			t.Fatalf("%s parent = %q", opt.Name(), opt.Parent())
		}
		if opt.State() != option.StateBound {
			t.Fatalf("%s state = %s", opt.Name(), opt.State())
		}
	}
	want := []string{"general>title", "general>limit", "general>debug", "advanced>cache>ttl"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	ttl, _ := f.Lookup("advanced>cache>ttl")
	if ttl.FieldName() != "opts[advanced>cache>ttl]" {
		t.Fatalf("field name = %s", ttl.FieldName())
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := form.New(" ", nil, store.NewMemory()); !errors.Is(err, form.ErrNoSlug) {
		t.Fatalf("expected ErrNoSlug, got %v", err)
	}
	if _, err := form.New("opts", nil, nil); !errors.Is(err, form.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestTreeConflicts(t *testing.T) {
	tree := form.NewTree()
	opt := option.New("", model.Descriptor{})
	if err := tree.Insert([]string{"a", "b"}, opt); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tree.Insert([]string{"a", "b"}, option.New("", model.Descriptor{})); !errors.Is(err, form.ErrRouteConflict) {
		t.Fatalf("expected conflict on duplicate leaf, got %v", err)
	}
	if _, err := tree.Section("a", "b", "c"); !errors.Is(err, form.ErrRouteConflict) {
		t.Fatalf("expected conflict on section below leaf, got %v", err)
	}
	if _, err := form.Build(form.Item("", opt)); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestWalkSkipSection(t *testing.T) {
	var visited []string
	err := fixtureTree().Walk(func(route []string, n *form.Node) error {
		visited = append(visited, strings.Join(route, form.RouteSeparator))
		if n.Key == "advanced" {
			return form.SkipSection
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	want := []string{"general", "general>title", "general>limit", "general>debug", "advanced"}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Fatalf("visited (-want +got):\n%s", diff)
	}
}

func TestHandleSavesKnownOptions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	var (
		hooked []string
		events []cloudevents.Event
	)
	f := newForm(t, mem,
		form.WithAfterSave(func(_ context.Context, _ *form.Form, res form.Result) error {
			hooked = append(hooked, res.Saved...)
			return nil
		}),
		form.WithEventEmitter(form.EventEmitterFunc(func(_ context.Context, e cloudevents.Event) error {
			events = append(events, e)
			return nil
		})),
	)

	res, err := f.Handle(ctx, submission(f,
		mask.Pair{Name: "opts[general>title]", Value: "Handbook"},
		mask.Pair{Name: "opts[general>limit]", Value: "{~4~}25"},
		mask.Pair{Name: "opts[general>debug]", Value: mask.MaskFalse},
		mask.Pair{Name: "opts[general>debug]", Value: mask.MaskTrue},
		mask.Pair{Name: "opts[unknown]", Value: "x"},
	))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !res.Submitted || res.Ignored || res.Message != form.SavedMessage {
		t.Fatalf("unexpected result: %+v", res)
	}
	wantSaved := []string{"general>title", "general>limit", "general>debug"}
	if diff := cmp.Diff(wantSaved, res.Saved); diff != "" {
		t.Fatalf("saved (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantSaved, hooked); diff != "" {
		t.Fatalf("after save (-want +got):\n%s", diff)
	}

	limit, _, _ := mem.Get(ctx, "opts_general>limit")
	if !limit.Equal(mask.Int(25)) {
		t.Fatalf("stored limit = %v", limit)
	}
	debug, _, _ := mem.Get(ctx, "opts_general>debug")
	if !debug.Equal(mask.Bool(true)) {
		t.Fatalf("stored debug = %v", debug)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Type() != form.EventSettingsSaved || events[0].Subject() != "opts" {
		t.Fatalf("event = %s/%s", events[0].Type(), events[0].Subject())
	}
	var payload map[string]any
	if err := events[0].DataAs(&payload); err != nil {
		t.Fatalf("event data: %v", err)
	}
	values, _ := payload["values"].(map[string]any)
	if values["general>title"] != "Handbook" {
		t.Fatalf("event values = %v", payload["values"])
	}

	again, err := f.Handle(ctx, submission(f, mask.Pair{Name: "opts[general>title]", Value: "Handbook"}))
	if err != nil || again.Changed() || again.Message != "" {
		t.Fatalf("unchanged resubmission reported a save: %+v %v", again, err)
	}
	if len(events) != 1 {
		t.Fatalf("unchanged submission emitted an event")
	}
}

func TestHandleIgnoresBadNonce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := func() time.Time { return now }
	f := newForm(t, mem, form.WithClock(clock), form.WithSecret([]byte("k")), form.WithNonceTTL(time.Hour))
	other, _ := form.New("other", fixtureTree(), mem, form.WithClock(clock), form.WithSecret([]byte("k")))

	issued := f.Nonce()
	cases := map[string]string{
		"missing":    "",
		"garbage":    "abc",
		"forged":     strings.SplitN(issued, ".", 2)[0] + ".AAAA",
		"other form": other.Nonce(),
	}
	for name, nonce := range cases {
		t.Run(name, func(t *testing.T) {
			req := form.Request{Pairs: []mask.Pair{
				{Name: form.FieldNonce, Value: nonce},
				{Name: "opts[general>title]", Value: "Hacked"},
			}}
			res, err := f.Handle(ctx, req)
			if err != nil || !res.Ignored || res.Changed() {
				t.Fatalf("expected ignored submission: %+v %v", res, err)
			}
		})
	}
	if _, found, _ := mem.Get(ctx, "opts_general>title"); found {
		t.Fatalf("ignored submission was written")
	}

	if !f.VerifyNonce(issued) {
		t.Fatalf("fresh nonce rejected")
	}
	now = now.Add(2 * time.Hour)
	if f.VerifyNonce(issued) {
		t.Fatalf("expired nonce accepted")
	}
}

func TestHandleEmptyRequest(t *testing.T) {
	res, err := newForm(t, store.NewMemory()).Handle(context.Background(), form.Request{})
	if err != nil || res.Submitted {
		t.Fatalf("empty request: %+v %v", res, err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newForm(t, store.NewMemory())
	for name, value := range map[string]mask.Value{
		"general>title": mask.String("Guide"),
		"general>limit": mask.Int(3),
	} {
		opt, _ := source.Lookup(name)
		if _, err := opt.SetValue(ctx, value); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	blob, err := source.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	target := newForm(t, store.NewMemory())
	report, err := target.Import(ctx, blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Skipped) != 0 {
		t.Fatalf("skipped: %+v", report.Skipped)
	}
	want, _ := source.Expand(ctx)
	got, _ := target.Expand(ctx)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}

	again, err := target.Import(ctx, blob)
	if err != nil || len(again.Applied) != 0 || len(again.Unchanged) != 4 {
		t.Fatalf("second import not idempotent: %+v %v", again, err)
	}
	reexported, _ := target.Export(ctx)
	if reexported != blob {
		t.Fatalf("export after import differs")
	}
}

func TestImportSkipsChangedAndUnknown(t *testing.T) {
	ctx := context.Background()
	source := newForm(t, store.NewMemory())
	blob, _ := source.Export(ctx)

	changed := form.MustBuild(
		form.Section("general", "General",
			form.Item("title", option.New("", model.Descriptor{Kind: model.KindNumber})),
		),
	)
	target, err := form.New("opts", changed, store.NewMemory())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	report, err := target.Import(ctx, blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	want := []form.Skip{
		{Name: "general>title", Reason: form.SkipChanged},
		{Name: "general>limit", Reason: form.SkipUnknown},
		{Name: "general>debug", Reason: form.SkipUnknown},
		{Name: "advanced>cache>ttl", Reason: form.SkipUnknown},
	}
	if diff := cmp.Diff(want, report.Skipped); diff != "" {
		t.Fatalf("skipped (-want +got):\n%s", diff)
	}

	if _, err := target.Import(ctx, "not base64!"); !errors.Is(err, form.ErrBadBlob) {
		t.Fatalf("expected ErrBadBlob, got %v", err)
	}
	list := base64.StdEncoding.EncodeToString([]byte(`[1,2]`))
	if _, err := target.Import(ctx, list); !errors.Is(err, form.ErrBadBlob) {
		t.Fatalf("expected ErrBadBlob for a list, got %v", err)
	}
}

func TestHandleExportAndImportActions(t *testing.T) {
	ctx := context.Background()
	f := newForm(t, store.NewMemory())
	res, err := f.Handle(ctx, submission(f, mask.Pair{Name: form.FieldAction, Value: "export"}))
	if err != nil || res.Action != form.ActionExport || res.Export == "" {
		t.Fatalf("export action: %+v %v", res, err)
	}

	other := newForm(t, store.NewMemory())
	opt, _ := other.Lookup("general>title")
	opt.SetValue(ctx, mask.String("Imported"))
	blob, _ := other.Export(ctx)

	res, err = f.Handle(ctx, submission(f,
		mask.Pair{Name: form.FieldAction, Value: "import"},
		mask.Pair{Name: form.FieldImport, Value: blob},
	))
	if err != nil || res.Import == nil {
		t.Fatalf("import action: %+v %v", res, err)
	}
	if diff := cmp.Diff([]string{"general>title"}, res.Saved); diff != "" {
		t.Fatalf("saved (-want +got):\n%s", diff)
	}
}

func TestImportOwnExportWritesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	hooks := 0
	f := newForm(t, mem, form.WithAfterSave(func(context.Context, *form.Form, form.Result) error {
		hooks++
		return nil
	}))
	blob, err := f.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	res, err := f.Handle(ctx, submission(f,
		mask.Pair{Name: form.FieldAction, Value: "import"},
		mask.Pair{Name: form.FieldImport, Value: blob},
	))
	if err != nil {
		t.Fatalf("import action: %v", err)
	}
	if len(res.Saved) != 0 || len(res.Import.Applied) != 0 {
		t.Fatalf("import of own export saved %v", res.Saved)
	}
	want := []string{"general>title", "general>limit", "general>debug", "advanced>cache>ttl"}
	if diff := cmp.Diff(want, res.Import.Unchanged); diff != "" {
		t.Fatalf("unchanged (-want +got):\n%s", diff)
	}
	if hooks != 0 || res.Message != "" {
		t.Fatalf("after-save ran %d times, message %q", hooks, res.Message)
	}
	if names := mem.Names(); len(names) != 0 {
		t.Fatalf("store written: %v", names)
	}
}

func TestRenderImportReport(t *testing.T) {
	ctx := context.Background()
	f := newForm(t, store.NewMemory())
	res := form.Result{
		Submitted: true,
		Action:    form.ActionImport,
		Export:    "ZXhwb3J0",
		Import: &form.ImportReport{
			Applied:   []string{"general>title", "general>limit"},
			Unchanged: []string{"general>debug"},
			Skipped:   []form.Skip{{Name: "gone", Reason: form.SkipUnknown}},
		},
	}
	var buf bytes.Buffer
	if err := f.Render(ctx, &buf, form.NewRenderContext(), res); err != nil {
		t.Fatalf("render: %v", err)
	}
	page := buf.String()
	for _, needle := range []string{
		`<details class="transfer" open>`,
		`>ZXhwb3J0</textarea>`,
		`Applied 2, unchanged 1, skipped 1.`,
		`<li>gone: unknown option</li>`,
		`name="` + form.FieldImport + `"`,
	} {
		if !strings.Contains(page, needle) {
			t.Fatalf("page missing %q", needle)
		}
	}
}

func TestExpandNestsByRoute(t *testing.T) {
	got, err := newForm(t, store.NewMemory()).Expand(context.Background())
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := mask.MapOf(
		mask.KV("general", mask.MapOf(
			mask.KV("title", mask.String("Docs")),
			mask.KV("limit", mask.Int(10)),
			mask.KV("debug", mask.Null()),
		)),
		mask.KV("advanced", mask.MapOf(
			mask.KV("cache", mask.MapOf(mask.KV("ttl", mask.Null()))),
		)),
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expand (-want +got):\n%s", diff)
	}
}

func TestDependencyResolvesByLastSegment(t *testing.T) {
	ctx := context.Background()
	f := newForm(t, store.NewMemory())
	html, err := f.Outline(ctx)
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	want := `registerDependencyChangeListener("opts-advanced-cache-ttl", "opts-general-debug", "{~2~}")`
	if !strings.Contains(html, want) {
		t.Fatalf("dependency not resolved:\n%s", html)
	}
}

func TestRenderPage(t *testing.T) {
	ctx := context.Background()
	f := newForm(t, store.NewMemory(), form.WithTitle("Options", ""), form.WithSubmit(model.Submit{Ajax: true}))
	rc := form.NewRenderContext()

	var first, second bytes.Buffer
	if err := f.Render(ctx, &first, rc, form.Result{Submitted: true, Message: form.SavedMessage}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := f.Render(ctx, &second, rc, form.Result{}); err != nil {
		t.Fatalf("render again: %v", err)
	}

	page := first.String()
	for _, needle := range []string{
		`<ul class="optionform-nested-fields opts-nested-fields">`,
		`class="label">General</li>`,
		`<div class="section">`,
		`name="opts[general&gt;title]"`,
		`name="_optionform_nonce"`,
		`data-ajax_submit="true"`,
		`data-auto_submit="false"`,
		`Settings saved!`,
		`Save changes`,
	} {
		if !strings.Contains(page, needle) {
			t.Fatalf("page missing %q", needle)
		}
	}
	if !strings.Contains(page, "data-namespace=") {
		t.Fatalf("first render should carry the assets")
	}
	if strings.Contains(second.String(), "data-namespace=") {
		t.Fatalf("assets emitted twice for one render context")
	}
	if opt, _ := f.Lookup("general>title"); opt.State() != option.StateMaterialized {
		t.Fatalf("rendered option state = %s", opt.State())
	}
}

func TestRenderLinksAssets(t *testing.T) {
	var buf bytes.Buffer
	rc := &form.RenderContext{AssetBase: "/static/"}
	if err := newForm(t, store.NewMemory()).Render(context.Background(), &buf, rc, form.Result{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), `<script src="/static/optionform.js" data-namespace="optionform">`) {
		t.Fatalf("assets not linked:\n%s", buf.String())
	}
}

type stubThemeSelector struct {
	selection *theme.Selection
	calls     [][2]string
}

func (s *stubThemeSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, [2]string{name, variant})
	return s.selection, nil
}

func TestRenderThemeTokens(t *testing.T) {
	selector := &stubThemeSelector{selection: &theme.Selection{
		Theme:   "acme",
		Variant: "dark",
		Manifest: &theme.Manifest{
			Name:   "acme",
			Tokens: map[string]string{"brand": "#123456", "surface": "#fff"},
			Variants: map[string]theme.Variant{
				"dark": {Tokens: map[string]string{"surface": "#000"}},
			},
		},
	}}
	f := newForm(t, store.NewMemory(), form.WithTheme(selector, "acme", "dark"))
	var buf bytes.Buffer
	if err := f.Render(context.Background(), &buf, nil, form.Result{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "--brand: #123456;\n--surface: #000;") {
		t.Fatalf("theme tokens missing:\n%s", buf.String())
	}
	if diff := cmp.Diff([][2]string{{"acme", "dark"}}, selector.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
}

const shopDocument = `
slug: shop
title: Shop
layout:
  serialize: true
  single_option: true
submit:
  auto: true
sections:
  - key: general
    label: General
    options:
      - key: enabled
        type: bool
        default: true
      - key: per_page
        type: number
        default: 20
        depends_on:
          - option: general.enabled
            value: true
`

func TestNewFromDocument(t *testing.T) {
	ctx := context.Background()
	doc, err := model.LoadDocument([]byte(shopDocument), "shop.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	mem := store.NewMemory()
	f, err := form.NewFromDocument(doc, mem)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if f.Slug() != "shop" || f.Title() != "Shop" {
		t.Fatalf("form = %s/%s", f.Slug(), f.Title())
	}
	res, err := f.Handle(ctx, submission(f, mask.Pair{Name: "shop[general>per_page]", Value: "{~4~}50"}))
	if err != nil || !res.Changed() {
		t.Fatalf("handle: %+v %v", res, err)
	}
	raw, _, _ := mem.Get(ctx, "shop")
	want := mask.List(mask.MapOf(mask.KV("general>per_page", mask.Int(50))))
	if diff := cmp.Diff(want, raw); diff != "" {
		t.Fatalf("slot (-want +got):\n%s", diff)
	}

	html, _ := f.Outline(ctx)
	if !strings.Contains(html, `"shop-general-per_page", "shop-general-enabled"`) {
		t.Fatalf("dotted reference not resolved:\n%s", html)
	}
}
