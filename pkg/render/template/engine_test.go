package template_test

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"

	gotemplate "github.com/goliatone/go-template"

	"github.com/goliatone/go-optionform/pkg/render/template"
)

func newEngine(t *testing.T, opts ...gotemplate.Option) *gotemplate.Engine {
	t.Helper()
	files := fstest.MapFS{
		"status.tmpl": {Data: []byte(`<span class="{{ state }}">{{ label|trim }}</span>`)},
		"report.tmpl": {Data: []byte(`{{ report.applied }}/{{ report.skipped|length }}`)},
		"greet.tmpl":  {Data: []byte(`{{ greet(name) }}`)},
	}
	engine, err := template.NewEngine(files, opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestRenderTemplateAppendsExtension(t *testing.T) {
	engine := newEngine(t)
	var buf bytes.Buffer
	got, err := engine.RenderTemplate("status", map[string]any{"state": "saved", "label": "  Saved "}, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<span class="saved">Saved</span>`
	if got != want || buf.String() != want {
		t.Fatalf("render = %q, writer = %q", got, buf.String())
	}
}

func TestRenderTemplateNestedMaps(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.RenderTemplate("report", map[string]any{
		"report": map[string]any{"applied": "2", "skipped": []any{"a", "b", "c"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "2/3" {
		t.Fatalf("render = %q", got)
	}
}

func TestNewEngineTemplateFuncs(t *testing.T) {
	engine := newEngine(t, gotemplate.WithTemplateFunc(map[string]any{
		"greet": func(name string) string { return "hello " + strings.ToUpper(name) },
	}))
	got, err := engine.RenderTemplate("greet", map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "hello ADA" {
		t.Fatalf("render = %q", got)
	}
}

func TestNewEngineRequiresFS(t *testing.T) {
	if _, err := template.NewEngine(nil); err == nil {
		t.Fatalf("expected error without templates")
	}
}

func TestRenderTemplateMissing(t *testing.T) {
	engine := newEngine(t)
	if _, err := engine.RenderTemplate("absent", nil); err == nil {
		t.Fatalf("expected error for a missing template")
	}
}
