package optionform_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	optionform "github.com/goliatone/go-optionform"
	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/store"
	"github.com/goliatone/go-optionform/pkg/testsupport"
)

const siteDoc = `
slug: site
title: Site
sections:
  - key: general
    options:
      - key: title
        default: Docs
      - key: debug
        type: bool
  - key: mail
    options:
      - key: sender
        depends_on:
          - option: debug
            value: true
`

func TestLoadSubmitAndExport(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte(siteDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mem := store.NewMemory()
	f, err := optionform.Load(ctx, path, mem)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := f.Handle(ctx, testsupport.Submission(f, form.ActionSave,
		"site[general>title]", "Handbook",
		"site[general>debug]", "{~2~}",
	))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if diff := testsupport.Diff([]string{"general>title", "general>debug"}, res.Saved); diff != "" {
		t.Fatalf("saved (-want +got):\n%s", diff)
	}
	testsupport.AssertValue(t, mem, "site_general>debug", mask.Bool(true))

	blob, err := f.Export(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	other := testsupport.MustForm(t, testsupport.MustDocument(t, siteDoc), store.NewMemory())
	report, err := other.Import(ctx, blob)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(report.Applied) != 2 || len(report.Unchanged) != 1 || len(report.Skipped) != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/site.yaml": {Data: []byte(siteDoc)},
		"forms/shop.yaml": {Data: []byte("slug: shop\nsections:\n  - key: general\n    options:\n      - key: currency\n")},
		"forms/notes.txt": {Data: []byte("ignored")},
	}
	forms, err := optionform.LoadFS(fsys, store.NewMemory())
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if len(forms) != 2 || forms["site"] == nil || forms["shop"] == nil {
		t.Fatalf("forms = %v", forms)
	}
}

func TestAssetsAndTemplates(t *testing.T) {
	if _, err := fs.ReadFile(optionform.AssetsFS(), "optionform.css"); err != nil {
		t.Fatalf("assets: %v", err)
	}
	page, err := fs.ReadFile(optionform.TemplatesFS(), "form.tmpl")
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	if !strings.Contains(string(page), "outline") {
		t.Fatalf("form template does not place the outline")
	}
}

func TestRenderedPageGatesDependentField(t *testing.T) {
	f := testsupport.MustForm(t, testsupport.MustDocument(t, siteDoc), store.NewMemory())
	page := testsupport.Render(t, f, optionform.Result{})
	if !strings.Contains(page, `name="site[mail&gt;sender]"`) {
		t.Fatalf("page missing sender field")
	}
	if !strings.Contains(page, "hidden") {
		t.Fatalf("sender should render hidden while debug is off")
	}
}
