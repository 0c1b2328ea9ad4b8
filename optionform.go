// Package optionform renders settings forms from a tree of option
// descriptors, saves submissions to a key/value store and moves values
// between installs with fingerprinted export blobs.
//
// The quickest path loads a YAML document and mounts the HTTP handler:
//
//	f, err := optionform.Load(ctx, "settings.yaml", store.NewMemory())
//	http.Handle("/settings/", optionform.Handler(f, handler.WithMountPath("/settings")))
package optionform

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/handler"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/openapi"
	"github.com/goliatone/go-optionform/pkg/option"
)

// Form aliases form.Form so callers can stay on the root package.
type Form = form.Form

// Result aliases form.Result.
type Result = form.Result

// ImportReport aliases form.ImportReport.
type ImportReport = form.ImportReport

// Load reads a YAML or JSON form document from path and binds it to store.
func Load(ctx context.Context, path string, store option.Store, opts ...form.Option) (*Form, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("optionform: read %s: %w", path, err)
	}
	doc, err := model.LoadDocument(data, path)
	if err != nil {
		return nil, err
	}
	return form.NewFromDocument(doc, store, opts...)
}

// LoadFS loads every form document in fsys, keyed by slug.
func LoadFS(fsys fs.FS, store option.Store, opts ...form.Option) (map[string]*Form, error) {
	docs, err := model.LoadFS(fsys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Form, len(docs))
	for _, doc := range docs {
		f, err := form.NewFromDocument(doc, store, opts...)
		if err != nil {
			return nil, fmt.Errorf("optionform: %s: %w", doc.Source, err)
		}
		out[doc.Slug] = f
	}
	return out, nil
}

// LoadOpenAPI builds a form from the component schema of an OpenAPI
// document.
func LoadOpenAPI(ctx context.Context, src openapi.Source, component string, store option.Store, opts ...form.Option) (*Form, error) {
	raw, err := openapi.NewLoader().Load(ctx, src)
	if err != nil {
		return nil, err
	}
	doc, err := raw.Form(ctx, component)
	if err != nil {
		return nil, err
	}
	return form.NewFromDocument(doc, store, opts...)
}

// Handler serves f over HTTP.
func Handler(f *Form, opts ...handler.Option) *handler.Handler {
	return handler.New(f, opts...)
}

// WithThemeSelector resolves design tokens for every form built with it.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) form.Option {
	return form.WithTheme(selector, name, variant)
}

// AssetsFS exposes the client script and stylesheet for serving from a
// custom route.
func AssetsFS() fs.FS {
	return form.Assets()
}

// TemplatesFS exposes the embedded page templates so callers can extend
// them with their own engine.
func TemplatesFS() fs.FS {
	return form.Templates()
}
