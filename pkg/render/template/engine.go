package template

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	gotemplate "github.com/goliatone/go-template"
)

// Extension is appended to template names that carry none.
const Extension = ".tmpl"

// Renderer renders a named page template to out and returns the output.
type Renderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
}

var _ Renderer = (*gotemplate.Engine)(nil)

// NewEngine builds a go-template engine over files. opts are applied after
// the defaults, so callers can register functions, filters or globals.
func NewEngine(files fs.FS, opts ...gotemplate.Option) (*gotemplate.Engine, error) {
	if files == nil {
		return nil, errors.New("template: templates fs is nil")
	}
	all := append([]gotemplate.Option{
		gotemplate.WithFS(files),
		gotemplate.WithExtension(Extension),
	}, opts...)
	engine, err := gotemplate.NewRenderer(all...)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return engine, nil
}
