package form

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/render/template"
)

//go:embed assets/* templates/*
var embedded embed.FS

// PageTemplate is the template name rendered around the outline.
const PageTemplate = "form"

// Assets returns the browser runtime: optionform.js and optionform.css.
func Assets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// Templates returns the default page templates.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func defaultEngine() (template.Renderer, error) {
	engine, err := template.NewEngine(Templates())
	if err != nil {
		return nil, fmt.Errorf("form: template engine: %w", err)
	}
	return engine, nil
}

// RenderContext tracks what one response has already emitted. Static
// assets are written by the first form rendered with a given context only.
type RenderContext struct {
	// AssetBase, when set, links assets from that URL prefix instead of
	// inlining them.
	AssetBase string
	// Action is the form's post URL. Empty posts back to the current page.
	Action string

	mu      sync.Mutex
	claimed map[string]bool
}

func NewRenderContext() *RenderContext {
	return &RenderContext{}
}

// Claim reports whether key has not been claimed before, and claims it.
func (rc *RenderContext) Claim(key string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.claimed == nil {
		rc.claimed = make(map[string]bool)
	}
	if rc.claimed[key] {
		return false
	}
	rc.claimed[key] = true
	return true
}

// Render writes the form page: assets, theme variables, head controls, the
// options outline, the nonce, and the import/export panel. res is the
// outcome of the request being answered, if any.
func (f *Form) Render(ctx context.Context, w io.Writer, rc *RenderContext, res Result, handleErr ...error) error {
	if rc == nil {
		rc = NewRenderContext()
	}
	outline, err := f.Outline(ctx)
	if err != nil {
		return err
	}
	assets, err := f.assets(rc)
	if err != nil {
		return err
	}
	themeCSS, err := f.themeCSS()
	if err != nil {
		return err
	}

	data := map[string]any{
		"ns":        f.builder.Namespace(),
		"nonce":     f.Nonce(),
		"outline":   outline,
		"assets":    assets,
		"theme_css": themeCSS,
		"fields": map[string]any{
			"nonce":    FieldNonce,
			"action":   FieldAction,
			"imported": FieldImport,
		},
		"form":   f.pageData(rc),
		"result": resultData(res, errors.Join(handleErr...)),
	}
	if _, err := f.engine.RenderTemplate(PageTemplate, data, w); err != nil {
		return fmt.Errorf("form: render %s: %w", f.slug, err)
	}
	return nil
}

func (f *Form) pageData(rc *RenderContext) map[string]any {
	label := f.submit.Label
	if label == "" {
		label = "Save changes"
	}
	return map[string]any{
		"slug":           f.slug,
		"title":          f.title,
		"description":    f.description,
		"action":         rc.Action,
		"auto_submit":    strconv.FormatBool(f.submit.Auto),
		"auto_submit_on": f.submit.Auto,
		"ajax_submit":    strconv.FormatBool(f.submit.Ajax),
		"submit_label":   label,
	}
}

func resultData(res Result, err error) map[string]any {
	out := map[string]any{
		"submitted": res.Submitted,
		"ignored":   res.Ignored,
		"message":   res.Message,
		"exported":  res.Export,
	}
	if err != nil {
		out["error"] = err.Error()
	}
	if res.Import != nil {
		skipped := make([]map[string]any, 0, len(res.Import.Skipped))
		for _, skip := range res.Import.Skipped {
			skipped = append(skipped, map[string]any{"name": skip.Name, "reason": skip.Reason})
		}
		out["imported"] = map[string]any{
			"applied":   strconv.Itoa(len(res.Import.Applied)),
			"unchanged": strconv.Itoa(len(res.Import.Unchanged)),
			"skipped":   skipped,
		}
	}
	return out
}

// Outline renders the nested list of sections and option fields.
func (f *Form) Outline(ctx context.Context) (string, error) {
	var b strings.Builder
	if err := f.outline(ctx, &b, f.tree.Root(), nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (f *Form) outline(ctx context.Context, b *strings.Builder, n *Node, route []string) error {
	var list markup.Attrs
	list.AddClass("optionform-nested-fields", f.slug+"-nested-fields")
	b.WriteString(markup.Open("ul", list))

	for _, child := range n.children {
		childRoute := append(append([]string(nil), route...), child.Key)
		path := strings.Join(childRoute, RouteSeparator)

		if child.IsLeaf() {
			html, err := child.Option.Field(ctx, f.builder)
			if err != nil {
				return fmt.Errorf("form: render %s: %w", child.Option.Name(), err)
			}
			var item markup.Attrs
			item.Set("route", path).AddClass("content", "leaf")
			section := markup.Element("div", markup.Attrs{{Name: "class", Value: "section"}}, html)
			b.WriteString(markup.Element("li", item, section))
			continue
		}

		var label markup.Attrs
		label.Set("route", path).Set("onclick", f.builder.Namespace()+".toggleLabel(this)").AddClass("label")
		b.WriteString(markup.Element("li", label, markup.Text(child.DisplayLabel())))

		var content markup.Attrs
		content.Set("route", path).AddClass("content")
		b.WriteString(markup.Open("li", content))
		if desc := child.Description.Text(); desc != "" {
			b.WriteString(markup.Element("div", markup.Attrs{{Name: "class", Value: "description"}}, markup.Sanitize(desc)))
		}
		if err := f.outline(ctx, b, child, childRoute); err != nil {
			return err
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return nil
}

func (f *Form) assets(rc *RenderContext) (string, error) {
	if !rc.Claim("optionform:assets") {
		return "", nil
	}
	ns := markup.Text(f.builder.Namespace())
	if rc.AssetBase != "" {
		base := strings.TrimRight(rc.AssetBase, "/")
		return fmt.Sprintf(`<link rel="stylesheet" href="%s/optionform.css"><script src="%s/optionform.js" data-namespace="%s"></script>`,
			markup.Text(base), markup.Text(base), ns), nil
	}
	css, err := fs.ReadFile(Assets(), "optionform.css")
	if err != nil {
		return "", fmt.Errorf("form: read assets: %w", err)
	}
	js, err := fs.ReadFile(Assets(), "optionform.js")
	if err != nil {
		return "", fmt.Errorf("form: read assets: %w", err)
	}
	return "<style>" + string(css) + `</style><script data-namespace="` + ns + `">` + string(js) + "</script>", nil
}

// themeCSS emits the selected theme's tokens as CSS custom properties,
// variant tokens overriding the base ones.
func (f *Form) themeCSS() (string, error) {
	if f.themes == nil {
		return "", nil
	}
	selection, err := f.themes.Select(f.themeName, f.themeVariant)
	if err != nil {
		return "", fmt.Errorf("form: select theme %q: %w", f.themeName, err)
	}
	if selection == nil || selection.Manifest == nil {
		return "", nil
	}
	tokens := make(map[string]string, len(selection.Manifest.Tokens))
	for key, value := range selection.Manifest.Tokens {
		tokens[key] = value
	}
	if variant, ok := selection.Manifest.Variants[selection.Variant]; ok {
		for key, value := range variant.Tokens {
			tokens[key] = value
		}
	}
	if len(tokens) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(tokens))
	for key := range tokens {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(".optionform {\n")
	for _, key := range keys {
		name := strings.TrimPrefix(strings.TrimSpace(key), "--")
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "--%s: %s;\n", name, tokens[key])
	}
	b.WriteString("}")
	return b.String(), nil
}
