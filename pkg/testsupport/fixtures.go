// Package testsupport holds fixtures shared by the option form tests.
package testsupport

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/option"
)

// MustDocument parses a YAML form document.
func MustDocument(t *testing.T, yaml string) model.Document {
	t.Helper()
	doc, err := model.LoadDocument([]byte(yaml), t.Name()+".yaml")
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// MustForm binds doc to store.
func MustForm(t *testing.T, doc model.Document, store option.Store, opts ...form.Option) *form.Form {
	t.Helper()
	f, err := form.NewFromDocument(doc, store, opts...)
	if err != nil {
		t.Fatalf("new form %s: %v", doc.Slug, err)
	}
	return f
}

// Render returns the page for f with a fresh render context.
func Render(t *testing.T, f *form.Form, res form.Result) string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Render(Context(), &buf, form.NewRenderContext(), res); err != nil {
		t.Fatalf("render %s: %v", f.Slug(), err)
	}
	return buf.String()
}

// Submission builds a signed request for f. fields alternate name and raw
// value, as a browser would post them.
func Submission(f *form.Form, action form.Action, fields ...string) form.Request {
	pairs := []mask.Pair{
		{Name: form.FieldNonce, Value: f.Nonce()},
		{Name: form.FieldAction, Value: string(action)},
	}
	for i := 0; i+1 < len(fields); i += 2 {
		pairs = append(pairs, mask.Pair{Name: fields[i], Value: fields[i+1]})
	}
	return form.Request{Pairs: pairs}
}

// AssertValue fails when the stored slot differs from want.
func AssertValue(t *testing.T, store option.Store, slot string, want mask.Value) {
	t.Helper()
	got, found, err := store.Get(Context(), slot)
	if err != nil {
		t.Fatalf("get %s: %v", slot, err)
	}
	if !found {
		t.Fatalf("slot %s not stored", slot)
	}
	if !got.Equal(want) {
		t.Fatalf("slot %s = %v, want %v", slot, got, want)
	}
}

// Diff compares values with go-cmp.
func Diff(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
