package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionform/pkg/form"
	"github.com/goliatone/go-optionform/pkg/handler"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/option"
	"github.com/goliatone/go-optionform/pkg/store"
)

func newServer(t *testing.T, mem *store.Memory, opts ...handler.Option) (*httptest.Server, *form.Form) {
	t.Helper()
	tree := form.MustBuild(
		form.Section("general", "General",
			form.Item("title", option.New("", model.Descriptor{Default: mask.String("Docs")})),
			form.Item("limit", option.New("", model.Descriptor{Kind: model.KindNumber, Default: mask.Int(10)})),
		),
	)
	f, err := form.New("opts", tree, mem)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	srv := httptest.NewServer(handler.New(f, opts...))
	t.Cleanup(srv.Close)
	return srv, f
}

func read(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestRenderPage(t *testing.T) {
	srv, _ := newServer(t, store.NewMemory())
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, needle := range []string{`name="opts[general&gt;title]"`, `src="/assets/optionform.js"`, `action="/"`} {
		if !strings.Contains(body, needle) {
			t.Fatalf("page missing %q", needle)
		}
	}
}

func TestSubmitSavesAndRerenders(t *testing.T) {
	mem := store.NewMemory()
	srv, f := newServer(t, mem)
	values := url.Values{
		"_optionform_nonce":   {f.Nonce()},
		"opts[general>title]": {"Manual"},
		"opts[general>limit]": {"{~4~}7"},
	}
	resp, err := http.PostForm(srv.URL+"/", values)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Settings saved!") {
		t.Fatalf("status = %d body:\n%s", resp.StatusCode, body)
	}
	limit, _, _ := mem.Get(context.Background(), "opts_general>limit")
	if !limit.Equal(mask.Int(7)) {
		t.Fatalf("limit = %v", limit)
	}
}

func TestAjaxSubmitAnswersJSON(t *testing.T) {
	srv, f := newServer(t, store.NewMemory())
	post := func(nonce string) (*http.Response, handler.SubmitResponse) {
		values := url.Values{"_optionform_nonce": {nonce}, "opts[general>title]": {"Ajax"}}
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/", strings.NewReader(values.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		var out handler.SubmitResponse
		if err := json.Unmarshal([]byte(read(t, resp)), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp, out
	}

	resp, out := post(f.Nonce())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if diff := cmp.Diff([]string{"general>title"}, out.Saved); diff != "" {
		t.Fatalf("saved (-want +got):\n%s", diff)
	}

	resp, out = post("bogus")
	if resp.StatusCode != http.StatusForbidden || !out.Ignored {
		t.Fatalf("bad nonce: status %d, %+v", resp.StatusCode, out)
	}
}

func TestExportImportRoutes(t *testing.T) {
	srv, f := newServer(t, store.NewMemory())

	resp, _ := http.Get(srv.URL + "/export")
	read(t, resp)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("export without nonce: status %d", resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/export?" + url.Values{"_optionform_nonce": {f.Nonce()}}.Encode())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	blob := read(t, resp)
	if resp.StatusCode != http.StatusOK || blob == "" {
		t.Fatalf("export status %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "opts-settings.txt") {
		t.Fatalf("disposition = %q", resp.Header.Get("Content-Disposition"))
	}

	resp, err = http.PostForm(srv.URL+"/import", url.Values{
		"_optionform_nonce":  {f.Nonce()},
		"_optionform_import": {blob},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var out handler.SubmitResponse
	if err := json.Unmarshal([]byte(read(t, resp)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || out.Import == nil || len(out.Import.Skipped) != 0 {
		t.Fatalf("import: status %d, %+v", resp.StatusCode, out)
	}

	resp, _ = http.PostForm(srv.URL+"/import", url.Values{
		"_optionform_nonce":  {f.Nonce()},
		"_optionform_import": {"%%%"},
	})
	read(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad blob: status %d", resp.StatusCode)
	}
}

func TestValuesRoute(t *testing.T) {
	srv, _ := newServer(t, store.NewMemory())
	resp, err := http.Get(srv.URL + "/values")
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	body := read(t, resp)
	if strings.TrimSpace(body) != `{"general":{"title":"Docs","limit":10}}` {
		t.Fatalf("values = %s", body)
	}
}

func TestAssetsRoute(t *testing.T) {
	srv, _ := newServer(t, store.NewMemory())
	resp, err := http.Get(srv.URL + "/assets/optionform.js")
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	body := read(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "registerDependencyChangeListener") {
		t.Fatalf("asset status %d", resp.StatusCode)
	}
}

func TestInlineAssets(t *testing.T) {
	srv, _ := newServer(t, store.NewMemory(), handler.WithInlineAssets())
	resp, _ := http.Get(srv.URL + "/")
	body := read(t, resp)
	if strings.Contains(body, `src="/assets/optionform.js"`) || !strings.Contains(body, "objectKeyChange") {
		t.Fatalf("assets not inlined")
	}
}

func TestMountPath(t *testing.T) {
	srv, _ := newServer(t, store.NewMemory(), handler.WithMountPath("/settings/"))

	resp, err := http.Get(srv.URL + "/settings/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body := read(t, resp)
	for _, needle := range []string{`src="/settings/assets/optionform.js"`, `action="/settings/"`} {
		if !strings.Contains(body, needle) {
			t.Fatalf("page missing %q", needle)
		}
	}

	resp, _ = http.Get(srv.URL + "/settings/assets/optionform.css")
	read(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mounted asset status %d", resp.StatusCode)
	}

	resp, _ = http.Get(srv.URL + "/")
	read(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unmounted root status %d", resp.StatusCode)
	}
}
