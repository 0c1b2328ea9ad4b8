package mask_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-optionform/pkg/mask"
)

func TestSplitName(t *testing.T) {
	cases := []struct {
		in       string
		base     string
		segments []string
	}{
		{in: "plain", base: "plain"},
		{in: "a[b][c]", base: "a", segments: []string{"b", "c"}},
		{in: "a[][x]", base: "a", segments: []string{"", "x"}},
		{in: "a[b]trailing", base: "a", segments: []string{"b"}},
		{in: "a[unterminated", base: "a[unterminated"},
		{in: "[b]", base: "[b]"},
	}
	for _, tc := range cases {
		base, segments := mask.SplitName(tc.in)
		if base != tc.base {
			t.Errorf("SplitName(%q) base = %q, want %q", tc.in, base, tc.base)
		}
		if diff := cmp.Diff(tc.segments, segments); diff != "" {
			t.Errorf("SplitName(%q) segments (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseQueryKeepsOrder(t *testing.T) {
	pairs, err := mask.ParseQuery("b=2&a=1&b=3&c%5Bx%5D=hello+world&&=skip")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []mask.Pair{
		{Name: "b", Value: "2"},
		{Name: "a", Value: "1"},
		{Name: "b", Value: "3"},
		{Name: "c[x]", Value: "hello world"},
	}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePairsBooleanPresence(t *testing.T) {
	unchecked := []mask.Pair{{Name: "opt[flag]", Value: mask.MaskFalse}}
	value, ok := mask.DecodePairs(unchecked, "opt")
	if !ok {
		t.Fatalf("expected opt to be present")
	}
	got, _ := value.Lookup("flag")
	if diff := cmp.Diff(mask.Bool(false), got); diff != "" {
		t.Fatalf("unchecked flag (-want +got):\n%s", diff)
	}

	checked := append(unchecked, mask.Pair{Name: "opt[flag]", Value: mask.MaskTrue})
	value, _ = mask.DecodePairs(checked, "opt")
	got, _ = value.Lookup("flag")
	if diff := cmp.Diff(mask.Bool(true), got); diff != "" {
		t.Fatalf("checked flag (-want +got):\n%s", diff)
	}
}

func TestDecodePairsNumericHiddenCopyWins(t *testing.T) {
	pairs := []mask.Pair{
		{Name: "opt[count]", Value: "42"},
		{Name: "opt[count]", Value: mask.MaskInt + "42"},
	}
	value, _ := mask.DecodePairs(pairs, "opt")
	got, _ := value.Lookup("count")
	if diff := cmp.Diff(mask.Int(42), got); diff != "" {
		t.Fatalf("count (-want +got):\n%s", diff)
	}
}

func TestDecodePairsObjectKeyRename(t *testing.T) {
	pairs := []mask.Pair{
		{Name: "obj[" + mask.EncodeKey("x") + "][a]", Value: "1"},
	}
	value, ok := mask.DecodePairs(pairs, "obj")
	if !ok {
		t.Fatalf("expected obj")
	}
	want := mask.MapOf(mask.KV("x", mask.MapOf(mask.KV("a", mask.String("1")))))
	if diff := cmp.Diff(want, value); diff != "" {
		t.Fatalf("decoded object (-want +got):\n%s", diff)
	}
}

func TestDecodePairsEmptyFallbackReplacedByContainer(t *testing.T) {
	pairs := []mask.Pair{
		{Name: "opt[items]", Value: mask.MaskList},
		{Name: "opt[items][]", Value: "a"},
		{Name: "opt[items][]", Value: "b"},
		{Name: "opt[empty]", Value: mask.MaskList},
		{Name: "opt[nothing]", Value: mask.MaskNull},
	}
	value, _ := mask.DecodePairs(pairs, "opt")
	want := mask.MapOf(
		mask.KV("items", mask.List(mask.String("a"), mask.String("b"))),
		mask.KV("empty", mask.List()),
		mask.KV("nothing", mask.Null()),
	)
	if diff := cmp.Diff(want, value); diff != "" {
		t.Fatalf("decoded (-want +got):\n%s", diff)
	}
}

func TestDecodePairsGroupItemsWithGaps(t *testing.T) {
	pairs := []mask.Pair{
		{Name: "g[0][name]", Value: "first"},
		{Name: "g[2][name]", Value: "third"},
		{Name: "g[]", Value: "appended"},
	}
	value, _ := mask.DecodePairs(pairs, "g")
	want := mask.List(
		mask.MapOf(mask.KV("name", mask.String("first"))),
		mask.MapOf(mask.KV("name", mask.String("third"))),
		mask.String("appended"),
	)
	if diff := cmp.Diff(want, value); diff != "" {
		t.Fatalf("decoded (-want +got):\n%s", diff)
	}
}

func TestDecodePairsMissingRoot(t *testing.T) {
	if _, ok := mask.DecodePairs([]mask.Pair{{Name: "other", Value: "1"}}, "opt"); ok {
		t.Fatalf("expected opt to be absent")
	}
}

func TestDecodeAll(t *testing.T) {
	pairs := []mask.Pair{
		{Name: "z", Value: mask.MaskTrue},
		{Name: "a[k]", Value: mask.MaskFloat + "2.5"},
	}
	got := mask.DecodeAll(pairs)
	if diff := cmp.Diff([]string{"z", "a"}, got.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	a, _ := got.Get("a")
	want := mask.MapOf(mask.KV("k", mask.Float(2.5)))
	if diff := cmp.Diff(want, a); diff != "" {
		t.Fatalf("a (-want +got):\n%s", diff)
	}
}

func TestRequestPairsURLEncoded(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("opt%5Bb%5D=2&opt%5Ba%5D=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	pairs, err := mask.RequestPairs(req, 0)
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	want := []mask.Pair{{Name: "opt[b]", Value: "2"}, {Name: "opt[a]", Value: "1"}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
}

func TestRequestPairsMultipart(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("opt[x]", "one")
	file, _ := writer.CreateFormFile("upload", "blob.txt")
	_, _ = file.Write([]byte("ignored"))
	_ = writer.WriteField("opt[y]", "two")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	pairs, err := mask.RequestPairs(req, 1<<20)
	if err != nil {
		t.Fatalf("pairs: %v", err)
	}
	want := []mask.Pair{{Name: "opt[x]", Value: "one"}, {Name: "opt[y]", Value: "two"}}
	if diff := cmp.Diff(want, pairs); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
}
