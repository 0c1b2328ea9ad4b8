package markup

import (
	"strings"
	"testing"
)

func TestAttrsRenderInOrder(t *testing.T) {
	var attrs Attrs
	attrs.Set("type", "text").Set("name", `a[b]`).Flag("disabled", true).Set("value", `"quoted" & <tag>`)
	attrs.Set("type", "hidden")

	got := Void("input", attrs)
	want := `<input type="hidden" name="a[b]" disabled value="&#34;quoted&#34; &amp; &lt;tag&gt;">`
	if got != want {
		t.Fatalf("unexpected markup\n got: %s\nwant: %s", got, want)
	}
}

func TestAddClassDeduplicates(t *testing.T) {
	var attrs Attrs
	attrs.AddClass("main group").AddClass("group hidden")
	if got, _ := attrs.Get("class"); got != "main group hidden" {
		t.Fatalf("class = %q", got)
	}
}

func TestFlagRemove(t *testing.T) {
	var attrs Attrs
	attrs.Flag("checked", true).Flag("checked", false)
	if strings.Contains(attrs.String(), "checked") {
		t.Fatalf("checked should have been removed: %s", attrs.String())
	}
}

func TestMergeAndData(t *testing.T) {
	var attrs Attrs
	attrs.AddClass("base")
	attrs.Merge(map[string]string{"placeholder": "x", "class": "extra"})
	attrs.Data(map[string]string{"b": "2", "a": "1"})
	want := ` class="base extra" placeholder="x" data-a="1" data-b="2"`
	if got := attrs.String(); got != want {
		t.Fatalf("attrs = %q, want %q", got, want)
	}
}

func TestName(t *testing.T) {
	if got := Name("a", "b", "c"); got != "a[b][c]" {
		t.Fatalf("Name = %q", got)
	}
	if got := Name("solo"); got != "solo" {
		t.Fatalf("Name = %q", got)
	}
}

func TestSanitizeStripsScripts(t *testing.T) {
	got := Sanitize(`<strong>Bold</strong><script>alert(1)</script> <a href="https://example.com">link</a>`)
	if strings.Contains(got, "script") {
		t.Fatalf("script survived: %s", got)
	}
	if !strings.Contains(got, "<strong>Bold</strong>") {
		t.Fatalf("inline formatting dropped: %s", got)
	}
	if !strings.Contains(got, "nofollow") {
		t.Fatalf("expected nofollow on links: %s", got)
	}
}

func TestPlainText(t *testing.T) {
	cases := map[string]string{
		`<b>Bold</b><script>alert(1)</script>`: "Bold",
		`Fish &amp; <i>chips</i>`:              "Fish & chips",
		`  plain  `:                            "plain",
		``:                                     "",
	}
	for in, want := range cases {
		if got := PlainText(in); got != want {
			t.Errorf("PlainText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupAddsClassWithoutMutatingInput(t *testing.T) {
	var attrs Attrs
	attrs.Set("level", "2")
	got := Group("<p>x</p>", attrs)
	want := `<div level="2" class="group"><p>x</p></div>`
	if got != want {
		t.Fatalf("Group = %s, want %s", got, want)
	}
	if _, ok := attrs.Get("class"); ok {
		t.Fatalf("input attrs were mutated")
	}
}
