package mask_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-optionform/pkg/mask"
)

func TestLooseComparison(t *testing.T) {
	cases := []struct {
		name string
		a, b mask.Value
		want bool
	}{
		{name: "string and int", a: mask.String("1"), b: mask.Int(1), want: true},
		{name: "bool and string", a: mask.Bool(true), b: mask.String("yes"), want: true},
		{name: "false and empty", a: mask.Bool(false), b: mask.String(""), want: true},
		{name: "null and zero", a: mask.Null(), b: mask.Int(0), want: true},
		{name: "null and empty string", a: mask.Null(), b: mask.String(""), want: true},
		{name: "different strings", a: mask.String("a"), b: mask.String("b"), want: false},
		{name: "int and float", a: mask.Int(2), b: mask.Float(2), want: true},
		{name: "different ints", a: mask.Int(2), b: mask.Int(3), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mask.Loose(tc.a, tc.b); got != tc.want {
				t.Fatalf("Loose(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestJSONPreservesOrderAndNumberKinds(t *testing.T) {
	raw := `{"z":1,"a":1.0,"m":[true,null,"s"],"o":{"k":2}}`
	var value mask.Value
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := mask.MapOf(
		mask.KV("z", mask.Int(1)),
		mask.KV("a", mask.Float(1)),
		mask.KV("m", mask.List(mask.Bool(true), mask.Null(), mask.String("s"))),
		mask.KV("o", mask.MapOf(mask.KV("k", mask.Int(2)))),
	)
	if diff := cmp.Diff(want, value); diff != "" {
		t.Fatalf("value (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("marshal = %s, want %s", out, raw)
	}
}

func TestYAMLKeepsMappingOrder(t *testing.T) {
	src := "b: 1\na: 2.5\nlist:\n  - x\n  - true\nnothing: null\n"
	var value mask.Value
	if err := yaml.Unmarshal([]byte(src), &value); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "list", "nothing"}, value.Map().Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	a, _ := value.Lookup("a")
	if diff := cmp.Diff(mask.Float(2.5), a); diff != "" {
		t.Fatalf("a (-want +got):\n%s", diff)
	}

	out, err := yaml.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again mask.Value
	if err := yaml.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if diff := cmp.Diff(value, again); diff != "" {
		t.Fatalf("yaml round trip (-want +got):\n%s", diff)
	}
}

func TestFromAnyAndBack(t *testing.T) {
	in := map[string]any{"b": []any{1, 2.5, "x"}, "a": nil}
	value := mask.FromAny(in)
	if diff := cmp.Diff([]string{"a", "b"}, value.Map().Keys()); diff != "" {
		t.Fatalf("keys should be sorted for plain maps (-want +got):\n%s", diff)
	}
	b, _ := value.Lookup("b")
	want := mask.List(mask.Int(1), mask.Float(2.5), mask.String("x"))
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("b (-want +got):\n%s", diff)
	}
}

func TestTruthyAndText(t *testing.T) {
	if mask.String("0").Truthy() {
		t.Fatalf("\"0\" must not be truthy")
	}
	if !mask.List(mask.Null()).Truthy() {
		t.Fatalf("non-empty list must be truthy")
	}
	if got := mask.Bool(true).Text(); got != "1" {
		t.Fatalf("true text = %q", got)
	}
	if got := mask.Float(0.5).Text(); got != "0.5" {
		t.Fatalf("float text = %q", got)
	}
}
