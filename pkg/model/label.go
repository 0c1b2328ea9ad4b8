package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-optionform/pkg/mask"
)

// LabelContext is handed to computed labels. Key and Value describe the item
// being rendered (empty and Null for prototypes); Index is -1 outside
// repeatable groups.
type LabelContext struct {
	Name  string
	Key   string
	Index int
	Value mask.Value
}

// Label is either a literal string or a function of the render context.
type Label struct {
	literal string
	compute func(LabelContext) string
}

// Literal returns a fixed label.
func Literal(text string) Label {
	return Label{literal: text}
}

// Computed returns a label resolved per render.
func Computed(fn func(LabelContext) string) Label {
	return Label{compute: fn}
}

func (l Label) IsZero() bool {
	return l.compute == nil && l.literal == ""
}

func (l Label) IsComputed() bool {
	return l.compute != nil
}

// Resolve returns the label text for ctx.
func (l Label) Resolve(ctx LabelContext) string {
	if l.compute != nil {
		return l.compute(ctx)
	}
	return l.literal
}

// Text returns the literal text, or the computed label resolved against an
// empty context.
func (l Label) Text() string {
	return l.Resolve(LabelContext{Index: -1})
}

// Or returns l unless it is zero, in which case fallback is used.
func (l Label) Or(fallback Label) Label {
	if l.IsZero() {
		return fallback
	}
	return l
}

func (l *Label) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("model: label at line %d must be a string", node.Line)
	}
	*l = Literal(node.Value)
	return nil
}

func (l Label) MarshalYAML() (any, error) {
	if l.compute != nil {
		return nil, nil
	}
	return l.literal, nil
}

// MarshalJSON emits the literal text. Computed labels encode like an empty
// literal so they never leak into fingerprints or exports.
func (l Label) MarshalJSON() ([]byte, error) {
	if l.compute != nil {
		return []byte(`""`), nil
	}
	return json.Marshal(l.literal)
}

// ToLabel derives a human label from a key: "some_key" becomes "Some key".
func ToLabel(key string) string {
	replaced := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(key))
	replaced = strings.Join(strings.Fields(replaced), " ")
	if replaced == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(replaced)
	return string(unicode.ToUpper(first)) + replaced[size:]
}

// IsNumericKey reports whether key is made only of digits. Numeric template
// keys never get a derived label.
func IsNumericKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
