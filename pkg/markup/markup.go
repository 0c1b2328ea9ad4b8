package markup

import (
	"html"
	"sort"
	"strings"
)

// Attr is a single HTML attribute. Bare attributes render without a value
// (disabled, multiple, checked).
type Attr struct {
	Name  string
	Value string
	Bare  bool
}

// Attrs keeps attributes in the order they were first set.
type Attrs []Attr

// Set stores name=value, replacing an existing attribute in place.
func (a *Attrs) Set(name, value string) *Attrs {
	for idx := range *a {
		if (*a)[idx].Name == name {
			(*a)[idx].Value = value
			(*a)[idx].Bare = false
			return a
		}
	}
	*a = append(*a, Attr{Name: name, Value: value})
	return a
}

// SetIf stores name=value only when value is non-empty.
func (a *Attrs) SetIf(name, value string) *Attrs {
	if value == "" {
		return a
	}
	return a.Set(name, value)
}

// Flag adds a bare attribute when on is true and removes it otherwise.
func (a *Attrs) Flag(name string, on bool) *Attrs {
	if !on {
		a.Remove(name)
		return a
	}
	for idx := range *a {
		if (*a)[idx].Name == name {
			(*a)[idx] = Attr{Name: name, Bare: true}
			return a
		}
	}
	*a = append(*a, Attr{Name: name, Bare: true})
	return a
}

func (a *Attrs) Remove(name string) {
	out := (*a)[:0]
	for _, attr := range *a {
		if attr.Name != name {
			out = append(out, attr)
		}
	}
	*a = out
}

func (a Attrs) Get(name string) (string, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// AddClass appends classes to the class attribute, skipping duplicates.
func (a *Attrs) AddClass(classes ...string) *Attrs {
	current, _ := a.Get("class")
	fields := strings.Fields(current)
	for _, class := range classes {
		for _, part := range strings.Fields(class) {
			if !contains(fields, part) {
				fields = append(fields, part)
			}
		}
	}
	if len(fields) == 0 {
		return a
	}
	return a.Set("class", strings.Join(fields, " "))
}

// Merge copies extra onto a. Keys are applied in sorted order so output is
// stable for map-sourced attribute bags.
func (a *Attrs) Merge(extra map[string]string) *Attrs {
	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "class" {
			a.AddClass(extra[key])
			continue
		}
		a.Set(key, extra[key])
	}
	return a
}

// Data sets data-* attributes from a bag, sorted by key.
func (a *Attrs) Data(bag map[string]string) *Attrs {
	keys := make([]string, 0, len(bag))
	for key := range bag {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a.Set("data-"+key, bag[key])
	}
	return a
}

func (a Attrs) Clone() Attrs {
	out := make(Attrs, len(a))
	copy(out, a)
	return out
}

func (a Attrs) write(b *strings.Builder) {
	for _, attr := range a {
		b.WriteByte(' ')
		b.WriteString(attr.Name)
		if attr.Bare {
			continue
		}
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(attr.Value))
		b.WriteByte('"')
	}
}

func (a Attrs) String() string {
	var b strings.Builder
	a.write(&b)
	return b.String()
}

// Open renders an opening tag.
func Open(tag string, attrs Attrs) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(tag)
	attrs.write(&b)
	b.WriteByte('>')
	return b.String()
}

// Void renders a self-contained tag such as input.
func Void(tag string, attrs Attrs) string {
	return Open(tag, attrs)
}

// Element renders tag with raw inner markup. Callers escape text content.
func Element(tag string, attrs Attrs, inner string) string {
	var b strings.Builder
	b.Grow(len(inner) + 64)
	b.WriteString(Open(tag, attrs))
	b.WriteString(inner)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteByte('>')
	return b.String()
}

// Group wraps inner markup in a div carrying the group class.
func Group(inner string, attrs Attrs) string {
	attrs = attrs.Clone()
	attrs.AddClass("group")
	return Element("div", attrs, inner)
}

// Text escapes s for use as element content.
func Text(s string) string {
	return html.EscapeString(s)
}

// Script wraps a JavaScript snippet in a script element.
func Script(body string) string {
	return "<script>" + body + "</script>"
}

// Name composes a bracket name: Name("a", "b", "c") == "a[b][c]".
func Name(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, segment := range segments {
		b.WriteByte('[')
		b.WriteString(segment)
		b.WriteByte(']')
	}
	return b.String()
}

func contains(list []string, needle string) bool {
	for _, item := range list {
		if item == needle {
			return true
		}
	}
	return false
}
