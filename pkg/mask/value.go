package mask

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind enumerates the shapes a Value can take.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the typed union carried through descriptors, stores and decoded
// submissions. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	m    *Map
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List builds a list value. List() is the empty list, which is distinct from
// Null.
func List(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindList, list: out}
}

// FromMap wraps an ordered map. A nil map yields an empty map value.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Entry is a single key/value pair used to build maps inline.
type Entry struct {
	Key   string
	Value Value
}

// KV is shorthand for an Entry literal.
func KV(key string, value Value) Entry {
	return Entry{Key: key, Value: value}
}

// MapOf builds a map value preserving the order of entries.
func MapOf(entries ...Entry) Value {
	m := NewMap()
	for _, entry := range entries {
		m.Set(entry.Key, entry.Value)
	}
	return FromMap(m)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is null, an empty string, or an empty
// list/map.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindList:
		return len(v.list) == 0
	case KindMap:
		return v.m.Len() == 0
	default:
		return false
	}
}

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }

func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Items returns a copy of the list items, or nil for non-list values.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	out := make([]Value, len(v.list))
	copy(out, v.list)
	return out
}

// Map returns the underlying map, or nil for non-map values.
func (v Value) Map() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.m
}

// Len returns the number of items of a list or map and zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return v.m.Len()
	default:
		return 0
	}
}

// Index returns the list item at i, or the map entry keyed by the decimal
// representation of i.
func (v Value) Index(i int) (Value, bool) {
	switch v.kind {
	case KindList:
		if i < 0 || i >= len(v.list) {
			return Value{}, false
		}
		return v.list[i], true
	case KindMap:
		return v.m.Get(strconv.Itoa(i))
	default:
		return Value{}, false
	}
}

// Lookup returns the child keyed by key. Lists accept decimal indexes.
func (v Value) Lookup(key string) (Value, bool) {
	switch v.kind {
	case KindMap:
		return v.m.Get(key)
	case KindList:
		idx, err := strconv.Atoi(key)
		if err != nil {
			return Value{}, false
		}
		return v.Index(idx)
	default:
		return Value{}, false
	}
}

// Entries flattens lists and maps into ordered key/value pairs. List items
// are keyed by their index.
func (v Value) Entries() []Entry {
	switch v.kind {
	case KindList:
		out := make([]Entry, 0, len(v.list))
		for idx, item := range v.list {
			out = append(out, Entry{Key: strconv.Itoa(idx), Value: item})
		}
		return out
	case KindMap:
		out := make([]Entry, 0, v.m.Len())
		v.m.Range(func(key string, value Value) bool {
			out = append(out, Entry{Key: key, Value: value})
			return true
		})
		return out
	default:
		return nil
	}
}

// Truthy mirrors the loose truthiness form controls rely on: null, false,
// zero, "", "0" and empty containers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != "" && v.s != "0"
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return v.m.Len() > 0
	default:
		return false
	}
}

// Text renders scalars the way they appear inside an HTML value attribute.
// Containers render as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "1"
		}
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt, KindFloat:
		return v.Text()
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			parts = append(parts, item.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		parts := make([]string, 0, v.m.Len())
		v.m.Range(func(key string, value Value) bool {
			parts = append(parts, strconv.Quote(key)+": "+value.String())
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return v.kind.String()
	}
}

// Equal reports deep, type-exact equality. Map comparison ignores key order.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f || (math.IsNaN(v.f) && math.IsNaN(other.f))
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for idx := range v.list {
			if !v.list[idx].Equal(other.list[idx]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	default:
		return false
	}
}

// Loose compares two values the way a form comparing a stored option against
// an expected literal would: numbers compare numerically across int/float and
// numeric strings, booleans compare by truthiness, and null equals any empty
// scalar. Containers fall back to Equal.
func Loose(a, b Value) bool {
	if a.Equal(b) {
		return true
	}
	if a.kind == KindList || a.kind == KindMap || b.kind == KindList || b.kind == KindMap {
		if a.IsNull() || b.IsNull() {
			return a.Len() == 0 && b.Len() == 0
		}
		return false
	}
	if a.kind == KindBool || b.kind == KindBool {
		return a.Truthy() == b.Truthy()
	}
	if a.IsNull() || b.IsNull() {
		other := b
		if b.IsNull() {
			other = a
		}
		switch other.kind {
		case KindInt, KindFloat:
			n, _ := numeric(other)
			return n == 0
		case KindString:
			return other.s == ""
		default:
			return false
		}
	}
	an, aok := numeric(a)
	bn, bok := numeric(b)
	if aok && bok {
		return an == bn
	}
	return a.Text() == b.Text()
}

func numeric(v Value) (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FromAny converts plain Go values (as produced by encoding/json, yaml.v3 or
// literals) into a Value. Unordered maps are sorted by key.
func FromAny(in any) Value {
	switch v := in.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case *Value:
		if v == nil {
			return Null()
		}
		return *v
	case *Map:
		return FromMap(v.Clone())
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Int(int64(v))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		return Int(int64(v))
	case float32:
		return Float(float64(v))
	case float64:
		return Float(v)
	case string:
		return String(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		if f, err := v.Float64(); err == nil {
			return Float(f)
		}
		return String(v.String())
	case fmt.Stringer:
		return String(v.String())
	case []Value:
		return List(v...)
	case []any:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, FromAny(item))
		}
		return List(items...)
	case []string:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, String(item))
		}
		return List(items...)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, key := range keys {
			m.Set(key, FromAny(v[key]))
		}
		return FromMap(m)
	case map[string]string:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, key := range keys {
			m.Set(key, String(v[key]))
		}
		return FromMap(m)
	default:
		return String(fmt.Sprint(v))
	}
}

// Any converts the value back into plain Go values: nil, bool, int64,
// float64, string, []any or map[string]any.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.Any())
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		v.m.Range(func(key string, value Value) bool {
			out[key] = value.Any()
			return true
		})
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, 0, len(v.list))
		for _, item := range v.list {
			items = append(items, item.Clone())
		}
		return Value{kind: KindList, list: items}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	default:
		return v
	}
}

// Map is a string-keyed map that remembers insertion order.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores value under key. Existing keys keep their position.
func (m *Map) Set(key string, value Value) {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	value, ok := m.values[key]
	return value, ok
}

func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for idx, existing := range m.keys {
		if existing == key {
			m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
			break
		}
	}
}

func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range visits entries in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, value Value) bool) {
	if m == nil {
		return
	}
	for _, key := range m.keys {
		if !fn(key, m.values[key]) {
			return
		}
	}
}

func (m *Map) Clone() *Map {
	out := NewMap()
	m.Range(func(key string, value Value) bool {
		out.Set(key, value.Clone())
		return true
	})
	return out
}

// Equal compares two maps ignoring insertion order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	equal := true
	m.Range(func(key string, value Value) bool {
		theirs, ok := other.Get(key)
		if !ok || !value.Equal(theirs) {
			equal = false
			return false
		}
		return true
	})
	return equal
}
