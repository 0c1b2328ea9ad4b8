package mask

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Pair is one submitted name/value in wire order.
type Pair struct {
	Name  string
	Value string
}

// ParseQuery splits an application/x-www-form-urlencoded payload keeping the
// order fields were submitted in. url.ParseQuery drops that order, and the
// last duplicate of a bracket name has to win.
func ParseQuery(raw string) ([]Pair, error) {
	var (
		pairs    []Pair
		firstErr error
	)
	for raw != "" {
		var chunk string
		chunk, raw, _ = strings.Cut(raw, "&")
		if chunk == "" {
			continue
		}
		name, value, _ := strings.Cut(chunk, "=")
		name, err := url.QueryUnescape(name)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("mask: unescape field name: %w", err)
			}
			continue
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("mask: unescape value of %q: %w", name, err)
			}
			continue
		}
		if name == "" {
			continue
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}
	return pairs, firstErr
}

// RequestPairs collects the ordered form pairs of r. URL-encoded and
// multipart bodies are read from the body; other requests fall back to the
// URL query. File parts are skipped.
func RequestPairs(r *http.Request, maxMemory int64) ([]Pair, error) {
	if r == nil {
		return nil, errors.New("mask: nil request")
	}
	if maxMemory <= 0 {
		maxMemory = 10 << 20
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Body == nil {
		return ParseQuery(r.URL.RawQuery)
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		body, err := io.ReadAll(io.LimitReader(r.Body, maxMemory+1))
		if err != nil {
			return nil, fmt.Errorf("mask: read form body: %w", err)
		}
		if int64(len(body)) > maxMemory {
			return nil, errors.New("mask: form body too large")
		}
		return ParseQuery(string(body))
	case "multipart/form-data":
		return multipartPairs(r, maxMemory)
	default:
		return ParseQuery(r.URL.RawQuery)
	}
}

func multipartPairs(r *http.Request, maxMemory int64) ([]Pair, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("mask: open multipart body: %w", err)
	}
	var (
		pairs []Pair
		read  int64
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return pairs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("mask: read multipart part: %w", err)
		}
		name := part.FormName()
		if name == "" || part.FileName() != "" {
			part.Close()
			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, maxMemory-read+1))
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("mask: read multipart value %q: %w", name, err)
		}
		read += int64(len(value))
		if read > maxMemory {
			return nil, errors.New("mask: multipart body too large")
		}
		pairs = append(pairs, Pair{Name: name, Value: string(value)})
	}
}

// SplitName breaks a bracket name such as "opt[a][][b]" into its base and
// segments. Anything after the last closing bracket is ignored; a name with
// an unterminated bracket is returned whole as the base.
func SplitName(name string) (string, []string) {
	open := strings.IndexByte(name, '[')
	if open <= 0 {
		return name, nil
	}
	if !strings.Contains(name[open:], "]") {
		return name, nil
	}
	base := name[:open]
	var segments []string
	rest := name[open:]
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		segments = append(segments, rest[1:end])
		rest = rest[end+1:]
	}
	return base, segments
}

// DecodePairs rebuilds the structured value submitted under root. The bool
// is false when no pair targets root.
func DecodePairs(pairs []Pair, root string) (Value, bool) {
	tree := newSubmitNode()
	found := false
	for _, pair := range pairs {
		base, segments := SplitName(pair.Name)
		if base != root {
			continue
		}
		found = true
		tree.insert(append([]string{""}, segments...), pair.Value, true)
	}
	if !found {
		return Null(), false
	}
	key := tree.keys[len(tree.keys)-1]
	return tree.children[key].value(), true
}

// DecodeAll rebuilds every root present in pairs, in first-seen order.
func DecodeAll(pairs []Pair) *Map {
	tree := newSubmitNode()
	for _, pair := range pairs {
		base, segments := SplitName(pair.Name)
		if base == "" {
			continue
		}
		tree.insert(append([]string{base}, segments...), pair.Value, false)
	}
	out := NewMap()
	for _, key := range tree.keys {
		out.Set(key, tree.children[key].value())
	}
	return out
}

// submitNode is either a leaf carrying a raw string or a container whose keys
// keep first-insertion order.
type submitNode struct {
	leaf     bool
	raw      string
	keys     []string
	children map[string]*submitNode
	next     int
}

func newSubmitNode() *submitNode {
	return &submitNode{children: make(map[string]*submitNode)}
}

// insert walks path, creating containers on the way. When pinned is true the
// first segment always addresses the single slot "" instead of appending.
func (n *submitNode) insert(path []string, raw string, pinned bool) {
	segment := path[0]
	var key string
	switch {
	case pinned:
		key = ""
	case segment == "":
		key = strconv.Itoa(n.next)
		n.next++
	default:
		key = segment
		if idx, ok := canonicalIndex(segment); ok && idx >= n.next {
			n.next = idx + 1
		}
	}

	child, exists := n.children[key]
	if !exists {
		n.keys = append(n.keys, key)
	}

	if len(path) == 1 {
		n.children[key] = &submitNode{leaf: true, raw: raw}
		return
	}

	if !exists || child.leaf {
		child = newSubmitNode()
		n.children[key] = child
	}
	child.insert(path[1:], raw, false)
}

func (n *submitNode) value() Value {
	if n.leaf {
		return Decode(n.raw)
	}
	if n.isList() {
		items := make([]Value, 0, len(n.keys))
		for _, key := range n.keys {
			items = append(items, n.children[key].value())
		}
		return Value{kind: KindList, list: items}
	}
	m := NewMap()
	for _, key := range n.keys {
		m.Set(DecodeKey(key), n.children[key].value())
	}
	return FromMap(m)
}

func (n *submitNode) isList() bool {
	if len(n.keys) == 0 {
		return true
	}
	for _, key := range n.keys {
		if _, ok := canonicalIndex(key); !ok {
			return false
		}
	}
	return true
}

// canonicalIndex accepts the decimal forms a PHP-style array would turn into
// integer keys: no sign, no leading zeros.
func canonicalIndex(segment string) (int, bool) {
	if segment == "" || len(segment) > 18 {
		return 0, false
	}
	if len(segment) > 1 && segment[0] == '0' {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return idx, true
}
