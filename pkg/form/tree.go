package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/option"
)

// ErrRouteConflict is returned when a route is used both as a section and as
// an option, or twice as an option.
var ErrRouteConflict = errors.New("form: route conflict")

// Node is one position in the options outline: a section with children, or
// a leaf holding an Option.
type Node struct {
	Key         string
	Label       model.Label
	Description model.Label
	Option      *option.Option

	children []*Node
	index    map[string]*Node
}

func newNode(key string) *Node {
	return &Node{Key: key, index: make(map[string]*Node)}
}

func (n *Node) IsLeaf() bool { return n.Option != nil }

// Children returns the child nodes in insertion order.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

func (n *Node) Child(key string) (*Node, bool) {
	child, ok := n.index[key]
	return child, ok
}

// DisplayLabel is the section label, or one derived from the key.
func (n *Node) DisplayLabel() string {
	if text := n.Label.Text(); text != "" {
		return text
	}
	return model.ToLabel(n.Key)
}

func (n *Node) add(child *Node) {
	n.children = append(n.children, child)
	n.index[child.Key] = child
}

// Tree owns the options of one form, indexed by route segments.
type Tree struct {
	root *Node
}

func NewTree() *Tree {
	return &Tree{root: newNode("")}
}

func (t *Tree) Root() *Node { return t.root }

// Section returns the section at route, creating missing sections on the
// way.
func (t *Tree) Section(route ...string) (*Node, error) {
	node := t.root
	for idx, key := range route {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("form: empty route segment in %q", strings.Join(route, RouteSeparator))
		}
		child, ok := node.index[key]
		if !ok {
			child = newNode(key)
			node.add(child)
		}
		if child.IsLeaf() {
			return nil, fmt.Errorf("%w: %q is an option", ErrRouteConflict, strings.Join(route[:idx+1], RouteSeparator))
		}
		node = child
	}
	return node, nil
}

// Insert places opt at route. The last segment is the option key.
func (t *Tree) Insert(route []string, opt *option.Option) error {
	if len(route) == 0 {
		return fmt.Errorf("form: empty route")
	}
	if opt == nil {
		return fmt.Errorf("form: nil option at %q", strings.Join(route, RouteSeparator))
	}
	parent, err := t.Section(route[:len(route)-1]...)
	if err != nil {
		return err
	}
	key := strings.TrimSpace(route[len(route)-1])
	if key == "" {
		return fmt.Errorf("form: empty option key under %q", strings.Join(route, RouteSeparator))
	}
	if _, exists := parent.index[key]; exists {
		return fmt.Errorf("%w: %q already defined", ErrRouteConflict, strings.Join(route, RouteSeparator))
	}
	leaf := newNode(key)
	leaf.Option = opt
	parent.add(leaf)
	return nil
}

// Lookup finds the node at route.
func (t *Tree) Lookup(route ...string) (*Node, bool) {
	node := t.root
	for _, key := range route {
		child, ok := node.index[key]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Walk visits every node depth first in insertion order. The root is not
// visited. Returning SkipSection from a section skips its children.
func (t *Tree) Walk(fn func(route []string, n *Node) error) error {
	return walk(t.root, nil, fn)
}

// SkipSection can be returned from a Walk callback to skip a subtree.
var SkipSection = errors.New("form: skip section")

func walk(n *Node, route []string, fn func([]string, *Node) error) error {
	for _, child := range n.children {
		childRoute := append(append([]string(nil), route...), child.Key)
		err := fn(childRoute, child)
		if errors.Is(err, SkipSection) {
			continue
		}
		if err != nil {
			return err
		}
		if !child.IsLeaf() {
			if err := walk(child, childRoute, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Leaf is an option with its route.
type Leaf struct {
	Route  []string
	Option *option.Option
}

// Leaves lists all options in outline order.
func (t *Tree) Leaves() []Leaf {
	var out []Leaf
	_ = t.Walk(func(route []string, n *Node) error {
		if n.IsLeaf() {
			out = append(out, Leaf{Route: route, Option: n.Option})
		}
		return nil
	})
	return out
}

// Entry is a literal tree element built with Section and Item.
type Entry func(t *Tree, route []string) error

// Section declares a labelled section holding entries.
func Section(key, label string, entries ...Entry) Entry {
	return func(t *Tree, route []string) error {
		path := append(append([]string(nil), route...), key)
		node, err := t.Section(path...)
		if err != nil {
			return err
		}
		if label != "" {
			node.Label = model.Literal(label)
		}
		for _, entry := range entries {
			if err := entry(t, path); err != nil {
				return err
			}
		}
		return nil
	}
}

// Item declares a leaf.
func Item(key string, opt *option.Option) Entry {
	return func(t *Tree, route []string) error {
		return t.Insert(append(append([]string(nil), route...), key), opt)
	}
}

// Build assembles a tree from literal entries.
func Build(entries ...Entry) (*Tree, error) {
	t := NewTree()
	for _, entry := range entries {
		if err := entry(t, nil); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustBuild is Build for package-level fixtures.
func MustBuild(entries ...Entry) *Tree {
	t, err := Build(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromDocument builds the tree described by a loaded document. Options get
// their layout from the option spec; params apply to every option.
func FromDocument(doc model.Document, params ...option.Param) (*Tree, error) {
	t := NewTree()
	for _, section := range doc.Sections {
		if err := addSection(t, nil, section, params); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func addSection(t *Tree, route []string, section model.Section, params []option.Param) error {
	path := append(append([]string(nil), route...), section.Key)
	node, err := t.Section(path...)
	if err != nil {
		return err
	}
	node.Label = section.Label
	node.Description = section.Description
	for _, spec := range section.Options {
		optParams := append([]option.Param{option.WithLayout(spec.Layout)}, params...)
		opt := option.New("", spec.Descriptor, optParams...)
		if err := t.Insert(append(append([]string(nil), path...), spec.Key), opt); err != nil {
			return err
		}
	}
	for _, child := range section.Sections {
		if err := addSection(t, path, child, params); err != nil {
			return err
		}
	}
	return nil
}
