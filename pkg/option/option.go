// Package option binds a field descriptor to a stored value. An Option knows
// its storage slot (derived from name, parent and layout), reads and writes
// through a Store, and renders itself through the bundle builder.
package option

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/goliatone/go-optionform/pkg/bundle"
	"github.com/goliatone/go-optionform/pkg/markup"
	"github.com/goliatone/go-optionform/pkg/mask"
	"github.com/goliatone/go-optionform/pkg/model"
)

// State tracks how far an Option has progressed through a render pass.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateMaterialized
)

func (s State) String() string {
	switch s {
	case StateBound:
		return "bound"
	case StateMaterialized:
		return "materialized"
	default:
		return "unbound"
	}
}

var (
	// ErrNoStore is returned when a value is read or written before a store
	// was attached.
	ErrNoStore = errors.New("option: no store attached")
	// ErrUnbound is returned when the option has no name yet.
	ErrUnbound = errors.New("option: name not bound")
)

// BeforeSetFunc may veto a write by returning false.
type BeforeSetFunc func(ctx context.Context, o *Option, v mask.Value) bool

// BeforeGetFunc observes every value read.
type BeforeGetFunc func(ctx context.Context, o *Option, v mask.Value)

// Param configures an Option.
type Param func(*Option)

func WithParent(parent string) Param {
	return func(o *Option) { o.parent = parent }
}

func WithID(id string) Param {
	return func(o *Option) { o.id = id }
}

func WithSerialize(on bool) Param {
	return func(o *Option) { o.layout.Serialize = &on }
}

func WithSingleOption(on bool) Param {
	return func(o *Option) { o.layout.SingleOption = &on }
}

func WithLayout(layout model.Layout) Param {
	return func(o *Option) { o.layout = layout }
}

func WithStore(s Store) Param {
	return func(o *Option) { o.store = s }
}

func WithOverrides(ov Overrides) Param {
	return func(o *Option) { o.overrides = ov }
}

// WithFilter appends a read filter. Filters run in the order added.
func WithFilter(fn FilterFunc) Param {
	return func(o *Option) {
		if fn != nil {
			o.filters = append(o.filters, fn)
		}
	}
}

func BeforeSetValue(fn BeforeSetFunc) Param {
	return func(o *Option) { o.beforeSet = fn }
}

func BeforeGetValue(fn BeforeGetFunc) Param {
	return func(o *Option) { o.beforeGet = fn }
}

// Option is a named, optionally parented reference to one stored value plus
// the descriptor used to render it. Identity is (name, parent).
type Option struct {
	name      string
	parent    string
	id        string
	desc      model.Descriptor
	layout    model.Layout
	store     Store
	overrides Overrides
	filters   []FilterFunc
	beforeSet BeforeSetFunc
	beforeGet BeforeGetFunc
	state     atomic.Int32
}

// New creates an option. An empty name leaves it unbound until the form
// assigns one from its route.
func New(name string, desc model.Descriptor, params ...Param) *Option {
	o := &Option{name: name, desc: desc.Clone()}
	for _, param := range params {
		if param != nil {
			param(o)
		}
	}
	o.refreshState()
	return o
}

func (o *Option) refreshState() {
	if State(o.state.Load()) == StateMaterialized {
		return
	}
	if o.name != "" {
		o.state.Store(int32(StateBound))
	} else {
		o.state.Store(int32(StateUnbound))
	}
}

// Bind back-fills name, parent and layout flags that were not set
// explicitly.
func (o *Option) Bind(name, parent string, layout model.Layout) {
	if o.name == "" {
		o.name = name
	}
	if o.parent == "" {
		o.parent = parent
	}
	if o.layout.Serialize == nil && layout.Serialize != nil {
		v := *layout.Serialize
		o.layout.Serialize = &v
	}
	if o.layout.SingleOption == nil && layout.SingleOption != nil {
		v := *layout.SingleOption
		o.layout.SingleOption = &v
	}
	o.refreshState()
}

// Attach sets the store and overrides when they were not given at
// construction.
func (o *Option) Attach(s Store, ov Overrides) {
	if o.store == nil {
		o.store = s
	}
	if o.overrides == nil {
		o.overrides = ov
	}
}

// SetID assigns the DOM id when none was configured.
func (o *Option) SetID(id string) {
	if o.id == "" {
		o.id = id
	}
}

func (o *Option) Name() string { return o.name }
func (o *Option) Parent() string { return o.parent }
func (o *Option) State() State { return State(o.state.Load()) }
func (o *Option) Layout() model.Layout { return o.layout }
func (o *Option) Descriptor() model.Descriptor { return o.desc.Clone() }
func (o *Option) Default() mask.Value { return o.desc.Default }

// Serialize reports whether values are wrapped in a one-element list.
func (o *Option) Serialize() bool {
	return o.layout.Serialize != nil && *o.layout.Serialize
}

// SingleOption reports whether all options of a parent share one slot.
func (o *Option) SingleOption() bool {
	return o.layout.SingleOption != nil && *o.layout.SingleOption && o.parent != ""
}

// StorageName is the option's own slot name: parent_name, or name when the
// option has no parent.
func (o *Option) StorageName() string {
	if o.parent == "" {
		return o.name
	}
	return o.parent + "_" + o.name
}

// Slot is the storage key actually read and written.
func (o *Option) Slot() string {
	if o.SingleOption() {
		return o.parent
	}
	return o.StorageName()
}

// FieldName is the bracket name the option's inputs submit under.
func (o *Option) FieldName() string {
	if o.parent == "" {
		return o.name
	}
	return markup.Name(o.parent, o.name)
}

// ElementID returns the DOM id of the option's container.
func (o *Option) ElementID() string {
	if o.id != "" {
		return o.id
	}
	return bundle.ElementID(o.FieldName())
}

// Overridden reports whether a constant override exists for the option.
func (o *Option) Overridden() bool {
	if o.overrides == nil || o.name == "" {
		return false
	}
	_, ok := o.overrides.Lookup(o.StorageName())
	return ok
}

// Value resolves the current value: constant override, then stored value
// (through the layout), then the descriptor default. Filters and the
// before-get observer run on everything but overrides.
func (o *Option) Value(ctx context.Context) (mask.Value, error) {
	if o.name == "" {
		return mask.Null(), ErrUnbound
	}
	if o.overrides != nil {
		if raw, ok := o.overrides.Lookup(o.StorageName()); ok {
			return overrideValue(o.desc.Normalize(), raw)
		}
	}

	value, found, err := o.read(ctx)
	if err != nil {
		return mask.Null(), err
	}
	if !found {
		value = o.desc.Default.Clone()
	}
	for _, filter := range o.filters {
		value = filter(ctx, o.StorageName(), value)
	}
	if o.beforeGet != nil {
		o.beforeGet(ctx, o, value)
	}
	return value, nil
}

// CurrentValue lets other fields depend on or relate to this option.
func (o *Option) CurrentValue(ctx context.Context) (mask.Value, error) {
	return o.Value(ctx)
}

func (o *Option) read(ctx context.Context) (mask.Value, bool, error) {
	if o.store == nil {
		return mask.Null(), false, ErrNoStore
	}
	raw, found, err := o.store.Get(ctx, o.Slot())
	if err != nil {
		return mask.Null(), false, fmt.Errorf("option: read %s: %w", o.Slot(), err)
	}
	if !found {
		return mask.Null(), false, nil
	}
	if o.Serialize() {
		raw = unwrap(raw)
	}
	if !o.SingleOption() {
		return raw, true, nil
	}
	value, ok := raw.Lookup(o.name)
	if raw.Kind() != mask.KindMap {
		ok = false
	}
	return value, ok, nil
}

// SetValue writes v through the layout. It returns false without error when
// the before-set hook vetoes the write, when a constant override is in
// force, or when the store reports no change.
func (o *Option) SetValue(ctx context.Context, v mask.Value) (bool, error) {
	if o.name == "" {
		return false, ErrUnbound
	}
	if o.beforeSet != nil && !o.beforeSet(ctx, o, v) {
		return false, nil
	}
	if o.Overridden() {
		return false, nil
	}
	if o.store == nil {
		return false, ErrNoStore
	}

	payload := v
	if o.SingleOption() {
		slot := mask.NewMap()
		raw, found, err := o.store.Get(ctx, o.parent)
		if err != nil {
			return false, fmt.Errorf("option: read %s: %w", o.parent, err)
		}
		if found {
			if o.Serialize() {
				raw = unwrap(raw)
			}
			if m := raw.Map(); m != nil {
				slot = m.Clone()
			}
		}
		slot.Set(o.name, v)
		payload = mask.FromMap(slot)
	}
	if o.Serialize() {
		payload = mask.List(payload)
	}

	changed, err := o.store.Set(ctx, o.Slot(), payload)
	if err != nil {
		return false, fmt.Errorf("option: write %s: %w", o.Slot(), err)
	}
	return changed, nil
}

// Bound returns the descriptor ready to render: name, parent, id and the
// current value filled in.
func (o *Option) Bound(ctx context.Context) (model.Descriptor, error) {
	value, err := o.Value(ctx)
	if err != nil {
		return model.Descriptor{}, err
	}
	d := o.desc.Clone()
	d.Name = o.name
	d.Parent = o.parent
	d.ID = o.ElementID()
	d.Value = value
	if o.Overridden() {
		d.Readonly = true
	}
	return d, nil
}

// Field renders the option's markup.
func (o *Option) Field(ctx context.Context, b *bundle.Builder) (string, error) {
	d, err := o.Bound(ctx)
	if err != nil {
		return "", err
	}
	html, err := b.Render(ctx, d)
	if err != nil {
		return "", err
	}
	o.state.Store(int32(StateMaterialized))
	return html, nil
}

// Fingerprint hashes the option's descriptor with its name bound.
func (o *Option) Fingerprint() (string, error) {
	d := o.desc.Clone()
	d.Name = o.name
	d.Parent = o.parent
	d.Value = mask.Null()
	return model.Fingerprint(d)
}

// ResolveRefs binds dependency and relation sources through lookup. Refs
// that lookup cannot resolve are left unbound.
func (o *Option) ResolveRefs(lookup func(ref string) (model.ValueSource, bool)) {
	resolveRefs(&o.desc, lookup)
}

func resolveRefs(d *model.Descriptor, lookup func(string) (model.ValueSource, bool)) {
	for idx := range d.DependsOn {
		dep := &d.DependsOn[idx]
		if dep.Source != nil {
			continue
		}
		if src, ok := lookup(strings.TrimSpace(dep.Ref)); ok {
			dep.Source = src
		}
	}
	if d.Relation != nil && d.Relation.Source == nil {
		if src, ok := lookup(strings.TrimSpace(d.Relation.Ref)); ok {
			d.Relation.Source = src
		}
	}
	for idx := range d.Template {
		resolveRefs(&d.Template[idx], lookup)
	}
	if d.Field != nil {
		resolveRefs(d.Field, lookup)
	}
}

func unwrap(v mask.Value) mask.Value {
	if v.Kind() == mask.KindList && v.Len() == 1 {
		item, _ := v.Index(0)
		return item
	}
	return v
}
