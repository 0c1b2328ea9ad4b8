package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-optionform/pkg/bundle"
	"github.com/goliatone/go-optionform/pkg/logging"
	"github.com/goliatone/go-optionform/pkg/model"
	"github.com/goliatone/go-optionform/pkg/option"
	"github.com/goliatone/go-optionform/pkg/render/template"
)

// RouteSeparator joins route segments into option names.
const RouteSeparator = ">"

const defaultNonceTTL = 12 * time.Hour

var (
	// ErrDuplicateName is returned when two leaves bind to the same option
	// identity.
	ErrDuplicateName = errors.New("form: duplicate option name")
	ErrNoSlug        = errors.New("form: slug is required")
	ErrNoStore       = errors.New("form: store is required")
)

// AfterSaveFunc runs after a submission or import changed at least one
// option.
type AfterSaveFunc func(ctx context.Context, f *Form, res Result) error

// Option configures a Form.
type Option func(*Form)

// WithLayout sets the storage layout back-filled into options that do not
// choose one.
func WithLayout(layout model.Layout) Option {
	return func(f *Form) { f.layout = layout }
}

func WithOverrides(ov option.Overrides) Option {
	return func(f *Form) { f.overrides = ov }
}

func WithBuilder(b *bundle.Builder) Option {
	return func(f *Form) {
		if b != nil {
			f.builder = b
		}
	}
}

// WithTemplates replaces the page template engine. The engine must provide
// a "form" template.
func WithTemplates(engine template.Renderer) Option {
	return func(f *Form) { f.engine = engine }
}

func WithLogger(l logging.Logger) Option {
	return func(f *Form) { f.logger = logging.OrNop(l) }
}

// WithSecret sets the key used to sign nonces. Forms sharing a secret accept
// each other's nonces only when their slugs match.
func WithSecret(secret []byte) Option {
	return func(f *Form) {
		if len(secret) > 0 {
			f.secret = append([]byte(nil), secret...)
		}
	}
}

func WithNonceTTL(ttl time.Duration) Option {
	return func(f *Form) {
		if ttl > 0 {
			f.nonceTTL = ttl
		}
	}
}

// WithAfterSave appends a post-save callback.
func WithAfterSave(fn AfterSaveFunc) Option {
	return func(f *Form) {
		if fn != nil {
			f.afterSave = append(f.afterSave, fn)
		}
	}
}

func WithEventEmitter(emitter EventEmitter) Option {
	return func(f *Form) { f.emitter = emitter }
}

// WithTheme resolves design tokens through selector. They are emitted as CSS
// custom properties ahead of the form.
func WithTheme(selector theme.ThemeSelector, name, variant string) Option {
	return func(f *Form) {
		f.themes = selector
		f.themeName = name
		f.themeVariant = variant
	}
}

// WithSubmit configures client-side submission: auto submit on change, AJAX
// submit, and the button label.
func WithSubmit(submit model.Submit) Option {
	return func(f *Form) { f.submit = submit }
}

func WithTitle(title, description string) Option {
	return func(f *Form) {
		f.title = title
		f.description = description
	}
}

// WithClock replaces time.Now, for nonce tests.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

// Form owns an option tree bound to one slug and one store.
type Form struct {
	slug        string
	title       string
	description string
	tree        *Tree
	store       option.Store
	overrides   option.Overrides
	layout      model.Layout
	builder     *bundle.Builder
	engine      template.Renderer
	logger      logging.Logger
	secret      []byte
	nonceTTL    time.Duration
	afterSave   []AfterSaveFunc
	emitter     EventEmitter
	submit      model.Submit
	now         func() time.Time

	themes       theme.ThemeSelector
	themeName    string
	themeVariant string

	leaves []Leaf
	byName map[string]*option.Option
	byTail map[string][]*option.Option
}

// New binds every leaf of tree to slug: the option name defaults to its
// route joined by RouteSeparator and the parent to slug. Dependency and
// relation references are then resolved by name.
func New(slug string, tree *Tree, store option.Store, opts ...Option) (*Form, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrNoSlug
	}
	if store == nil {
		return nil, ErrNoStore
	}
	if tree == nil {
		tree = NewTree()
	}

	f := &Form{
		slug:     slug,
		tree:     tree,
		store:    store,
		builder:  bundle.New(),
		logger:   logging.Nop(),
		nonceTTL: defaultNonceTTL,
		now:      time.Now,
		byName:   make(map[string]*option.Option),
		byTail:   make(map[string][]*option.Option),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if len(f.secret) == 0 {
		f.secret = []byte(uuid.NewString())
	}
	if f.engine == nil {
		engine, err := defaultEngine()
		if err != nil {
			return nil, err
		}
		f.engine = engine
	}

	if err := f.bind(); err != nil {
		return nil, err
	}
	f.logger.Debug("form bound", "slug", f.slug, "options", len(f.leaves))
	return f, nil
}

// NewFromDocument builds the tree of doc and a form configured from its
// slug, title, layout and submit settings. opts apply after the document.
func NewFromDocument(doc model.Document, store option.Store, opts ...Option) (*Form, error) {
	tree, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithTitle(doc.Title, doc.Description),
		WithLayout(doc.Layout),
		WithSubmit(doc.Submit),
	}
	return New(doc.Slug, tree, store, append(base, opts...)...)
}

func (f *Form) bind() error {
	f.leaves = f.tree.Leaves()
	for _, leaf := range f.leaves {
		opt := leaf.Option
		opt.Bind(strings.Join(leaf.Route, RouteSeparator), f.slug, f.layout)
		opt.Attach(f.store, f.overrides)

		key := opt.Parent() + "\x00" + opt.Name()
		if _, exists := f.byName[key]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateName, opt.FieldName())
		}
		f.byName[key] = opt
		tail := leaf.Route[len(leaf.Route)-1]
		f.byTail[tail] = append(f.byTail[tail], opt)
	}
	for _, leaf := range f.leaves {
		leaf.Option.ResolveRefs(f.resolve)
	}
	return nil
}

// resolve finds a referenced option by exact name, by dotted route, or by
// a last route segment shared with no other option.
func (f *Form) resolve(ref string) (model.ValueSource, bool) {
	if ref == "" {
		return nil, false
	}
	if opt, ok := f.Lookup(ref); ok {
		return opt, true
	}
	if opt, ok := f.Lookup(strings.ReplaceAll(ref, ".", RouteSeparator)); ok {
		return opt, true
	}
	if matches := f.byTail[ref]; len(matches) == 1 {
		return matches[0], true
	}
	return nil, false
}

func (f *Form) Slug() string  { return f.slug }
func (f *Form) Title() string { return f.title }
func (f *Form) Tree() *Tree   { return f.tree }

// Lookup returns the option bound to this form under name.
func (f *Form) Lookup(name string) (*option.Option, bool) {
	opt, ok := f.byName[f.slug+"\x00"+name]
	if ok {
		return opt, true
	}
	// Options given an explicit parent keep it.
	for _, leaf := range f.leaves {
		if leaf.Option.Name() == name {
			return leaf.Option, true
		}
	}
	return nil, false
}

// Options lists the bound options in outline order.
func (f *Form) Options() []*option.Option {
	out := make([]*option.Option, 0, len(f.leaves))
	for _, leaf := range f.leaves {
		out = append(out, leaf.Option)
	}
	return out
}
