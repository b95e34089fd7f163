package injector

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golobby/cast"
)

// Source produces a nested configuration tree. The feeders package provides
// sources for files and the process environment.
type Source interface {
	Feed() (map[string]any, error)
}

// Configuration provides a nested key/value tree. Values are read through
// option handles obtained with Option:
//
//	cfg := injector.NewConfiguration()
//	db := injector.NewSingleton(sql.Open, cfg.Option("db.driver"), cfg.Option("db.dsn"))
//	cfg.Update(map[string]any{"db": map[string]any{"driver": "pgx", "dsn": dsn}})
//
// Overriding the configuration replaces the whole tree; overriding an option
// replaces the value at its path.
type Configuration struct {
	base
	treeMu  sync.RWMutex
	tree    map[string]any
	strict  bool
	options map[string]*ConfigurationOption
}

// ConfigurationSetting configures a Configuration.
type ConfigurationSetting func(*Configuration)

// WithDefaults sets the initial tree.
func WithDefaults(tree map[string]any) ConfigurationSetting {
	return func(c *Configuration) {
		if t, ok := toTree(tree); ok {
			c.tree = t
		}
	}
}

// Strict makes every option required: resolving a missing path fails with
// ErrMissingOption instead of returning nil.
func Strict() ConfigurationSetting {
	return func(c *Configuration) {
		c.strict = true
	}
}

// NewConfiguration returns an empty configuration.
func NewConfiguration(settings ...ConfigurationSetting) *Configuration {
	c := &Configuration{
		tree:    map[string]any{},
		options: map[string]*ConfigurationOption{},
	}
	c.init(c)
	for _, s := range settings {
		s(c)
	}
	return c
}

func (c *Configuration) Kind() Kind { return KindConfiguration }

// Provide returns a copy of the current tree as map[string]any.
func (c *Configuration) Provide(ctx context.Context, _ ...any) (any, error) {
	return c.Value(ctx)
}

// Value returns a copy of the current tree with option overrides applied.
func (c *Configuration) Value(ctx context.Context) (map[string]any, error) {
	return c.resolveTree(ctx, nil, false)
}

// resolveTree copies the tree and applies option overrides. With onBranch
// set, only overrides of options on the same branch as keys are applied:
// its ancestors and its descendants.
func (c *Configuration) resolveTree(ctx context.Context, keys []string, onBranch bool) (map[string]any, error) {
	var tree map[string]any
	if p := c.last(); p != nil {
		cctx, err := enter(ctx, c)
		if err != nil {
			return nil, err
		}
		v, err := p.Provide(cctx)
		if err != nil {
			return nil, err
		}
		t, ok := toTree(v)
		if !ok {
			return nil, fmt.Errorf("%w: configuration override produced %T, want a map", ErrInvalidArguments, v)
		}
		tree = t
	} else {
		c.treeMu.RLock()
		tree = cloneTree(c.tree)
		c.treeMu.RUnlock()
	}

	// Shallow paths first so deeper option overrides win.
	for _, opt := range c.Options() {
		p := opt.last()
		if p == nil || len(opt.keys) == 0 {
			continue
		}
		if onBranch && !sameBranch(opt.keys, keys) {
			continue
		}
		octx, err := enter(ctx, opt)
		if err != nil {
			return nil, err
		}
		v, err := p.Provide(octx)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", opt.path, err)
		}
		setPath(tree, opt.keys, cloneTreeValue(normalize(v)))
	}
	return tree, nil
}

// sameBranch reports whether one path is a prefix of the other.
func sameBranch(a, b []string) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Override replaces the whole tree until the override is reset. A map is
// wrapped in an Object provider; any other Provider must produce a map.
func (c *Configuration) Override(with any) error {
	if p, ok := with.(Provider); ok {
		return c.pushOverriding(p)
	}
	t, ok := toTree(with)
	if !ok {
		return fmt.Errorf("%w: configuration can only be overridden with a map, got %T", ErrNotAProvider, with)
	}
	return c.pushOverriding(NewObject(t))
}

// Set stores v at the dotted path in the declared tree.
func (c *Configuration) Set(path string, v any) {
	keys := splitPath(path)
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	if len(keys) == 0 {
		if t, ok := toTree(v); ok {
			c.tree = t
		}
		return
	}
	setPath(c.tree, keys, normalize(v))
}

// Update deep-merges tree into the declared tree.
func (c *Configuration) Update(tree map[string]any) {
	t, _ := toTree(tree)
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	mergeTree(c.tree, t)
}

// Replace swaps the declared tree.
func (c *Configuration) Replace(tree map[string]any) {
	t, _ := toTree(tree)
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	c.tree = t
}

// Feed merges the trees produced by sources, in order. Nothing is applied
// when any source fails.
func (c *Configuration) Feed(sources ...Source) error {
	merged, err := feedAll(sources)
	if err != nil {
		return err
	}
	c.Update(merged)
	return nil
}

// Load replaces the declared tree with the merge of the trees produced by
// sources, so keys missing from every source are dropped. The tree is left
// untouched when any source fails.
func (c *Configuration) Load(sources ...Source) error {
	merged, err := feedAll(sources)
	if err != nil {
		return err
	}
	c.Replace(merged)
	return nil
}

func feedAll(sources []Source) (map[string]any, error) {
	merged := map[string]any{}
	for _, src := range sources {
		t, err := src.Feed()
		if err != nil {
			return nil, fmt.Errorf("configuration feed: %w", err)
		}
		nt, _ := toTree(t)
		mergeTree(merged, nt)
	}
	return merged, nil
}

// Strict reports whether missing options fail.
func (c *Configuration) Strict() bool {
	return c.strict
}

// Option returns the handle for a dotted path. Handles are shared: the same
// path always yields the same provider.
func (c *Configuration) Option(path string) *ConfigurationOption {
	keys := splitPath(path)
	key := strings.Join(keys, ".")
	c.treeMu.Lock()
	defer c.treeMu.Unlock()
	if o, ok := c.options[key]; ok {
		return o
	}
	o := newConfigurationOption(c, key, keys)
	c.options[key] = o
	return o
}

// Options returns the handles created so far, shallow paths first.
func (c *Configuration) Options() []*ConfigurationOption {
	c.treeMu.RLock()
	out := make([]*ConfigurationOption, 0, len(c.options))
	for _, o := range c.options {
		out = append(out, o)
	}
	c.treeMu.RUnlock()
	slices.SortFunc(out, func(a, b *ConfigurationOption) int {
		if n := cmp.Compare(len(a.keys), len(b.keys)); n != 0 {
			return n
		}
		return strings.Compare(a.path, b.path)
	})
	return out
}

func (c *Configuration) Related() []Provider {
	out := c.Overridden()
	for _, o := range c.Options() {
		out = append(out, o)
	}
	return out
}

func (c *Configuration) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[c]; ok {
		return cp.(Provider), nil
	}
	cp := NewConfiguration()
	cp.strict = c.strict
	memo[c] = cp
	c.treeMu.RLock()
	cp.tree = cloneTree(c.tree)
	c.treeMu.RUnlock()

	opts := c.Options()
	for _, o := range opts {
		oc := newConfigurationOption(cp, o.path, o.keys)
		oc.required = o.required
		cp.options[o.path] = oc
		memo[o] = oc
	}
	for _, o := range opts {
		if err := o.copyBase(&cp.options[o.path].base, memo); err != nil {
			return nil, err
		}
	}
	if err := c.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// ConfigurationOption is a handle on one path of a Configuration tree.
type ConfigurationOption struct {
	base
	root     *Configuration
	path     string
	keys     []string
	required bool
}

func newConfigurationOption(root *Configuration, path string, keys []string) *ConfigurationOption {
	o := &ConfigurationOption{root: root, path: path, keys: keys}
	o.init(o)
	return o
}

func (o *ConfigurationOption) Kind() Kind { return KindConfigurationOption }

// Provide returns the value at the option's path. A missing path yields nil
// unless the option is required or the configuration strict.
func (o *ConfigurationOption) Provide(ctx context.Context, args ...any) (any, error) {
	ctx, err := enter(ctx, o)
	if err != nil {
		return nil, err
	}
	if p := o.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	tree, err := o.root.resolveTree(ctx, o.keys, true)
	if err != nil {
		return nil, err
	}
	v, ok := lookup(tree, o.keys)
	if !ok {
		if o.Required() || o.root.strict {
			return nil, fmt.Errorf("%w: %q", ErrMissingOption, o.path)
		}
		return nil, nil
	}
	return v, nil
}

// Override sets the value at the option's path until the override is
// reset. Plain values are expected here and are wrapped silently. A
// provider override may read other options of the same configuration; one
// that leads back to this option fails with ErrCircularDependency.
func (o *ConfigurationOption) Override(with any) error {
	if p, ok := with.(Provider); ok {
		return o.pushOverriding(p)
	}
	return o.pushOverriding(NewObject(with))
}

// Path returns the dotted path.
func (o *ConfigurationOption) Path() string { return o.path }

// Root returns the configuration the option reads from.
func (o *ConfigurationOption) Root() *Configuration { return o.root }

// Option returns the handle of a child path.
func (o *ConfigurationOption) Option(path string) *ConfigurationOption {
	return o.root.Option(o.path + "." + path)
}

// MarkRequired makes resolution fail with ErrMissingOption when the path is
// missing, and returns the option. The flag is shared by every user of the
// path.
func (o *ConfigurationOption) MarkRequired() *ConfigurationOption {
	o.root.treeMu.Lock()
	defer o.root.treeMu.Unlock()
	o.required = true
	return o
}

// Required reports whether the option must be present.
func (o *ConfigurationOption) Required() bool {
	o.root.treeMu.RLock()
	defer o.root.treeMu.RUnlock()
	return o.required
}

// AsInt returns a provider of the option converted to int.
func (o *ConfigurationOption) AsInt() *TypedOption {
	return o.As("int", castTo(reflect.TypeOf(0)))
}

// AsFloat returns a provider of the option converted to float64.
func (o *ConfigurationOption) AsFloat() *TypedOption {
	return o.As("float64", castTo(reflect.TypeOf(float64(0))))
}

// AsBool returns a provider of the option converted to bool.
func (o *ConfigurationOption) AsBool() *TypedOption {
	return o.As("bool", castTo(reflect.TypeOf(false)))
}

// AsString returns a provider of the option formatted as a string.
func (o *ConfigurationOption) AsString() *TypedOption {
	return o.As("string", func(v any) (any, error) { return fmt.Sprint(v), nil })
}

// AsDuration returns a provider of the option as a time.Duration. Strings
// are parsed with time.ParseDuration and integers count seconds.
func (o *ConfigurationOption) AsDuration() *TypedOption {
	return o.As("duration", toDuration)
}

// As returns a provider of the option converted by fn. A missing optional
// value stays nil and is not passed to fn.
func (o *ConfigurationOption) As(name string, fn func(any) (any, error)) *TypedOption {
	t := &TypedOption{opt: o, conv: fn, typeName: name}
	t.init(t)
	return t
}

func (o *ConfigurationOption) Related() []Provider {
	return append([]Provider{o.root}, o.Overridden()...)
}

func (o *ConfigurationOption) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[o]; ok {
		return cp.(Provider), nil
	}
	if _, err := copyProvider(o.root, memo); err != nil {
		return nil, err
	}
	return memo[o].(Provider), nil
}

// TypedOption converts the value of a ConfigurationOption.
type TypedOption struct {
	base
	opt      *ConfigurationOption
	conv     func(any) (any, error)
	typeName string
}

func (t *TypedOption) Kind() Kind { return KindConfigurationOption }

func (t *TypedOption) Provide(ctx context.Context, args ...any) (any, error) {
	if p := t.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	v, err := t.opt.Provide(ctx)
	if err != nil || v == nil {
		return v, err
	}
	out, err := t.conv(v)
	if err != nil {
		return nil, fmt.Errorf("%w: option %q as %s: %v", ErrInvalidArguments, t.opt.path, t.typeName, err)
	}
	return out, nil
}

// Option returns the underlying option.
func (t *TypedOption) Option() *ConfigurationOption { return t.opt }

func (t *TypedOption) Related() []Provider {
	return append([]Provider{t.opt}, t.Overridden()...)
}

func (t *TypedOption) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[t]; ok {
		return cp.(Provider), nil
	}
	opt, err := copyProvider(t.opt, memo)
	if err != nil {
		return nil, err
	}
	cp := &TypedOption{opt: opt.(*ConfigurationOption), conv: t.conv, typeName: t.typeName}
	cp.init(cp)
	memo[t] = cp
	if err := t.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

func castTo(typ reflect.Type) func(any) (any, error) {
	return func(v any) (any, error) {
		if reflect.TypeOf(v) == typ {
			return v, nil
		}
		return cast.FromType(fmt.Sprint(v), typ)
	}
}

func toDuration(v any) (any, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		return time.ParseDuration(x)
	}
	n, err := cast.FromType(fmt.Sprint(v), reflect.TypeOf(int64(0)))
	if err != nil {
		return nil, err
	}
	return time.Duration(n.(int64)) * time.Second, nil
}
