package injector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Container is a named, ordered collection of providers. Containers nest
// through ContainerRef providers; names of nested providers are reported as
// dotted paths from the root container.
type Container struct {
	name   string
	logger Logger

	mu        sync.RWMutex
	names     []string
	providers map[string]Provider
	deps      []string
	ref       *ContainerRef
	decl      *Declaration
	self      *Self

	overriding []*Container

	observers observers

	asyncMu sync.Mutex
	async   map[Provider]bool
}

// NewContainer returns an empty container.
func NewContainer(name string, opts ...Option) (*Container, error) {
	c := newContainer(name)
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func newContainer(name string) *Container {
	c := &Container{
		name:      name,
		logger:    DefaultLogger(),
		providers: make(map[string]Provider),
	}
	c.self = NewSelf()
	c.self.bind(c)
	return c
}

// Name returns the container name.
func (c *Container) Name() string { return c.name }

// FullName returns the dotted path of the container from the root, for
// example "Root.services".
func (c *Container) FullName() string {
	c.mu.RLock()
	ref := c.ref
	c.mu.RUnlock()
	if ref != nil && ref.Parent() != nil {
		return FullName(ref)
	}
	return c.name
}

// Parent returns the container holding this one through a ContainerRef.
func (c *Container) Parent() *Container {
	c.mu.RLock()
	ref := c.ref
	c.mu.RUnlock()
	if ref == nil {
		return nil
	}
	return ref.Parent()
}

// Logger returns the container logger.
func (c *Container) Logger() Logger { return c.logger }

// Declaration returns the declaration the container was built from, or nil.
func (c *Container) Declaration() *Declaration { return c.decl }

// Self returns the provider resolving to this container. Register it under
// a name to let providers receive the container as an argument.
func (c *Container) Self() *Self { return c.self }

// Set registers p under name, replacing any provider with that name. A
// *Container is nested through a new ContainerRef. A Self provider is bound
// to the container and Dependency providers become placeholders.
func (c *Container) Set(name string, p any) error {
	if name == "" {
		return fmt.Errorf("%w: empty provider name", ErrInvalidArguments)
	}
	var prov Provider
	switch v := p.(type) {
	case *Container:
		prov = NewContainerRef(v)
	case Provider:
		prov = v
	default:
		return fmt.Errorf("%w: %s.%s got %T", ErrNotAProvider, c.FullName(), name, p)
	}
	if prov == nil {
		return fmt.Errorf("%w: %s.%s got nil", ErrNotAProvider, c.FullName(), name)
	}
	c.register(name, prov)
	c.logger.Debug("Provider registered", "container", c.FullName(), "name", name, "kind", prov.Kind())
	return nil
}

func (c *Container) register(name string, p Provider) {
	p.core().attach(c, name)
	if s, ok := p.(*Self); ok {
		s.bind(c)
	}
	c.mu.Lock()
	if _, exists := c.providers[name]; !exists {
		c.names = append(c.names, name)
	}
	c.providers[name] = p
	c.deps = slices.DeleteFunc(c.deps, func(n string) bool { return n == name })
	if _, ok := p.(*Dependency); ok {
		c.deps = append(c.deps, name)
	}
	c.mu.Unlock()
	c.clearAsync()
}

// Provider returns the provider registered under name.
func (c *Container) Provider(name string) (Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrProviderNotFound, c.name, name)
	}
	return p, nil
}

// Resolve resolves the provider registered under name.
func (c *Container) Resolve(ctx context.Context, name string, args ...any) (any, error) {
	p, err := c.Provider(name)
	if err != nil {
		return nil, err
	}
	return p.Provide(ctx, args...)
}

// Resolve resolves the provider registered under name and asserts its type.
func Resolve[T any](ctx context.Context, c *Container, name string, args ...any) (T, error) {
	var zero T
	v, err := c.Resolve(ctx, name, args...)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s.%s is %T, want %T", ErrDependencyType, c.FullName(), name, v, zero)
	}
	return t, nil
}

// Names returns the provider names in registration order.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.names)
}

// Providers returns the providers in registration order.
func (c *Container) Providers() []Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Provider, len(c.names))
	for i, n := range c.names {
		out[i] = c.providers[n]
	}
	return out
}

// DependencyPlaceholders returns the directly registered Dependency
// providers by name.
func (c *Container) DependencyPlaceholders() map[string]*Dependency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]*Dependency, len(c.deps))
	for _, n := range c.deps {
		out[n] = c.providers[n].(*Dependency)
	}
	return out
}

// Override overrides every provider of c with the same-named provider of
// other. Overriding a container with itself fails with ErrSelfOverride.
func (c *Container) Override(other *Container) error {
	if other == nil {
		return fmt.Errorf("%w: nil container", ErrNotAContainer)
	}
	if other == c {
		return fmt.Errorf("%w: container %s", ErrSelfOverride, c.FullName())
	}
	var done []Provider
	var names []string
	for _, name := range other.Names() {
		mine, err := c.Provider(name)
		if err != nil {
			continue
		}
		theirs, _ := other.Provider(name)
		if err := mine.Override(theirs); err != nil {
			for _, p := range done {
				_ = p.ResetLastOverriding()
			}
			return fmt.Errorf("override %s.%s: %w", c.FullName(), name, err)
		}
		done = append(done, mine)
		names = append(names, name)
	}
	c.mu.Lock()
	c.overriding = append(c.overriding, other)
	c.mu.Unlock()
	c.clearAsync()
	c.logger.Debug("Container overridden", "container", c.FullName(), "with", other.FullName(), "providers", names)
	c.emit(context.Background(), EventTypeContainerOverridden, OverrideEventData{
		Container: c.FullName(), With: other.FullName(), Providers: names,
	})
	return nil
}

// ResetLastOverriding undoes the last Override.
func (c *Container) ResetLastOverriding() error {
	c.mu.Lock()
	if len(c.overriding) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: container %s", ErrNoOverridingToReset, c.FullName())
	}
	other := c.overriding[len(c.overriding)-1]
	c.overriding = c.overriding[:len(c.overriding)-1]
	c.mu.Unlock()
	var errs []error
	for _, name := range other.Names() {
		if mine, err := c.Provider(name); err == nil {
			errs = append(errs, mine.ResetLastOverriding())
		}
	}
	c.clearAsync()
	return errors.Join(errs...)
}

// ResetOverride clears the overriding stacks of the container and of all
// its providers.
func (c *Container) ResetOverride() {
	c.mu.Lock()
	c.overriding = nil
	c.mu.Unlock()
	for _, p := range c.Providers() {
		p.ResetOverride()
	}
	c.clearAsync()
}

// Overridden returns the containers overriding c, oldest first.
func (c *Container) Overridden() []*Container {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.overriding)
}

// OverrideProviders overrides the named providers and returns a function
// restoring them. Nothing stays overridden when an error is returned.
func (c *Container) OverrideProviders(overrides ...Kwarg) (restore func(), err error) {
	var done []Provider
	restore = func() {
		for i := len(done) - 1; i >= 0; i-- {
			_ = done[i].ResetLastOverriding()
		}
		c.clearAsync()
	}
	for _, o := range overrides {
		p, err := c.Provider(o.Name)
		if err != nil {
			restore()
			return func() {}, err
		}
		if err := p.Override(o.Value); err != nil {
			restore()
			return func() {}, err
		}
		done = append(done, p)
	}
	c.clearAsync()
	return restore, nil
}

// CheckDependencies returns the full path of every Dependency reachable from
// the container that is neither overridden nor defaulted. An empty result
// means the container is ready for use.
func (c *Container) CheckDependencies() []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range c.Traverse(KindDependency) {
		d, ok := p.(*Dependency)
		if !ok || d.Satisfied() {
			continue
		}
		name := FullName(d)
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// ValidateDependencies fails with ErrUndefinedDependency listing every
// unresolved dependency path. Call it at startup to fail fast.
func (c *Container) ValidateDependencies(ctx context.Context) error {
	missing := c.CheckDependencies()
	if len(missing) == 0 {
		return nil
	}
	c.logger.Error("Unresolved dependencies", "container", c.FullName(), "dependencies", missing)
	c.emit(ctx, EventTypeDependenciesUnresolved, DependenciesEventData{Unresolved: missing})
	errs := make([]error, len(missing))
	for i, m := range missing {
		errs[i] = fmt.Errorf("%w: %s", ErrUndefinedDependency, m)
	}
	return errors.Join(errs...)
}

// Traverse returns the providers reachable from the container, including
// nested containers, optionally filtered by kind.
func (c *Container) Traverse(kinds ...Kind) []Provider {
	return Traverse(c.Providers(), kinds...)
}

// ResetSingletons drops the cached values of every singleton reachable from
// the container, in every local scope.
func (c *Container) ResetSingletons(ctx context.Context) {
	for _, p := range c.Traverse(KindSingleton, KindThreadSafeSingleton, KindThreadLocalSingleton) {
		switch s := p.(type) {
		case *ThreadLocalSingleton:
			s.ResetAll()
		case Resetter:
			s.Reset(ctx)
		}
	}
}

// IsAsync reports whether resolving p may wait on an async resource. The
// answer is computed once per provider and kept until the container's
// wiring changes through Set or an override.
func (c *Container) IsAsync(p Provider) bool {
	c.asyncMu.Lock()
	defer c.asyncMu.Unlock()
	if v, ok := c.async[p]; ok {
		return v
	}
	v := IsAsync(p)
	if c.async == nil {
		c.async = make(map[Provider]bool)
	}
	c.async[p] = v
	return v
}

func (c *Container) clearAsync() {
	c.asyncMu.Lock()
	defer c.asyncMu.Unlock()
	c.async = nil
}

// IsAsync reports whether p is an async resource or depends on one,
// transitively.
func IsAsync(p Provider) bool {
	for _, q := range Traverse([]Provider{p}, KindResource) {
		if r, ok := q.(*Resource); ok && r.Async() {
			return true
		}
	}
	return false
}

// Copy returns an independent instance of the container. Providers get new
// identities and empty caches; sharing between providers is preserved.
func (c *Container) Copy(memo Memo) (*Container, error) {
	if memo == nil {
		memo = NewMemo()
	}
	if cp, ok := memo[c]; ok {
		return cp.(*Container), nil
	}
	cp := newContainer(c.name)
	cp.logger = c.logger
	cp.decl = c.decl
	memo[c] = cp
	memo[c.self] = cp.self
	if c.decl != nil && c.decl.template == c {
		for a := c.decl.parent; a != nil; a = a.parent {
			if _, ok := memo[a.template]; !ok {
				memo[a.template] = cp
				memo[a.template.self] = cp.self
			}
		}
	}

	c.observers.mu.RLock()
	for id, reg := range c.observers.regs {
		if cp.observers.regs == nil {
			cp.observers.regs = make(map[string]*observerRegistration)
		}
		cp.observers.regs[id] = reg
	}
	c.observers.mu.RUnlock()

	c.mu.RLock()
	names := slices.Clone(c.names)
	c.mu.RUnlock()
	for _, name := range names {
		p, _ := c.Provider(name)
		pc, err := copyProvider(p, memo)
		if err != nil {
			return nil, err
		}
		cp.register(name, pc)
	}
	for _, o := range c.Overridden() {
		if mapped, ok := memo[o]; ok {
			o = mapped.(*Container)
		}
		cp.overriding = append(cp.overriding, o)
	}
	return cp, nil
}

// RegisterObserver subscribes observer to container events. With no event
// types it receives all events.
func (c *Container) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return fmt.Errorf("%w: nil observer", ErrInvalidArguments)
	}
	c.observers.register(observer, eventTypes)
	c.logger.Debug("Observer registered", "container", c.FullName(), "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes observer. Unknown observers are ignored.
func (c *Container) UnregisterObserver(observer Observer) error {
	if c.observers.unregister(observer.ObserverID()) {
		c.logger.Debug("Observer unregistered", "container", c.FullName(), "observerID", observer.ObserverID())
	}
	return nil
}

// NotifyObservers delivers event to the subscribed observers.
func (c *Container) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	return c.observers.notify(ctx, c.logger, event)
}

// GetObservers describes the registered observers.
func (c *Container) GetObservers() []ObserverInfo {
	return c.observers.info()
}

func (c *Container) emit(ctx context.Context, eventType string, data any) {
	if len(c.observers.interested(eventType)) == 0 {
		return
	}
	event, err := NewEvent(c.FullName(), eventType, data)
	if err != nil {
		c.logger.Error("Failed to build event", "event", eventType, "error", err)
		return
	}
	if err := c.NotifyObservers(ctx, event); err != nil {
		c.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}
