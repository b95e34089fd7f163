package injector

import (
	"context"
	"sync"
)

// Resetter is implemented by providers that cache values.
type Resetter interface {
	// Reset drops the cached value. Thread-local singletons drop only the
	// value of the caller's scope.
	Reset(ctx context.Context)

	// FullReset resets the provider and every caching provider it
	// references, transitively.
	FullReset(ctx context.Context)
}

// slot is a single cached value.
type slot struct {
	mu    sync.Mutex
	ready bool
	value any
}

func (s *slot) get() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.ready
}

// store keeps the first stored value and returns the cached one.
func (s *slot) store(v any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		s.value, s.ready = v, true
	}
	return s.value
}

func (s *slot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.ready = nil, false
}

func fullReset(ctx context.Context, root Provider) {
	for _, p := range Traverse([]Provider{root}) {
		if r, ok := p.(Resetter); ok {
			r.Reset(ctx)
		}
	}
}

// Singleton computes its value once and returns the cached value on every
// later resolution. It does not synchronize the first computation; use
// ThreadSafeSingleton when concurrent first calls are possible.
type Singleton struct {
	base
	factoryCore
	cache slot
}

// NewSingleton returns a Singleton built by fn with args.
// fn must return (T) or (T, error); NewSingleton panics otherwise.
func NewSingleton(fn any, args ...any) *Singleton {
	s := &Singleton{}
	s.init(s)
	s.setup(fn, args)
	return s
}

func (s *Singleton) Kind() Kind { return KindSingleton }

func (s *Singleton) Provide(ctx context.Context, args ...any) (any, error) {
	if p := s.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	if v, ok := s.cache.get(); ok {
		return v, nil
	}
	ctx, err := enter(ctx, s)
	if err != nil {
		return nil, err
	}
	v, err := s.build(ctx, args)
	if err != nil {
		return nil, err
	}
	return s.cache.store(v), nil
}

// Cached reports whether the singleton holds a value.
func (s *Singleton) Cached() bool {
	_, ok := s.cache.get()
	return ok
}

func (s *Singleton) Reset(context.Context) { s.cache.clear() }

func (s *Singleton) FullReset(ctx context.Context) { fullReset(ctx, s) }

func (s *Singleton) Related() []Provider {
	return append(s.relatedArgs(), s.Overridden()...)
}

func (s *Singleton) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[s]; ok {
		return cp.(Provider), nil
	}
	cp := &Singleton{}
	cp.init(cp)
	memo[s] = cp
	if err := s.copyTo(&cp.factoryCore, s, memo); err != nil {
		return nil, err
	}
	if err := s.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// ThreadSafeSingleton is a Singleton whose first computation is guarded by
// a lock, so concurrent first callers share one value. The lock is not
// taken once the value is cached.
type ThreadSafeSingleton struct {
	base
	factoryCore
	cache slot
}

// NewThreadSafeSingleton returns a ThreadSafeSingleton built by fn with args.
func NewThreadSafeSingleton(fn any, args ...any) *ThreadSafeSingleton {
	s := &ThreadSafeSingleton{}
	s.init(s)
	s.setup(fn, args)
	return s
}

func (s *ThreadSafeSingleton) Kind() Kind { return KindThreadSafeSingleton }

func (s *ThreadSafeSingleton) Provide(ctx context.Context, args ...any) (any, error) {
	if p := s.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	if v, ok := s.cache.get(); ok {
		return v, nil
	}
	ctx, err := enter(ctx, s)
	if err != nil {
		return nil, err
	}
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	if s.cache.ready {
		return s.cache.value, nil
	}
	v, err := s.build(ctx, args)
	if err != nil {
		return nil, err
	}
	s.cache.value, s.cache.ready = v, true
	return v, nil
}

// Cached reports whether the singleton holds a value.
func (s *ThreadSafeSingleton) Cached() bool {
	_, ok := s.cache.get()
	return ok
}

func (s *ThreadSafeSingleton) Reset(context.Context) { s.cache.clear() }

func (s *ThreadSafeSingleton) FullReset(ctx context.Context) { fullReset(ctx, s) }

func (s *ThreadSafeSingleton) Related() []Provider {
	return append(s.relatedArgs(), s.Overridden()...)
}

func (s *ThreadSafeSingleton) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[s]; ok {
		return cp.(Provider), nil
	}
	cp := &ThreadSafeSingleton{}
	cp.init(cp)
	memo[s] = cp
	if err := s.copyTo(&cp.factoryCore, s, memo); err != nil {
		return nil, err
	}
	if err := s.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// ThreadLocalSingleton caches one value per local scope. The scope is the
// one attached with WithLocalScope, or the calling goroutine when the
// context carries none. Values cached for goroutines are kept until reset;
// long-running programs should prefer explicit scopes.
type ThreadLocalSingleton struct {
	base
	factoryCore
	cacheMu sync.Mutex
	values  map[any]any
}

// NewThreadLocalSingleton returns a ThreadLocalSingleton built by fn with args.
func NewThreadLocalSingleton(fn any, args ...any) *ThreadLocalSingleton {
	s := &ThreadLocalSingleton{}
	s.init(s)
	s.setup(fn, args)
	return s
}

func (s *ThreadLocalSingleton) Kind() Kind { return KindThreadLocalSingleton }

func (s *ThreadLocalSingleton) Provide(ctx context.Context, args ...any) (any, error) {
	if p := s.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	key := localKey(ctx)
	s.cacheMu.Lock()
	v, ok := s.values[key]
	s.cacheMu.Unlock()
	if ok {
		return v, nil
	}
	ctx, err := enter(ctx, s)
	if err != nil {
		return nil, err
	}
	v, err = s.build(ctx, args)
	if err != nil {
		return nil, err
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.values == nil {
		s.values = make(map[any]any)
	}
	if cached, ok := s.values[key]; ok {
		return cached, nil
	}
	s.values[key] = v
	return v, nil
}

// Cached reports whether a value is cached for the caller's scope.
func (s *ThreadLocalSingleton) Cached(ctx context.Context) bool {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	_, ok := s.values[localKey(ctx)]
	return ok
}

// Reset drops the value cached for the caller's scope only.
func (s *ThreadLocalSingleton) Reset(ctx context.Context) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.values, localKey(ctx))
}

// ResetAll drops the values of every scope.
func (s *ThreadLocalSingleton) ResetAll() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.values = nil
}

func (s *ThreadLocalSingleton) FullReset(ctx context.Context) { fullReset(ctx, s) }

func (s *ThreadLocalSingleton) Related() []Provider {
	return append(s.relatedArgs(), s.Overridden()...)
}

func (s *ThreadLocalSingleton) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[s]; ok {
		return cp.(Provider), nil
	}
	cp := &ThreadLocalSingleton{}
	cp.init(cp)
	memo[s] = cp
	if err := s.copyTo(&cp.factoryCore, s, memo); err != nil {
		return nil, err
	}
	if err := s.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
