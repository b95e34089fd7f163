package injector

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ResourceState is the lifecycle state of a Resource.
type ResourceState int

const (
	Uninitialized ResourceState = iota
	Initializing
	Initialized
	ShuttingDown
)

func (s ResourceState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	case ShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("ResourceState(%d)", int(s))
	}
}

// ResourceInitializer is a resource implementation with explicit setup and
// teardown. Init receives the resolved arguments of the provider.
type ResourceInitializer interface {
	Init(ctx context.Context, args []any, kwargs Kwargs) (any, error)
	Shutdown(ctx context.Context, value any) error
}

// initSeq orders initializations across all resources.
var initSeq atomic.Uint64

// Resource provides a value with a setup and teardown lifecycle. The
// initializer is either a ResourceInitializer or a function returning one
// of:
//
//	T
//	(T, error)
//	(T, teardown)
//	(T, teardown, error)
//
// where teardown is func(), func() error or func(context.Context) error.
// The value is initialized on first resolution, or by InitResources, and is
// kept until Shutdown.
type Resource struct {
	base
	arguments
	target      *target
	teardownIdx int
	initializer ResourceInitializer
	async       bool

	group singleflight.Group

	lifeMu   sync.Mutex
	state    ResourceState
	value    any
	teardown func(context.Context) error
	seq      uint64
}

// NewResource returns a synchronous resource. It panics when init is
// neither a ResourceInitializer nor a function of a supported shape.
func NewResource(init any, args ...any) *Resource {
	r := &Resource{}
	r.base.init(r)
	r.arguments.init(args)
	if ri, ok := init.(ResourceInitializer); ok {
		r.initializer = ri
		return r
	}
	t, err := newTarget(init)
	if err == nil {
		r.teardownIdx, err = resourceShape(t)
	}
	if err != nil {
		panic(err)
	}
	r.target = t
	return r
}

// NewAsyncResource returns a resource whose initializer runs on its own
// goroutine. Provide still returns the value, waiting for it or for ctx;
// Future returns without waiting.
func NewAsyncResource(init any, args ...any) *Resource {
	r := NewResource(init, args...)
	r.async = true
	return r
}

// resourceShape validates the results of an initializer function and
// returns the index of the teardown result, or -1.
func resourceShape(t *target) (int, error) {
	typ := t.typ
	switch typ.NumOut() {
	case 1:
		return -1, nil
	case 2:
		if typ.Out(1).Implements(errorType) {
			return -1, nil
		}
		if isTeardown(typ.Out(1)) {
			return 1, nil
		}
	case 3:
		if isTeardown(typ.Out(1)) && typ.Out(2).Implements(errorType) {
			return 1, nil
		}
	}
	return -1, fmt.Errorf("%w: resource initializer %s must return T, (T, error), (T, teardown) or (T, teardown, error)",
		ErrInvalidCallable, t)
}

func isTeardown(t reflect.Type) bool {
	if t.Kind() != reflect.Func || t.IsVariadic() {
		return false
	}
	switch t.NumIn() {
	case 0:
	case 1:
		if t.In(0) != contextType {
			return false
		}
	default:
		return false
	}
	switch t.NumOut() {
	case 0:
		return true
	case 1:
		return t.Out(0) == errorType
	}
	return false
}

// asTeardown adapts a teardown result to a single signature.
func asTeardown(v reflect.Value) func(context.Context) error {
	if !v.IsValid() || v.IsNil() {
		return nil
	}
	return func(ctx context.Context) error {
		var in []reflect.Value
		if v.Type().NumIn() == 1 {
			if ctx == nil {
				ctx = context.Background()
			}
			in = append(in, reflect.ValueOf(ctx))
		}
		out := v.Call(in)
		if len(out) == 1 && !out[0].IsNil() {
			return out[0].Interface().(error)
		}
		return nil
	}
}

func (r *Resource) Kind() Kind { return KindResource }

// Async reports whether the initializer runs on its own goroutine.
func (r *Resource) Async() bool { return r.async }

// Provide initializes the resource if needed and returns its value.
func (r *Resource) Provide(ctx context.Context, args ...any) (any, error) {
	if p := r.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	return r.initialize(ctx, args)
}

// Init initializes the resource. It is a no-op returning the current value
// when the resource is already initialized.
func (r *Resource) Init(ctx context.Context) (any, error) {
	return r.Provide(ctx)
}

// Future starts initialization and returns without waiting for it.
func (r *Resource) Future(ctx context.Context) *Future {
	r.lifeMu.Lock()
	if r.state == Initialized && !r.IsOverridden() {
		v := r.value
		r.lifeMu.Unlock()
		return resolvedFuture(v, nil)
	}
	r.lifeMu.Unlock()
	return ProvideAsync(ctx, r)
}

func (r *Resource) initialize(ctx context.Context, call []any) (any, error) {
	r.lifeMu.Lock()
	if r.state == Initialized {
		v := r.value
		r.lifeMu.Unlock()
		return v, nil
	}
	r.lifeMu.Unlock()

	ctx, err := enter(ctx, r)
	if err != nil {
		return nil, err
	}
	if !r.async {
		v, err, _ := r.group.Do("init", func() (any, error) {
			return r.run(ctx, call)
		})
		return v, err
	}
	ch := r.group.DoChan("init", func() (any, error) {
		return r.run(context.WithoutCancel(ctx), call)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resource) run(ctx context.Context, call []any) (any, error) {
	r.lifeMu.Lock()
	if r.state == Initialized {
		v := r.value
		r.lifeMu.Unlock()
		return v, nil
	}
	r.state = Initializing
	r.lifeMu.Unlock()

	r.logger().Debug("Initializing resource", "resource", FullName(r), "async", r.async)
	v, teardown, err := r.call(ctx, call)

	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	if err != nil {
		r.state = Uninitialized
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceFailed, FullName(r), err)
	}
	r.state = Initialized
	r.value = v
	r.teardown = teardown
	r.seq = initSeq.Add(1)
	return v, nil
}

func (r *Resource) call(ctx context.Context, call []any) (any, func(context.Context) error, error) {
	pos, kw, err := r.resolve(ctx, call)
	if err != nil {
		return nil, nil, err
	}
	if ri := r.initializer; ri != nil {
		v, err := ri.Init(ctx, pos, kwargsMap(kw))
		if err != nil {
			return nil, nil, err
		}
		return v, func(ctx context.Context) error { return ri.Shutdown(ctx, v) }, nil
	}
	out, err := r.target.call(ctx, pos, kw)
	if err != nil {
		return nil, nil, err
	}
	if last := out[len(out)-1]; last.Type().Implements(errorType) && len(out) > 1 && !last.IsNil() {
		return nil, nil, last.Interface().(error)
	}
	var teardown func(context.Context) error
	if r.teardownIdx > 0 {
		teardown = asTeardown(out[r.teardownIdx])
	}
	return out[0].Interface(), teardown, nil
}

// Shutdown runs the teardown and returns the resource to Uninitialized.
// It is a no-op unless the resource is initialized.
func (r *Resource) Shutdown(ctx context.Context) error {
	r.lifeMu.Lock()
	if r.state != Initialized {
		r.lifeMu.Unlock()
		return nil
	}
	r.state = ShuttingDown
	teardown := r.teardown
	r.lifeMu.Unlock()

	r.logger().Debug("Shutting down resource", "resource", FullName(r))
	var err error
	if teardown != nil {
		err = teardown(ctx)
	}

	r.lifeMu.Lock()
	r.state = Uninitialized
	r.value = nil
	r.teardown = nil
	r.seq = 0
	r.lifeMu.Unlock()
	if err != nil {
		return fmt.Errorf("shutdown %s: %w", FullName(r), err)
	}
	return nil
}

// State returns the lifecycle state.
func (r *Resource) State() ResourceState {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	return r.state
}

// Initialized reports whether the resource holds a value.
func (r *Resource) Initialized() bool {
	return r.State() == Initialized
}

// sequence returns the initialization order stamp, 0 when uninitialized.
func (r *Resource) sequence() uint64 {
	r.lifeMu.Lock()
	defer r.lifeMu.Unlock()
	return r.seq
}

func (r *Resource) Related() []Provider {
	return append(r.providers(), r.Overridden()...)
}

// Copy returns an uninitialized copy sharing the initializer.
func (r *Resource) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[r]; ok {
		return cp.(Provider), nil
	}
	cp := &Resource{
		target:      r.target,
		teardownIdx: r.teardownIdx,
		initializer: r.initializer,
		async:       r.async,
	}
	cp.base.init(cp)
	memo[r] = cp
	if err := copyArguments(&r.arguments, &cp.arguments, r, memo); err != nil {
		return nil, err
	}
	if err := r.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
