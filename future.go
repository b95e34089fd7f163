package injector

import (
	"context"
	"sync"
)

// Future is the pending result of an asynchronous resolution.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolvedFuture returns a Future that is already complete.
func resolvedFuture(v any, err error) *Future {
	f := newFuture()
	f.complete(v, err)
	return f
}

func (f *Future) complete(v any, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProvideAsync resolves p on a new goroutine and returns its Future. Use it
// for providers that depend on async resources, see IsAsync.
func ProvideAsync(ctx context.Context, p Provider, args ...any) *Future {
	f := newFuture()
	go func() {
		v, err := p.Provide(ctx, args...)
		f.complete(v, err)
	}()
	return f
}
