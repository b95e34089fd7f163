package injector

import (
	"context"
	"sync"
)

// Provide resolves p. It is shorthand for p.Provide that tolerates a nil
// context.
func Provide(ctx context.Context, p Provider, args ...any) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.Provide(ctx, args...)
}

// OverrideScoped overrides p with with and returns a function that undoes
// it. The restore function is safe to call more than once:
//
//	restore, err := injector.OverrideScoped(db, fakeDB)
//	if err != nil {
//		t.Fatal(err)
//	}
//	defer restore()
func OverrideScoped(p Provider, with any) (restore func(), err error) {
	if err := p.Override(with); err != nil {
		return func() {}, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { _ = p.ResetLastOverriding() })
	}, nil
}

// WithOverride runs fn while p is overridden with with. The override is
// undone when fn returns or panics.
func WithOverride(p Provider, with any, fn func() error) error {
	restore, err := OverrideScoped(p, with)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}

// WithReset runs fn between two resets of r, so fn observes a fresh value
// and leaves none behind.
func WithReset(ctx context.Context, r Resetter, fn func() error) error {
	r.Reset(ctx)
	defer r.Reset(ctx)
	return fn()
}
