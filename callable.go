package injector

import (
	"context"
	"fmt"
)

// factoryCore is the call machinery shared by Callable, Factory and the
// singleton family.
type factoryCore struct {
	arguments
	target *target
	attrs  arguments
}

func (f *factoryCore) setup(fn any, args []any) {
	t, err := newTarget(fn)
	if err == nil {
		err = checkValueShape(t)
	}
	if err != nil {
		panic(err)
	}
	f.target = t
	f.arguments.init(args)
}

// Target returns the wrapped function.
func (f *factoryCore) Target() any {
	return f.target.fn.Interface()
}

// AddAttributes registers keyword values assigned to fields of the built
// object after construction. The target must return a pointer to a struct.
func (f *factoryCore) AddAttributes(attrs ...Kwarg) {
	f.attrs.AddKwargs(attrs...)
}

// Attributes returns the registered attributes.
func (f *factoryCore) Attributes() []Kwarg {
	return f.attrs.Kwargs()
}

func (f *factoryCore) build(ctx context.Context, call []any) (any, error) {
	pos, kw, err := f.resolve(ctx, call)
	if err != nil {
		return nil, err
	}
	out, err := f.target.call(ctx, pos, kw)
	if err != nil {
		return nil, err
	}
	v, err := valueResult(f.target, out)
	if err != nil {
		return nil, err
	}
	if attrs := f.attrs.Kwargs(); len(attrs) > 0 {
		_, resolved, err := f.attrs.resolve(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("attributes: %w", err)
		}
		if err := setAttributes(v, resolved); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (f *factoryCore) relatedArgs() []Provider {
	return append(f.providers(), f.attrs.providers()...)
}

func (f *factoryCore) copyTo(dst *factoryCore, owner Provider, memo Memo) error {
	dst.target = f.target
	if err := copyArguments(&f.arguments, &dst.arguments, owner, memo); err != nil {
		return err
	}
	return copyArguments(&f.attrs, &dst.attrs, owner, memo)
}

// Callable calls a function on every resolution.
type Callable struct {
	base
	factoryCore
}

// NewCallable returns a provider calling fn with args on every resolution.
// fn must return (T) or (T, error); NewCallable panics otherwise.
func NewCallable(fn any, args ...any) *Callable {
	c := &Callable{}
	c.init(c)
	c.setup(fn, args)
	return c
}

func (c *Callable) Kind() Kind { return KindCallable }

func (c *Callable) Provide(ctx context.Context, args ...any) (any, error) {
	if p := c.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	return c.build(ctx, args)
}

func (c *Callable) Related() []Provider {
	return append(c.relatedArgs(), c.Overridden()...)
}

func (c *Callable) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[c]; ok {
		return cp.(Provider), nil
	}
	cp := &Callable{}
	cp.init(cp)
	memo[c] = cp
	if err := c.copyTo(&cp.factoryCore, c, memo); err != nil {
		return nil, err
	}
	if err := c.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// Factory builds a new object on every resolution. It resolves exactly like
// Callable; the separate kind marks constructors for inspection and
// supports post-construction attributes.
type Factory struct {
	base
	factoryCore
}

// NewFactory returns a provider constructing a new object with fn on every
// resolution. fn must return (T) or (T, error); NewFactory panics otherwise.
func NewFactory(fn any, args ...any) *Factory {
	f := &Factory{}
	f.init(f)
	f.setup(fn, args)
	return f
}

func (f *Factory) Kind() Kind { return KindFactory }

func (f *Factory) Provide(ctx context.Context, args ...any) (any, error) {
	if p := f.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	return f.build(ctx, args)
}

func (f *Factory) Related() []Provider {
	return append(f.relatedArgs(), f.Overridden()...)
}

func (f *Factory) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[f]; ok {
		return cp.(Provider), nil
	}
	cp := &Factory{}
	cp.init(cp)
	memo[f] = cp
	if err := f.copyTo(&cp.factoryCore, f, memo); err != nil {
		return nil, err
	}
	if err := f.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
