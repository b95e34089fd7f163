package injector

import (
	"context"
	"fmt"
	"reflect"
)

// Dependency is a placeholder that must be satisfied from outside the
// container, either by overriding it or by declaring a default.
type Dependency struct {
	base
	def        any
	hasDefault bool
	instanceOf reflect.Type
}

// DependencyOption configures a Dependency.
type DependencyOption func(*Dependency)

// WithDefault declares the value used while the dependency is not
// overridden. A Provider default is resolved on every call.
func WithDefault(v any) DependencyOption {
	return func(d *Dependency) {
		d.def, d.hasDefault = v, true
	}
}

// WithInstanceOf makes resolution fail with ErrDependencyType unless the
// value is assignable to t.
func WithInstanceOf(t reflect.Type) DependencyOption {
	return func(d *Dependency) {
		d.instanceOf = t
	}
}

// InstanceOf is WithInstanceOf for the type parameter T.
func InstanceOf[T any]() DependencyOption {
	return WithInstanceOf(reflect.TypeOf((*T)(nil)).Elem())
}

// NewDependency returns an unsatisfied dependency placeholder.
func NewDependency(opts ...DependencyOption) *Dependency {
	d := &Dependency{}
	d.init(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dependency) Kind() Kind { return KindDependency }

func (d *Dependency) Provide(ctx context.Context, args ...any) (any, error) {
	var (
		v   any
		err error
	)
	switch p := d.last(); {
	case p != nil:
		v, err = p.Provide(ctx, args...)
	case d.hasDefault:
		if dp, ok := d.def.(Provider); ok {
			v, err = dp.Provide(ctx, args...)
		} else {
			v = unwrapValue(d.def)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUndefinedDependency, FullName(d))
	}
	if err != nil {
		return nil, err
	}
	if d.instanceOf != nil && v != nil && !reflect.TypeOf(v).AssignableTo(d.instanceOf) {
		return nil, fmt.Errorf("%w: %s wants %s, got %T", ErrDependencyType, FullName(d), d.instanceOf, v)
	}
	return v, nil
}

// Satisfied reports whether the dependency is overridden or has a default.
func (d *Dependency) Satisfied() bool {
	return d.hasDefault || d.IsOverridden()
}

// Default returns the declared default and whether one was declared.
func (d *Dependency) Default() (any, bool) {
	return d.def, d.hasDefault
}

// Type returns the required value type, or nil.
func (d *Dependency) Type() reflect.Type {
	return d.instanceOf
}

func (d *Dependency) Related() []Provider {
	var out []Provider
	if p, ok := d.def.(Provider); ok {
		out = append(out, p)
	}
	return append(out, d.Overridden()...)
}

func (d *Dependency) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[d]; ok {
		return cp.(Provider), nil
	}
	cp := &Dependency{hasDefault: d.hasDefault, instanceOf: d.instanceOf}
	cp.init(cp)
	memo[d] = cp
	if d.hasDefault {
		def, err := copyValue(d.def, memo)
		if err != nil {
			return nil, &NonCopyableArgumentError{Provider: FullName(d), Index: -1, Keyword: "default", Value: unwrapValue(d.def)}
		}
		cp.def = def
	}
	if err := d.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
