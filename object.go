package injector

import (
	"context"
	"errors"
)

// Object provides a stored value as-is. The value is never resolved, so an
// Object can hand out another provider without calling it.
type Object struct {
	base
	value any
}

// NewObject returns a provider of v.
func NewObject(v any) *Object {
	o := &Object{value: v}
	o.init(o)
	return o
}

func (o *Object) Kind() Kind { return KindObject }

// Provide returns the stored value, or delegates to the last override.
func (o *Object) Provide(ctx context.Context, args ...any) (any, error) {
	if p := o.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	return unwrapValue(o.value), nil
}

// Value returns the stored value without consulting the overriding stack.
func (o *Object) Value() any {
	return unwrapValue(o.value)
}

func (o *Object) Related() []Provider {
	return o.Overridden()
}

// Copy copies the stored value like a literal argument: providers go
// through the graph copy, maps and slices are deep-copied and NonCopyable
// values are shared. Channels and live handles fail with a
// *NonCopyableArgumentError.
func (o *Object) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[o]; ok {
		return cp.(Provider), nil
	}
	cp := &Object{}
	cp.init(cp)
	memo[o] = cp
	v, err := copyValue(o.value, memo)
	if err != nil {
		if errors.As(err, new(*NonCopyableArgumentError)) {
			return nil, err
		}
		return nil, &NonCopyableArgumentError{Provider: FullName(o), Value: unwrapValue(o.value)}
	}
	cp.value = v
	if err := o.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
