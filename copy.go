package injector

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

// Memo maps the identity of an original node to its copy. Copy consults it
// before duplicating anything, so a node shared by several dependents is
// copied once and the copies share it too.
type Memo map[any]any

// NewMemo returns an empty memo.
func NewMemo() Memo {
	return make(Memo)
}

// Copier is implemented by argument values that know how to duplicate
// themselves during a graph copy.
type Copier interface {
	DeepCopy() any
}

type nonCopyable struct {
	value any
}

// NonCopyable marks an argument value to be referenced as-is by graph
// copies, such as an open connection shared by all container instances.
// Resolution unwraps the marker.
func NonCopyable(v any) any {
	return &nonCopyable{value: v}
}

// Copy returns a structural clone of a Provider or *Container. Every
// reachable provider gets a new identity with an empty cache; sharing is
// preserved through memo, which may be nil.
func Copy[T any](src T, memo Memo) (T, error) {
	var zero T
	if memo == nil {
		memo = NewMemo()
	}
	var (
		out any
		err error
	)
	switch v := any(src).(type) {
	case *Container:
		out, err = v.Copy(memo)
	case Provider:
		out, err = copyProvider(v, memo)
	default:
		return zero, fmt.Errorf("%w: cannot copy %T", ErrNotAProvider, src)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

func copyProvider(p Provider, memo Memo) (Provider, error) {
	if cp, ok := memo[p]; ok {
		return cp.(Provider), nil
	}
	return p.Copy(memo)
}

// copyArguments deep-copies src into dst, naming the owner on failure.
func copyArguments(src, dst *arguments, owner Provider, memo Memo) error {
	pos := src.Args()
	kw := src.Kwargs()
	dst.pos = make([]any, len(pos))
	for i, v := range pos {
		cp, err := copyValue(v, memo)
		if err != nil {
			if errors.As(err, new(*NonCopyableArgumentError)) {
				return err
			}
			return &NonCopyableArgumentError{Provider: FullName(owner), Index: i, Value: unwrapValue(v)}
		}
		dst.pos[i] = cp
	}
	dst.kw = make([]Kwarg, len(kw))
	for i, k := range kw {
		cp, err := copyValue(k.Value, memo)
		if err != nil {
			if errors.As(err, new(*NonCopyableArgumentError)) {
				return err
			}
			return &NonCopyableArgumentError{Provider: FullName(owner), Index: -1, Keyword: k.Name, Value: unwrapValue(k.Value)}
		}
		dst.kw[i] = Kwarg{Name: k.Name, Value: cp}
	}
	return nil
}

type refKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

// copyValue duplicates a literal argument. Providers go through the graph
// copy; non-copyable markers, funcs and nil are kept; channels and live
// handles are rejected.
func copyValue(v any, memo Memo) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Provider:
		return copyProvider(x, memo)
	case *nonCopyable:
		return x, nil
	case *Container:
		return x.Copy(memo)
	case Copier:
		if !reflect.TypeOf(x).Comparable() {
			return x.DeepCopy(), nil
		}
		if cp, ok := memo[x]; ok {
			return cp, nil
		}
		cp := x.DeepCopy()
		memo[x] = cp
		return cp, nil
	case io.Closer:
		return nil, ErrNonCopyableArgument
	}
	cp, err := copyReflect(reflect.ValueOf(v), memo)
	if err != nil {
		return nil, err
	}
	return cp.Interface(), nil
}

func copyReflect(v reflect.Value, memo Memo) (reflect.Value, error) {
	switch v.Kind() {
	case reflect.Chan, reflect.UnsafePointer:
		return reflect.Value{}, ErrNonCopyableArgument
	case reflect.Func:
		return v, nil
	case reflect.Interface:
		if v.IsNil() {
			return v, nil
		}
		inner, err := copyValue(v.Elem().Interface(), memo)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(v.Type()).Elem()
		if inner != nil {
			out.Set(reflect.ValueOf(inner))
		}
		return out, nil
	case reflect.Pointer:
		if v.IsNil() {
			return v, nil
		}
		key := refKey{typ: v.Type(), ptr: v.Pointer()}
		if cp, ok := memo[key]; ok {
			return cp.(reflect.Value), nil
		}
		out := reflect.New(v.Type().Elem())
		memo[key] = out
		out.Elem().Set(v.Elem())
		return out, nil
	case reflect.Map:
		if v.IsNil() {
			return v, nil
		}
		key := refKey{typ: v.Type(), ptr: v.Pointer()}
		if cp, ok := memo[key]; ok {
			return cp.(reflect.Value), nil
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		memo[key] = out
		iter := v.MapRange()
		for iter.Next() {
			ev, err := copyElem(iter.Value(), v.Type().Elem(), memo)
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(iter.Key(), ev)
		}
		return out, nil
	case reflect.Slice:
		if v.IsNil() {
			return v, nil
		}
		key := refKey{typ: v.Type(), ptr: v.Pointer(), len: v.Len()}
		if cp, ok := memo[key]; ok {
			return cp.(reflect.Value), nil
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		memo[key] = out
		for i := 0; i < v.Len(); i++ {
			ev, err := copyElem(v.Index(i), v.Type().Elem(), memo)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			ev, err := copyElem(v.Index(i), v.Type().Elem(), memo)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	default:
		return v, nil
	}
}

// copyElem copies a container element, keeping the element's static type.
func copyElem(v reflect.Value, elemType reflect.Type, memo Memo) (reflect.Value, error) {
	if elemType.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Zero(elemType), nil
		}
		inner, err := copyValue(v.Elem().Interface(), memo)
		if err != nil {
			return reflect.Value{}, err
		}
		if inner == nil {
			return reflect.Zero(elemType), nil
		}
		return reflect.ValueOf(inner), nil
	}
	if !v.CanInterface() {
		return v, nil
	}
	inner, err := copyValue(v.Interface(), memo)
	if err != nil {
		return reflect.Value{}, err
	}
	if inner == nil {
		return reflect.Zero(elemType), nil
	}
	return reflect.ValueOf(inner).Convert(elemType), nil
}
