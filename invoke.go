package injector

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// In marks a struct parameter as a keyword-argument object. Embed it in the
// last parameter of a target function; exported fields are filled from
// keyword arguments matched by the `inject` tag or, failing that, by the
// case-insensitive field name:
//
//	type ServiceParams struct {
//		injector.In
//		DB      *sql.DB `inject:"db"`
//		Timeout time.Duration
//	}
//
//	func NewService(p ServiceParams) *Service
type In struct{}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	kwargsType  = reflect.TypeOf(Kwargs(nil))
	inType      = reflect.TypeOf(In{})
)

type kwMode int

const (
	kwNone kwMode = iota
	kwMap
	kwStruct
)

// target is a function called through reflection with resolved arguments.
type target struct {
	fn      reflect.Value
	typ     reflect.Type
	withCtx bool
	kwMode  kwMode
}

func newTarget(fn any) (*target, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: got nil", ErrInvalidCallable)
	}
	val := reflect.ValueOf(fn)
	typ := val.Type()
	if typ.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidCallable, fn)
	}
	t := &target{fn: val, typ: typ}
	if typ.NumIn() > 0 && typ.In(0) == contextType {
		t.withCtx = true
	}
	if n := typ.NumIn(); n > 0 && !(t.withCtx && n == 1) && !typ.IsVariadic() {
		last := typ.In(n - 1)
		switch {
		case last == kwargsType:
			t.kwMode = kwMap
		case isInStruct(last):
			t.kwMode = kwStruct
		}
	}
	return t, nil
}

func isInStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == inType {
			return true
		}
	}
	return false
}

func (t *target) String() string {
	return t.typ.String()
}

// call invokes the target and returns its raw results.
func (t *target) call(ctx context.Context, pos []any, kw []Kwarg) ([]reflect.Value, error) {
	numIn := t.typ.NumIn()
	in := make([]reflect.Value, 0, numIn+len(pos))

	first := 0
	if t.withCtx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
		first = 1
	}

	last := numIn
	if t.kwMode != kwNone {
		last--
	} else if len(kw) > 0 {
		return nil, fmt.Errorf("%w: %s does not accept keyword arguments (got %s)",
			ErrInvalidArguments, t, kwargNames(kw))
	}

	fixed := last - first
	if t.typ.IsVariadic() {
		fixed--
		if len(pos) < fixed {
			return nil, fmt.Errorf("%w: %s needs at least %d positional arguments, got %d",
				ErrInvalidArguments, t, fixed, len(pos))
		}
	} else if len(pos) != fixed {
		return nil, fmt.Errorf("%w: %s needs %d positional arguments, got %d",
			ErrInvalidArguments, t, fixed, len(pos))
	}

	for i, arg := range pos {
		var pt reflect.Type
		if i < fixed {
			pt = t.typ.In(first + i)
		} else {
			pt = t.typ.In(numIn - 1).Elem()
		}
		v, err := assignable(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrInvalidArguments, t, i, err)
		}
		in = append(in, v)
	}

	switch t.kwMode {
	case kwMap:
		in = append(in, reflect.ValueOf(kwargsMap(kw)))
	case kwStruct:
		v, err := fillStruct(t.typ.In(numIn-1), kw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, t, err)
		}
		in = append(in, v)
	}

	return t.fn.Call(in), nil
}

// assignable converts arg to a value usable as parameter type pt.
func assignable(arg any, pt reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch pt.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(pt), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", pt)
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(pt.Kind()) && v.Type().ConvertibleTo(pt) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), pt)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// fillStruct builds an In-struct from keyword arguments.
func fillStruct(st reflect.Type, kw []Kwarg) (reflect.Value, error) {
	out := reflect.New(st).Elem()
	used := make(map[string]bool, len(kw))
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && f.Type == inType {
			continue
		}
		if !f.IsExported() {
			continue
		}
		key := f.Tag.Get("inject")
		if key == "-" {
			continue
		}
		var (
			value any
			found bool
		)
		for _, k := range kw {
			if (key != "" && k.Name == key) || (key == "" && strings.EqualFold(k.Name, f.Name)) {
				value, found = k.Value, true
				used[k.Name] = true
				break
			}
		}
		if !found {
			continue
		}
		v, err := assignable(value, f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %v", f.Name, err)
		}
		out.Field(i).Set(v)
	}
	for _, k := range kw {
		if !used[k.Name] {
			return reflect.Value{}, fmt.Errorf("unexpected keyword argument %q", k.Name)
		}
	}
	return out, nil
}

// setAttributes assigns keyword values to exported fields of the struct
// behind obj, which must be a non-nil pointer to a struct.
func setAttributes(obj any, attrs []Kwarg) error {
	if len(attrs) == 0 {
		return nil
	}
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: attributes need a pointer to struct, got %T", ErrInvalidArguments, obj)
	}
	sv := v.Elem()
	st := sv.Type()
	for _, a := range attrs {
		idx := -1
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.IsExported() {
				continue
			}
			if tag := f.Tag.Get("inject"); tag == a.Name || (tag == "" && strings.EqualFold(f.Name, a.Name)) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s has no attribute %q", ErrInvalidArguments, st, a.Name)
		}
		fv, err := assignable(a.Value, st.Field(idx).Type)
		if err != nil {
			return fmt.Errorf("%w: attribute %q: %v", ErrInvalidArguments, a.Name, err)
		}
		sv.Field(idx).Set(fv)
	}
	return nil
}

// valueResult interprets (T) and (T, error) result shapes.
func valueResult(t *target, out []reflect.Value) (any, error) {
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s must return (T) or (T, error)", ErrInvalidCallable, t)
}

func checkValueShape(t *target) error {
	switch t.typ.NumOut() {
	case 1:
		return nil
	case 2:
		if t.typ.Out(1).Implements(errorType) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must return (T) or (T, error)", ErrInvalidCallable, t)
}

func kwargNames(kw []Kwarg) string {
	names := make([]string, len(kw))
	for i, k := range kw {
		names[i] = k.Name
	}
	return strings.Join(names, ", ")
}
