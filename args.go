package injector

import (
	"context"
	"fmt"
	"sync"
)

// Kwarg is a keyword argument. Pass it among positional arguments when
// declaring a provider or calling Provide:
//
//	svc := injector.NewFactory(NewService, db, injector.Kw("timeout", 5*time.Second))
//	v, err := svc.Provide(ctx, injector.Kw("timeout", time.Second))
type Kwarg struct {
	Name  string
	Value any
}

// Kw builds a keyword argument.
func Kw(name string, value any) Kwarg {
	return Kwarg{Name: name, Value: value}
}

// Kwargs is the resolved keyword argument set handed to a target function
// whose last parameter has this type.
type Kwargs map[string]any

// splitArgs separates keyword arguments from positional ones, keeping order.
func splitArgs(items []any) (pos []any, kw []Kwarg) {
	for _, item := range items {
		if k, ok := item.(Kwarg); ok {
			kw = setKwarg(kw, k)
			continue
		}
		pos = append(pos, item)
	}
	return pos, kw
}

// setKwarg replaces an existing keyword in place or appends it.
func setKwarg(kw []Kwarg, k Kwarg) []Kwarg {
	for i := range kw {
		if kw[i].Name == k.Name {
			kw[i].Value = k.Value
			return kw
		}
	}
	return append(kw, k)
}

// arguments is the mutable, ordered argument set of a provider.
type arguments struct {
	mu  sync.RWMutex
	pos []any
	kw  []Kwarg
}

func (a *arguments) init(items []any) {
	a.pos, a.kw = splitArgs(items)
}

// Args returns a copy of the stored positional arguments.
func (a *arguments) Args() []any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]any, len(a.pos))
	copy(out, a.pos)
	return out
}

// Kwargs returns a copy of the stored keyword arguments in declaration order.
func (a *arguments) Kwargs() []Kwarg {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Kwarg, len(a.kw))
	copy(out, a.kw)
	return out
}

// Kwarg returns a stored keyword argument.
func (a *arguments) Kwarg(name string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, k := range a.kw {
		if k.Name == name {
			return k.Value, true
		}
	}
	return nil, false
}

// AddArgs appends positional arguments.
func (a *arguments) AddArgs(args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = append(a.pos, args...)
}

// SetArgs replaces the positional arguments.
func (a *arguments) SetArgs(args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = append([]any(nil), args...)
}

// ClearArgs drops all positional arguments.
func (a *arguments) ClearArgs() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = nil
}

// AddKwargs adds or replaces keyword arguments.
func (a *arguments) AddKwargs(kwargs ...Kwarg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, k := range kwargs {
		a.kw = setKwarg(a.kw, k)
	}
}

// SetKwargs replaces the keyword arguments.
func (a *arguments) SetKwargs(kwargs ...Kwarg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kw = nil
	for _, k := range kwargs {
		a.kw = setKwarg(a.kw, k)
	}
}

// ClearKwargs drops all keyword arguments.
func (a *arguments) ClearKwargs() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kw = nil
}

// providers lists the providers referenced by the arguments, positional first.
func (a *arguments) providers() []Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Provider
	for _, v := range a.pos {
		if p, ok := v.(Provider); ok {
			out = append(out, p)
		}
	}
	for _, k := range a.kw {
		if p, ok := k.Value.(Provider); ok {
			out = append(out, p)
		}
	}
	return out
}

// resolve resolves stored arguments and merges the call arguments: stored
// positionals first, call positionals appended, call keywords winning.
func (a *arguments) resolve(ctx context.Context, call []any) ([]any, []Kwarg, error) {
	a.mu.RLock()
	storedPos := append([]any(nil), a.pos...)
	storedKw := append([]Kwarg(nil), a.kw...)
	a.mu.RUnlock()

	callPos, callKw := splitArgs(call)

	pos := make([]any, 0, len(storedPos)+len(callPos))
	for i, v := range storedPos {
		rv, err := resolveValue(ctx, v)
		if err != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i, err)
		}
		pos = append(pos, rv)
	}
	for _, v := range callPos {
		pos = append(pos, unwrapValue(v))
	}

	kw := make([]Kwarg, 0, len(storedKw)+len(callKw))
	for _, k := range storedKw {
		if _, overridden := findKwarg(callKw, k.Name); overridden {
			kw = append(kw, Kwarg{Name: k.Name})
			continue
		}
		rv, err := resolveValue(ctx, k.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("keyword %q: %w", k.Name, err)
		}
		kw = append(kw, Kwarg{Name: k.Name, Value: rv})
	}
	for _, k := range callKw {
		kw = setKwarg(kw, Kwarg{Name: k.Name, Value: unwrapValue(k.Value)})
	}
	return pos, kw, nil
}

func findKwarg(kw []Kwarg, name string) (any, bool) {
	for _, k := range kw {
		if k.Name == name {
			return k.Value, true
		}
	}
	return nil, false
}

// resolveValue resolves providers and unwraps non-copyable markers; other
// values pass through unchanged.
func resolveValue(ctx context.Context, v any) (any, error) {
	if p, ok := v.(Provider); ok {
		return p.Provide(ctx)
	}
	return unwrapValue(v), nil
}

func unwrapValue(v any) any {
	if n, ok := v.(*nonCopyable); ok {
		return n.value
	}
	return v
}

func kwargsMap(kw []Kwarg) Kwargs {
	out := make(Kwargs, len(kw))
	for _, k := range kw {
		out[k.Name] = k.Value
	}
	return out
}
