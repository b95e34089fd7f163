package injector

import (
	"context"
	"fmt"
	"slices"
)

type branches []Kwarg

func newBranches(kind Kind, items []Kwarg) branches {
	out := make(branches, 0, len(items))
	for _, k := range items {
		p, ok := k.Value.(Provider)
		if !ok {
			panic(fmt.Errorf("%w: %s branch %q is %T", ErrNotAProvider, kind, k.Name, k.Value))
		}
		out = slices.DeleteFunc(out, func(b Kwarg) bool { return b.Name == k.Name })
		out = append(out, Kwarg{Name: k.Name, Value: p})
	}
	return out
}

func (b branches) get(name string) (Provider, bool) {
	for _, k := range b {
		if k.Name == name {
			return k.Value.(Provider), true
		}
	}
	return nil, false
}

func (b branches) names() []string {
	out := make([]string, len(b))
	for i, k := range b {
		out[i] = k.Name
	}
	return out
}

func (b branches) providers() []Provider {
	out := make([]Provider, len(b))
	for i, k := range b {
		out[i] = k.Value.(Provider)
	}
	return out
}

func (b branches) copy(memo Memo) (branches, error) {
	out := make(branches, len(b))
	for i, k := range b {
		cp, err := copyProvider(k.Value.(Provider), memo)
		if err != nil {
			return nil, err
		}
		out[i] = Kwarg{Name: k.Name, Value: cp}
	}
	return out, nil
}

// Selector resolves the branch named by the value of its selector provider,
// typically a ConfigurationOption:
//
//	storage := injector.NewSelector(cfg.Option("storage.kind"),
//		injector.Kw("s3", s3Store),
//		injector.Kw("local", localStore),
//	)
type Selector struct {
	base
	selector Provider
	branches branches
}

// NewSelector returns a Selector. Every branch value must be a Provider;
// NewSelector panics otherwise.
func NewSelector(selector Provider, branches ...Kwarg) *Selector {
	if selector == nil {
		panic(fmt.Errorf("%w: nil selector", ErrNotAProvider))
	}
	s := &Selector{selector: selector, branches: newBranches(KindSelector, branches)}
	s.init(s)
	return s
}

func (s *Selector) Kind() Kind { return KindSelector }

func (s *Selector) Provide(ctx context.Context, args ...any) (any, error) {
	if p := s.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	v, err := s.selector.Provide(ctx)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprint(v)
	branch, ok := s.branches.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no branch %q (have %v)", ErrNoSuchFactory, FullName(s), name, s.branches.names())
	}
	return branch.Provide(ctx, args...)
}

// Branches returns the branch names in declaration order.
func (s *Selector) Branches() []string { return s.branches.names() }

func (s *Selector) Related() []Provider {
	out := append([]Provider{s.selector}, s.branches.providers()...)
	return append(out, s.Overridden()...)
}

func (s *Selector) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[s]; ok {
		return cp.(Provider), nil
	}
	cp := &Selector{}
	cp.init(cp)
	memo[s] = cp
	sel, err := copyProvider(s.selector, memo)
	if err != nil {
		return nil, err
	}
	cp.selector = sel
	if cp.branches, err = s.branches.copy(memo); err != nil {
		return nil, err
	}
	if err := s.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// Aggregate groups named providers. The first call argument names the
// branch to resolve; the remaining arguments are passed to it:
//
//	v, err := renderers.Provide(ctx, "json", injector.Kw("indent", 2))
type Aggregate struct {
	base
	branches branches
}

// NewAggregate returns an Aggregate of the given branches.
func NewAggregate(branches ...Kwarg) *Aggregate {
	a := &Aggregate{branches: newBranches(KindAggregate, branches)}
	a.init(a)
	return a
}

func (a *Aggregate) Kind() Kind { return KindAggregate }

func (a *Aggregate) Provide(ctx context.Context, args ...any) (any, error) {
	if p := a.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSelector, FullName(a))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s got %T", ErrNoSelector, FullName(a), args[0])
	}
	branch, ok := a.branches.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no branch %q (have %v)", ErrNoSuchFactory, FullName(a), name, a.branches.names())
	}
	return branch.Provide(ctx, args[1:]...)
}

// Branch returns the provider registered under name.
func (a *Aggregate) Branch(name string) (Provider, bool) {
	return a.branches.get(name)
}

// Branches returns the branch names in declaration order.
func (a *Aggregate) Branches() []string { return a.branches.names() }

func (a *Aggregate) Related() []Provider {
	return append(a.branches.providers(), a.Overridden()...)
}

func (a *Aggregate) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[a]; ok {
		return cp.(Provider), nil
	}
	cp := &Aggregate{}
	cp.init(cp)
	memo[a] = cp
	var err error
	if cp.branches, err = a.branches.copy(memo); err != nil {
		return nil, err
	}
	if err := a.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
