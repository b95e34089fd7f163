package injector

import (
	"context"
	"fmt"
)

// ContainerRef nests a container inside another one. Resolving it returns
// the nested container. Forwarded providers satisfy the nested container's
// Dependency placeholders:
//
//	gateways := injector.NewContainerRef(gw, injector.Kw("database", db))
type ContainerRef struct {
	base
	sub      *Container
	forwards []Kwarg
}

// NewContainerRef nests sub. Each forward overrides the provider of sub with
// the same name; NewContainerRef panics when sub has no such provider or a
// forwarded value is not a Provider.
func NewContainerRef(sub *Container, forwards ...Kwarg) *ContainerRef {
	if sub == nil {
		panic(fmt.Errorf("%w: nil container", ErrNotAContainer))
	}
	r := &ContainerRef{sub: sub}
	r.init(r)
	for _, f := range forwards {
		p, ok := f.Value.(Provider)
		if !ok {
			panic(fmt.Errorf("%w: forward %q is %T", ErrNotAProvider, f.Name, f.Value))
		}
		target, err := sub.Provider(f.Name)
		if err != nil {
			panic(err)
		}
		if err := target.Override(p); err != nil {
			panic(err)
		}
		r.forwards = append(r.forwards, Kwarg{Name: f.Name, Value: p})
	}
	sub.mu.Lock()
	sub.ref = r
	sub.mu.Unlock()
	return r
}

func (r *ContainerRef) Kind() Kind { return KindContainer }

// Provide returns the nested container.
func (r *ContainerRef) Provide(ctx context.Context, args ...any) (any, error) {
	if p := r.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	return r.sub, nil
}

// Container returns the nested container.
func (r *ContainerRef) Container() *Container { return r.sub }

// Override overrides the nested container with another container, provider
// by provider. with must be a *Container or a *ContainerRef.
func (r *ContainerRef) Override(with any) error {
	var (
		other *Container
		p     Provider
	)
	switch v := with.(type) {
	case *ContainerRef:
		other, p = v.sub, v
	case *Container:
		other, p = v, NewObject(v)
	default:
		return fmt.Errorf("%w: %s got %T", ErrNotAContainer, FullName(r), with)
	}
	if p == Provider(r) || other == r.sub {
		return fmt.Errorf("%w: %s", ErrSelfOverride, FullName(r))
	}
	if err := r.sub.Override(other); err != nil {
		return err
	}
	if err := r.pushOverriding(p); err != nil {
		_ = r.sub.ResetLastOverriding()
		return err
	}
	return nil
}

func (r *ContainerRef) ResetLastOverriding() error {
	if err := r.base.ResetLastOverriding(); err != nil {
		return err
	}
	return r.sub.ResetLastOverriding()
}

func (r *ContainerRef) ResetOverride() {
	r.base.ResetOverride()
	r.sub.ResetOverride()
}

func (r *ContainerRef) Related() []Provider {
	out := r.sub.Providers()
	for _, f := range r.forwards {
		out = append(out, f.Value.(Provider))
	}
	return append(out, r.Overridden()...)
}

func (r *ContainerRef) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[r]; ok {
		return cp.(Provider), nil
	}
	cp := &ContainerRef{}
	cp.init(cp)
	memo[r] = cp
	for _, f := range r.forwards {
		fp, err := copyProvider(f.Value.(Provider), memo)
		if err != nil {
			return nil, err
		}
		cp.forwards = append(cp.forwards, Kwarg{Name: f.Name, Value: fp})
	}
	sub, err := r.sub.Copy(memo)
	if err != nil {
		return nil, err
	}
	sub.mu.Lock()
	sub.ref = cp
	sub.mu.Unlock()
	cp.sub = sub
	if err := r.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
