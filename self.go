package injector

import (
	"context"
	"fmt"
)

// Self resolves to the container it is registered in. The container binds
// it when the provider is set, so a provider can take its own container as
// an argument without owning it.
type Self struct {
	base
	container *Container
}

// NewSelf returns an unbound Self provider.
func NewSelf() *Self {
	s := &Self{}
	s.init(s)
	return s
}

func (s *Self) Kind() Kind { return KindSelf }

func (s *Self) Provide(ctx context.Context, args ...any) (any, error) {
	if p := s.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	c := s.Container()
	if c == nil {
		return nil, ErrSelfUnbound
	}
	return c, nil
}

// Container returns the bound container, or nil.
func (s *Self) Container() *Container {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.container
}

func (s *Self) bind(c *Container) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.container == nil {
		s.container = c
	}
}

// Related is empty: the container is a back-reference, not a dependency.
func (s *Self) Related() []Provider {
	return s.Overridden()
}

// Copy binds the copy to the copied container when it is in memo.
func (s *Self) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[s]; ok {
		return cp.(Provider), nil
	}
	cp := NewSelf()
	memo[s] = cp
	if c := s.Container(); c != nil {
		if mapped, ok := memo[c]; ok {
			cp.container = mapped.(*Container)
		} else {
			cp.container = c
		}
	}
	if err := s.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

func (s *Self) String() string {
	if c := s.Container(); c != nil {
		return fmt.Sprintf("Self(%s)", c.FullName())
	}
	return "Self(unbound)"
}
