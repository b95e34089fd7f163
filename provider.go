package injector

import (
	"context"
	"fmt"
	"sync"
)

// Provider is a node of the provider graph. Calling Provide resolves the
// node, recursively resolving every provider it references.
//
// Every provider carries an overriding stack: while the stack is non-empty,
// Provide delegates to its last entry with the same call arguments and the
// provider's own arguments are not used.
type Provider interface {
	// Provide resolves the provider. Items of type Kwarg are keyword
	// arguments, everything else is positional. Call arguments take
	// precedence over the provider's stored keyword arguments and are
	// appended after its stored positional arguments.
	Provide(ctx context.Context, args ...any) (any, error)

	// Kind returns the resolution semantics tag.
	Kind() Kind

	// Name returns the name the provider was registered under in its
	// parent container, or "" when it has none.
	Name() string

	// Parent returns the container the provider was first registered in.
	// It is a diagnostic back-reference and never owns the container.
	Parent() *Container

	// Override pushes with onto the overriding stack. A value that is not
	// a Provider is wrapped in an Object provider.
	Override(with any) error

	// ResetLastOverriding pops the overriding stack.
	ResetLastOverriding() error

	// ResetOverride clears the overriding stack.
	ResetOverride()

	// Overridden returns a copy of the overriding stack, oldest first.
	Overridden() []Provider

	// IsOverridden reports whether the overriding stack is non-empty.
	IsOverridden() bool

	// Related returns every provider this one references: arguments,
	// keyword arguments, defaults and the overriding stack.
	Related() []Provider

	// Copy returns a structural clone of the provider graph rooted here.
	// See Copy for the memo contract.
	Copy(memo Memo) (Provider, error)

	core() *base
}

// base holds the state shared by all providers: the overriding stack and the
// parent back-reference.
type base struct {
	self Provider

	mu         sync.RWMutex
	overriding []Provider
	parent     *Container
	name       string
}

func (b *base) init(self Provider) {
	b.self = self
}

func (b *base) core() *base {
	return b
}

func (b *base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

func (b *base) Parent() *Container {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.parent
}

// attach records the owning container unless one is already recorded.
func (b *base) attach(c *Container, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.parent == nil {
		b.parent = c
		b.name = name
	}
}

// reattach unconditionally moves the back-reference; used when a container
// copy takes ownership of its copied providers.
func (b *base) reattach(c *Container, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = c
	b.name = name
}

func (b *base) Override(with any) error {
	return b.pushOverriding(b.asOverriding(with))
}

func (b *base) asOverriding(with any) Provider {
	if p, ok := with.(Provider); ok {
		return p
	}
	b.logger().Warn("Overriding with a bare value, wrapping it in an object provider",
		"provider", b.describe(), "type", fmt.Sprintf("%T", with))
	return NewObject(with)
}

func (b *base) pushOverriding(p Provider) error {
	if p == nil {
		return fmt.Errorf("%w: nil overriding provider for %s", ErrNotAProvider, b.describe())
	}
	if p == b.self {
		return fmt.Errorf("%w: %s", ErrSelfOverride, b.describe())
	}
	b.mu.Lock()
	b.overriding = append(b.overriding, p)
	b.mu.Unlock()
	b.logger().Debug("Provider overridden", "provider", b.describe(), "with", p.Kind())
	return nil
}

func (b *base) ResetLastOverriding() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.overriding) == 0 {
		return fmt.Errorf("%w: %s", ErrNoOverridingToReset, b.describeLocked())
	}
	b.overriding[len(b.overriding)-1] = nil
	b.overriding = b.overriding[:len(b.overriding)-1]
	return nil
}

func (b *base) ResetOverride() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overriding = nil
}

func (b *base) Overridden() []Provider {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Provider, len(b.overriding))
	copy(out, b.overriding)
	return out
}

func (b *base) IsOverridden() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.overriding) > 0
}

// last returns the provider resolution must delegate to, or nil.
func (b *base) last() Provider {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.overriding) == 0 {
		return nil
	}
	return b.overriding[len(b.overriding)-1]
}

func (b *base) logger() Logger {
	if parent := b.Parent(); parent != nil {
		return parent.Logger()
	}
	return DefaultLogger()
}

func (b *base) describe() string {
	return FullName(b.self)
}

func (b *base) describeLocked() string {
	if b.parent == nil {
		return fmt.Sprintf("<%s>", b.self.Kind())
	}
	return b.parent.FullName() + "." + b.name
}

// copyBase carries the overriding stack and parent reference into dst.
func (b *base) copyBase(dst *base, memo Memo) error {
	for _, o := range b.Overridden() {
		cp, err := copyProvider(o, memo)
		if err != nil {
			return err
		}
		dst.overriding = append(dst.overriding, cp)
	}
	b.mu.RLock()
	parent, name := b.parent, b.name
	b.mu.RUnlock()
	if parent != nil {
		if mapped, ok := memo[parent]; ok {
			parent = mapped.(*Container)
		}
	}
	dst.parent = parent
	dst.name = name
	return nil
}

// FullName returns the dotted path of p from its root container, for
// example "Root.services.gateways.database". Providers that were never
// registered in a container are described by their kind.
func FullName(p Provider) string {
	b := p.core()
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.describeLocked()
}
