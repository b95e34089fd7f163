package injector

import (
	"errors"
	"fmt"
)

// Entry is a named provider of a Declaration.
type Entry struct {
	Name     string
	Provider any
}

// Def declares p under name. p is a Provider or a *Container to nest.
func Def(name string, p any) Entry {
	return Entry{Name: name, Provider: p}
}

// Declaration is a container template. Every call to New returns an
// independent container whose providers are copies of the declared ones,
// with their own caches and overriding stacks:
//
//	app := injector.Declare("App",
//		injector.Def("config", cfg),
//		injector.Def("db", db),
//	)
//	c, err := app.New()
type Declaration struct {
	name     string
	parent   *Declaration
	template *Container
	err      error
}

// Declare returns a declaration holding entries, in order.
func Declare(name string, entries ...Entry) *Declaration {
	d := &Declaration{name: name, template: newContainer(name)}
	d.template.decl = d
	d.err = d.define(entries)
	return d
}

// Extend returns a child declaration. It starts with the providers of d, by
// reference; entries with a name already declared replace the inherited
// provider, other entries are appended.
func (d *Declaration) Extend(name string, entries ...Entry) *Declaration {
	child := &Declaration{name: name, parent: d, template: newContainer(name)}
	child.template.decl = child
	for _, n := range d.template.Names() {
		p, _ := d.template.Provider(n)
		child.template.register(n, p)
	}
	child.err = errors.Join(d.err, child.define(entries))
	return child
}

func (d *Declaration) define(entries []Entry) error {
	var errs []error
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("%w: %s.%s", ErrDuplicateProvider, d.name, e.Name))
			continue
		}
		seen[e.Name] = true
		if err := d.template.Set(e.Name, e.Provider); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name returns the declaration name.
func (d *Declaration) Name() string { return d.name }

// Parent returns the declaration d extends, or nil.
func (d *Declaration) Parent() *Declaration { return d.parent }

// Err returns the errors collected while declaring entries.
func (d *Declaration) Err() error { return d.err }

// Template returns the declared container. Overrides and resolutions on it
// are shared by every instance created afterwards.
func (d *Declaration) Template() *Container { return d.template }

// Names returns the declared provider names, inherited ones first.
func (d *Declaration) Names() []string { return d.template.Names() }

// Provider returns the declared provider registered under name.
func (d *Declaration) Provider(name string) (Provider, error) {
	return d.template.Provider(name)
}

// New returns an independent container instance. Options apply to the
// instance only.
func (d *Declaration) New(opts ...Option) (*Container, error) {
	if d.err != nil {
		return nil, fmt.Errorf("declaration %s: %w", d.name, d.err)
	}
	c, err := d.template.Copy(NewMemo())
	if err != nil {
		return nil, fmt.Errorf("declaration %s: %w", d.name, err)
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Override overrides the declared providers with the same-named providers
// of other. A declaration cannot be overridden by itself, an ancestor or a
// descendant.
func (d *Declaration) Override(other *Declaration) error {
	if other == nil {
		return fmt.Errorf("%w: nil declaration", ErrNotAContainer)
	}
	if other == d || d.descendsFrom(other) || other.descendsFrom(d) {
		return fmt.Errorf("%w: declaration %s with %s", ErrSelfOverride, d.name, other.name)
	}
	return d.template.Override(other.template)
}

// ResetLastOverriding undoes the last Override.
func (d *Declaration) ResetLastOverriding() error {
	return d.template.ResetLastOverriding()
}

// ResetOverride undoes every Override.
func (d *Declaration) ResetOverride() {
	d.template.ResetOverride()
}

// CheckDependencies reports the unresolved dependencies of the template.
func (d *Declaration) CheckDependencies() []string {
	return d.template.CheckDependencies()
}

func (d *Declaration) descendsFrom(a *Declaration) bool {
	for p := d.parent; p != nil; p = p.parent {
		if p == a {
			return true
		}
	}
	return false
}
