package injector

import "context"

// Delegate provides the wrapped provider itself instead of its value, so a
// dependent can resolve it on demand.
type Delegate struct {
	base
	target Provider
}

// NewDelegate returns a provider of p.
func NewDelegate(p Provider) *Delegate {
	d := &Delegate{target: p}
	d.init(d)
	return d
}

func (d *Delegate) Kind() Kind { return KindDelegate }

func (d *Delegate) Provide(ctx context.Context, args ...any) (any, error) {
	if p := d.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	return d.target, nil
}

func (d *Delegate) Related() []Provider {
	return append([]Provider{d.target}, d.Overridden()...)
}

func (d *Delegate) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[d]; ok {
		return cp.(Provider), nil
	}
	cp := &Delegate{}
	cp.init(cp)
	memo[d] = cp
	t, err := copyProvider(d.target, memo)
	if err != nil {
		return nil, err
	}
	cp.target = t
	if err := d.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// List provides a []any of its resolved positional arguments, followed by
// the positional call arguments.
type List struct {
	base
	arguments
}

// NewList returns a List of items.
func NewList(items ...any) *List {
	l := &List{}
	l.base.init(l)
	l.arguments.init(items)
	return l
}

func (l *List) Kind() Kind { return KindList }

func (l *List) Provide(ctx context.Context, args ...any) (any, error) {
	if p := l.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	pos, _, err := l.resolve(ctx, args)
	if err != nil {
		return nil, err
	}
	return pos, nil
}

func (l *List) Related() []Provider {
	return append(l.providers(), l.Overridden()...)
}

func (l *List) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[l]; ok {
		return cp.(Provider), nil
	}
	cp := &List{}
	cp.base.init(cp)
	memo[l] = cp
	if err := copyArguments(&l.arguments, &cp.arguments, l, memo); err != nil {
		return nil, err
	}
	if err := l.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}

// Map provides a Kwargs of its resolved keyword arguments merged with the
// keyword call arguments.
type Map struct {
	base
	arguments
}

// NewMap returns a Map of entries.
func NewMap(entries ...Kwarg) *Map {
	m := &Map{}
	m.base.init(m)
	for _, e := range entries {
		m.kw = setKwarg(m.kw, e)
	}
	return m
}

func (m *Map) Kind() Kind { return KindMap }

func (m *Map) Provide(ctx context.Context, args ...any) (any, error) {
	if p := m.last(); p != nil {
		return p.Provide(ctx, args...)
	}
	_, kw, err := m.resolve(ctx, args)
	if err != nil {
		return nil, err
	}
	return kwargsMap(kw), nil
}

func (m *Map) Related() []Provider {
	return append(m.providers(), m.Overridden()...)
}

func (m *Map) Copy(memo Memo) (Provider, error) {
	if cp, ok := memo[m]; ok {
		return cp.(Provider), nil
	}
	cp := &Map{}
	cp.base.init(cp)
	memo[m] = cp
	if err := copyArguments(&m.arguments, &cp.arguments, m, memo); err != nil {
		return nil, err
	}
	if err := m.copyBase(&cp.base, memo); err != nil {
		return nil, err
	}
	return cp, nil
}
