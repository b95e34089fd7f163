package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	cfg := NewConfiguration(WithDefaults(map[string]any{"mode": "json"}))
	sel := NewSelector(cfg.Option("mode"),
		Kw("json", NewFactory(func(indent int) string { return "json" }, 2)),
		Kw("xml", NewObject("xml")),
	)
	assert.Equal(t, []string{"json", "xml"}, sel.Branches())

	assert.Equal(t, "json", mustProvide(t, sel))

	cfg.Set("mode", "xml")
	assert.Equal(t, "xml", mustProvide(t, sel))

	cfg.Set("mode", "yaml")
	_, err := sel.Provide(context.Background())
	assert.ErrorIs(t, err, ErrNoSuchFactory)
	assert.Contains(t, err.Error(), "yaml")

	assert.Panics(t, func() { NewSelector(NewObject("a"), Kw("a", "not a provider")) })
}

func TestSelector_CallArgsReachBranch(t *testing.T) {
	sel := NewSelector(NewObject("upper"),
		Kw("upper", NewCallable(func(s string) string { return s + "!" })),
	)
	assert.Equal(t, "hi!", mustProvide(t, sel, "hi"))
}

func TestAggregate(t *testing.T) {
	agg := NewAggregate(
		Kw("json", NewCallable(func(kw Kwargs) string { return "json" + kw["suffix"].(string) })),
		Kw("xml", NewObject("xml")),
	)

	assert.Equal(t, "json!", mustProvide(t, agg, "json", Kw("suffix", "!")))
	assert.Equal(t, "xml", mustProvide(t, agg, "xml"))

	_, err := agg.Provide(context.Background())
	assert.ErrorIs(t, err, ErrNoSelector)
	_, err = agg.Provide(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoSelector)
	_, err = agg.Provide(context.Background(), "csv")
	assert.ErrorIs(t, err, ErrNoSuchFactory)

	branch, ok := agg.Branch("xml")
	require.True(t, ok)
	assert.Equal(t, KindObject, branch.Kind())
	assert.Equal(t, []string{"json", "xml"}, agg.Branches())
}

func TestDependency(t *testing.T) {
	t.Run("undefined", func(t *testing.T) {
		d := NewDependency()
		mustContainer(t, "app", Def("db", d))

		_, err := d.Provide(context.Background())
		assert.ErrorIs(t, err, ErrUndefinedDependency)
		assert.Contains(t, err.Error(), "app.db")
		assert.False(t, d.Satisfied())
	})

	t.Run("default value and provider", func(t *testing.T) {
		d := NewDependency(WithDefault(10))
		assert.Equal(t, 10, mustProvide(t, d))
		assert.True(t, d.Satisfied())

		p := NewDependency(WithDefault(NewFactory(newThing)))
		assert.NotSame(t, mustProvide(t, p), mustProvide(t, p))
	})

	t.Run("override wins over default", func(t *testing.T) {
		d := NewDependency(WithDefault("default"))
		require.NoError(t, d.Override(NewObject("override")))
		assert.Equal(t, "override", mustProvide(t, d))
	})

	t.Run("instance of", func(t *testing.T) {
		d := NewDependency(InstanceOf[string]())
		require.NoError(t, d.Override(NewObject(42)))
		_, err := d.Provide(context.Background())
		assert.ErrorIs(t, err, ErrDependencyType)

		d.ResetOverride()
		require.NoError(t, d.Override(NewObject("ok")))
		assert.Equal(t, "ok", mustProvide(t, d))
	})
}

func TestCollections(t *testing.T) {
	list := NewList(1, NewObject(2), NewFactory(func() int { return 3 }))
	assert.Equal(t, []any{1, 2, 3}, mustProvide(t, list))
	assert.Equal(t, []any{1, 2, 3, 4}, mustProvide(t, list, 4))

	m := NewMap(Kw("a", NewObject(1)), Kw("b", 2))
	assert.Equal(t, Kwargs{"a": 1, "b": 2}, mustProvide(t, m))
	assert.Equal(t, Kwargs{"a": 1, "b": 3}, mustProvide(t, m, Kw("b", 3)))

	target := NewFactory(newThing)
	d := NewDelegate(target)
	assert.Same(t, target, mustProvide(t, d))
}

func TestTraverse(t *testing.T) {
	dep := NewDependency()
	res := NewResource(func(v any) any { return v }, dep)
	single := NewSingleton(func(v any) any { return v }, res)
	list := NewList(single, NewObject(1))

	all := Traverse([]Provider{list})
	assert.Len(t, all, 5)
	assert.Same(t, list, all[0])

	assert.Equal(t, []Provider{res}, Traverse([]Provider{list}, KindResource))
	assert.Equal(t, []Provider{single, dep}, Traverse([]Provider{list}, KindSingleton, KindDependency))
}
