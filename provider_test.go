package injector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverride_Precedence(t *testing.T) {
	t.Run("last override on the stack wins", func(t *testing.T) {
		p := NewFactory(func() string { return "own" })
		o1 := NewFactory(func() string { return "o1" })
		o2 := NewFactory(func() string { return "o2" })

		require.NoError(t, p.Override(o1))
		require.NoError(t, p.Override(o2))
		assert.Equal(t, "o2", mustProvide(t, p))
		assert.Equal(t, []Provider{o1, o2}, p.Overridden())

		require.NoError(t, p.ResetLastOverriding())
		assert.Equal(t, "o1", mustProvide(t, p))
		require.NoError(t, p.ResetLastOverriding())
		assert.Equal(t, "own", mustProvide(t, p))
	})

	t.Run("overrides chain through overridden overrides", func(t *testing.T) {
		p := NewFactory(func() string { return "own" })
		o1 := NewFactory(func() string { return "o1" })
		o2 := NewFactory(func(suffix string) string { return "o2" + suffix })

		require.NoError(t, p.Override(o1))
		require.NoError(t, o1.Override(o2))
		assert.Equal(t, "o2", mustProvide(t, p, ""))
		assert.Equal(t, "o2-call", mustProvide(t, p, "-call"))
	})

	t.Run("overridden provider arguments are not used", func(t *testing.T) {
		called := false
		arg := NewCallable(func() int { called = true; return 1 })
		p := NewFactory(func(int) string { return "own" }, arg)
		require.NoError(t, p.Override(NewObject("mock")))

		assert.Equal(t, "mock", mustProvide(t, p))
		assert.False(t, called)
	})
}

func TestOverride_Errors(t *testing.T) {
	p := NewFactory(func() int { return 1 })

	err := p.Override(p)
	assert.ErrorIs(t, err, ErrSelfOverride)

	err = p.ResetLastOverriding()
	assert.ErrorIs(t, err, ErrNoOverridingToReset)
}

func TestOverride_BareValueIsWrapped(t *testing.T) {
	logger := &recordingLogger{}
	c, err := NewContainer("app", WithLogger(logger))
	require.NoError(t, err)
	p := NewFactory(func() int { return 1 })
	require.NoError(t, c.Set("number", p))

	require.NoError(t, p.Override(42))

	assert.Equal(t, 42, mustProvide(t, p))
	require.Len(t, p.Overridden(), 1)
	assert.Equal(t, KindObject, p.Overridden()[0].Kind())
	assert.Equal(t, 1, logger.count("warn"))
}

func TestOverride_ResetOverride(t *testing.T) {
	p := NewObject("own")
	require.NoError(t, p.Override(NewObject("a")))
	require.NoError(t, p.Override(NewObject("b")))

	p.ResetOverride()

	assert.False(t, p.IsOverridden())
	assert.Equal(t, "own", mustProvide(t, p))
}

func TestOverrideScoped(t *testing.T) {
	p := NewObject("own")

	t.Run("restore undoes the override once", func(t *testing.T) {
		require.NoError(t, p.Override(NewObject("outer")))
		restore, err := OverrideScoped(p, NewObject("inner"))
		require.NoError(t, err)
		assert.Equal(t, "inner", mustProvide(t, p))

		restore()
		restore()
		assert.Equal(t, "outer", mustProvide(t, p))
		p.ResetOverride()
	})

	t.Run("WithOverride resets on error", func(t *testing.T) {
		errBoom := errors.New("boom")
		err := WithOverride(p, NewObject("scoped"), func() error {
			assert.Equal(t, "scoped", mustProvide(t, p))
			return errBoom
		})
		assert.ErrorIs(t, err, errBoom)
		assert.False(t, p.IsOverridden())
	})

	t.Run("WithOverride resets on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = WithOverride(p, NewObject("scoped"), func() error {
				panic("boom")
			})
		})
		assert.False(t, p.IsOverridden())
	})

	t.Run("self override fails without pushing", func(t *testing.T) {
		_, err := OverrideScoped(p, p)
		assert.ErrorIs(t, err, ErrSelfOverride)
		assert.False(t, p.IsOverridden())
	})
}

func TestProvide_ArgumentMerging(t *testing.T) {
	f := NewFactory(func(a, b int, kw Kwargs) string {
		return fmt.Sprintf("%d %d %v %v", a, b, kw["x"], kw["y"])
	}, 1, Kw("x", "stored"), Kw("y", "kept"))

	assert.Equal(t, "1 2 call kept", mustProvide(t, f, 2, Kw("x", "call")))
	assert.Equal(t, "1 3 stored kept", mustProvide(t, f, 3))
}

func TestProvide_ResolvesNestedProviders(t *testing.T) {
	inner := NewFactory(func(n int) int { return n * 2 }, 21)
	outer := NewCallable(func(n int, kw Kwargs) string {
		return fmt.Sprintf("%d/%v", n, kw["label"])
	}, inner, Kw("label", NewObject("answer")))

	assert.Equal(t, "42/answer", mustProvide(t, outer))
}

func TestProvide_ObjectIsNotResolved(t *testing.T) {
	inner := NewFactory(func() int { return 1 })
	o := NewObject(inner)

	v := mustProvide(t, o)
	assert.Same(t, inner, v)
}

type serviceParams struct {
	In
	Name string
	Port int `inject:"port"`
}

func TestProvide_KeywordStruct(t *testing.T) {
	f := NewFactory(func(p serviceParams) string {
		return fmt.Sprintf("%s:%d", p.Name, p.Port)
	}, Kw("name", "db"), Kw("port", 5432))

	assert.Equal(t, "db:5432", mustProvide(t, f))
	assert.Equal(t, "db:6543", mustProvide(t, f, Kw("port", 6543)))

	_, err := f.Provide(context.Background(), Kw("unknown", 1))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

type ctxKey struct{}

func TestProvide_ContextParameter(t *testing.T) {
	f := NewCallable(func(ctx context.Context, suffix string) string {
		return ctx.Value(ctxKey{}).(string) + suffix
	})
	ctx := context.WithValue(context.Background(), ctxKey{}, "value")

	v, err := f.Provide(ctx, "!")
	require.NoError(t, err)
	assert.Equal(t, "value!", v)
}

func TestProvide_ErrorsAndShapes(t *testing.T) {
	errBuild := errors.New("build failed")
	f := NewFactory(func() (int, error) { return 0, errBuild })
	_, err := f.Provide(context.Background())
	assert.ErrorIs(t, err, errBuild)

	g := NewFactory(func(a int) int { return a })
	_, err = g.Provide(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = g.Provide(context.Background(), "not an int")
	assert.ErrorIs(t, err, ErrInvalidArguments)
	_, err = g.Provide(context.Background(), 1, Kw("k", 1))
	assert.ErrorIs(t, err, ErrInvalidArguments)

	assert.Panics(t, func() { NewFactory(42) })
	assert.Panics(t, func() { NewFactory(func() {}) })
	assert.Panics(t, func() { NewFactory(func() (int, int) { return 0, 0 }) })
}

func TestProvide_Variadic(t *testing.T) {
	f := NewCallable(func(prefix string, rest ...int) string {
		return fmt.Sprint(prefix, rest)
	}, "n")
	assert.Equal(t, "n[1 2]", mustProvide(t, f, 1, 2))
	assert.Equal(t, "n[]", mustProvide(t, f))
}

type endpoint struct {
	Host string
	Port int
}

func TestFactory_Attributes(t *testing.T) {
	f := NewFactory(func() *endpoint { return &endpoint{} })
	f.AddAttributes(Kw("host", NewObject("localhost")), Kw("port", 8080))

	v := mustProvide(t, f).(*endpoint)
	assert.Equal(t, &endpoint{Host: "localhost", Port: 8080}, v)

	f.AddAttributes(Kw("missing", 1))
	_, err := f.Provide(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestFactory_ArgumentsAreMutable(t *testing.T) {
	f := NewFactory(func(args ...int) []int { return args }, 1)
	f.AddArgs(2, 3)
	assert.Equal(t, []int{1, 2, 3}, mustProvide(t, f))

	f.SetArgs(9)
	assert.Equal(t, []int{9}, mustProvide(t, f))

	f.ClearArgs()
	assert.Empty(t, mustProvide(t, f))
}

func TestFullName(t *testing.T) {
	p := NewObject(1)
	assert.Equal(t, "<object>", FullName(p))

	c := mustContainer(t, "app", Def("one", p))
	assert.Equal(t, "app.one", FullName(p))
	assert.Equal(t, "one", p.Name())
	assert.Same(t, c, p.Parent())
}
