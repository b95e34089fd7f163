package injector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_SetAndResolve(t *testing.T) {
	c := mustContainer(t, "app",
		Def("host", NewObject("localhost")),
		Def("addr", NewFactory(func(h string) string { return h + ":80" }, NewObject("localhost"))),
	)

	assert.Equal(t, []string{"host", "addr"}, c.Names())
	assert.Equal(t, "localhost:80", mustResolve(t, c, "addr"))

	addr, err := Resolve[string](context.Background(), c, "addr")
	require.NoError(t, err)
	assert.Equal(t, "localhost:80", addr)

	_, err = Resolve[int](context.Background(), c, "addr")
	assert.ErrorIs(t, err, ErrDependencyType)

	_, err = c.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	err = c.Set("bad", 42)
	assert.ErrorIs(t, err, ErrNotAProvider)
	err = c.Set("", NewObject(1))
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestContainer_ReplaceKeepsOrder(t *testing.T) {
	c := mustContainer(t, "app", Def("a", NewObject(1)), Def("b", NewObject(2)))
	require.NoError(t, c.Set("a", NewObject(3)))

	assert.Equal(t, []string{"a", "b"}, c.Names())
	assert.Equal(t, 3, mustResolve(t, c, "a"))
}

func TestContainer_CheckDependenciesNestedPath(t *testing.T) {
	gateways := mustContainer(t, "gateways", Def("database", NewDependency()))
	services := mustContainer(t, "services", Def("gateways", gateways))
	root := mustContainer(t, "Root", Def("services", services))

	assert.Equal(t, []string{"Root.services.gateways.database"}, root.CheckDependencies())
	assert.Equal(t, "Root.services.gateways", gateways.FullName())
	assert.Same(t, services, gateways.Parent())

	err := root.ValidateDependencies(context.Background())
	assert.ErrorIs(t, err, ErrUndefinedDependency)
	assert.Contains(t, err.Error(), "Root.services.gateways.database")

	_, err = gateways.Resolve(context.Background(), "database")
	assert.ErrorIs(t, err, ErrUndefinedDependency)
	assert.Contains(t, err.Error(), "Root.services.gateways.database")
}

func TestContainer_ForwardedDependencies(t *testing.T) {
	database := NewDependency()
	gw := mustContainer(t, "gateways", Def("database", NewDependency()))
	root := mustContainer(t, "Root",
		Def("database", database),
		Def("gateways", NewContainerRef(gw, Kw("database", database))),
	)

	assert.Equal(t, []string{"Root.database"}, root.CheckDependencies())

	require.NoError(t, database.Override(NewObject("postgres://")))
	assert.Empty(t, root.CheckDependencies())
	assert.NoError(t, root.ValidateDependencies(context.Background()))
	assert.Equal(t, "postgres://", mustResolve(t, gw, "database"))

	sub := mustResolve(t, root, "gateways")
	assert.Same(t, gw, sub)
}

func TestContainer_DependencyPlaceholders(t *testing.T) {
	dep := NewDependency(WithDefault(10))
	c := mustContainer(t, "app", Def("limit", dep), Def("other", NewObject(1)))

	placeholders := c.DependencyPlaceholders()
	assert.Equal(t, map[string]*Dependency{"limit": dep}, placeholders)
	assert.Empty(t, c.CheckDependencies())

	require.NoError(t, c.Set("limit", NewObject(5)))
	assert.Empty(t, c.DependencyPlaceholders())
}

func TestContainer_Self(t *testing.T) {
	c := mustContainer(t, "app")
	require.NoError(t, c.Set("container", c.Self()))
	require.NoError(t, c.Set("name", NewCallable(func(c *Container) string { return c.Name() }, c.Self())))

	assert.Same(t, c, mustResolve(t, c, "container"))
	assert.Equal(t, "app", mustResolve(t, c, "name"))
	assert.Equal(t, "app.container", FullName(c.Self()))

	_, err := NewSelf().Provide(context.Background())
	assert.ErrorIs(t, err, ErrSelfUnbound)
}

func TestContainer_Override(t *testing.T) {
	c := mustContainer(t, "app", Def("db", NewObject("real")), Def("cache", NewObject("redis")))
	test := mustContainer(t, "test", Def("db", NewObject("fake")), Def("unrelated", NewObject(1)))

	require.NoError(t, c.Override(test))
	assert.Equal(t, "fake", mustResolve(t, c, "db"))
	assert.Equal(t, "redis", mustResolve(t, c, "cache"))
	assert.Equal(t, []*Container{test}, c.Overridden())

	require.NoError(t, c.ResetLastOverriding())
	assert.Equal(t, "real", mustResolve(t, c, "db"))
	assert.ErrorIs(t, c.ResetLastOverriding(), ErrNoOverridingToReset)

	assert.ErrorIs(t, c.Override(c), ErrSelfOverride)

	require.NoError(t, c.Override(test))
	c.ResetOverride()
	assert.Equal(t, "real", mustResolve(t, c, "db"))
	assert.Empty(t, c.Overridden())
}

func TestContainer_OverrideProviders(t *testing.T) {
	c := mustContainer(t, "app", Def("db", NewObject("real")), Def("cache", NewObject("redis")))

	restore, err := c.OverrideProviders(Kw("db", NewObject("mock")), Kw("cache", "memory"))
	require.NoError(t, err)
	assert.Equal(t, "mock", mustResolve(t, c, "db"))
	assert.Equal(t, "memory", mustResolve(t, c, "cache"))

	restore()
	assert.Equal(t, "real", mustResolve(t, c, "db"))
	assert.Equal(t, "redis", mustResolve(t, c, "cache"))

	_, err = c.OverrideProviders(Kw("db", NewObject("mock")), Kw("missing", 1))
	assert.ErrorIs(t, err, ErrProviderNotFound)
	db, _ := c.Provider("db")
	assert.False(t, db.IsOverridden())
}

func TestContainerRef_Override(t *testing.T) {
	gw := mustContainer(t, "gateways", Def("db", NewObject("real")))
	ref := NewContainerRef(gw)
	fake := mustContainer(t, "fake", Def("db", NewObject("fake")))

	require.NoError(t, ref.Override(fake))
	assert.Equal(t, "fake", mustResolve(t, gw, "db"))

	require.NoError(t, ref.ResetLastOverriding())
	assert.Equal(t, "real", mustResolve(t, gw, "db"))

	assert.ErrorIs(t, ref.Override(ref), ErrSelfOverride)
	assert.ErrorIs(t, ref.Override(gw), ErrSelfOverride)
	assert.ErrorIs(t, ref.Override(NewObject(1)), ErrNotAContainer)
}

func TestContainer_IsAsync(t *testing.T) {
	conn := NewAsyncResource(func(ctx context.Context) (string, error) { return "conn", nil })
	repo := NewFactory(func(c string) string { return "repo(" + c + ")" }, conn)
	plain := NewFactory(func() string { return "plain" })
	c := mustContainer(t, "app", Def("conn", conn), Def("repo", repo), Def("plain", plain))

	assert.True(t, c.IsAsync(repo))
	assert.True(t, c.IsAsync(conn))
	assert.False(t, c.IsAsync(plain))

	restore, err := c.OverrideProviders(Kw("repo", NewObject("mock")))
	require.NoError(t, err)
	defer restore()
	// The override stack is still walked, so the original dependency counts.
	assert.True(t, c.IsAsync(repo))
}

func TestDeclaration_InstancesAreIndependent(t *testing.T) {
	app := Declare("App",
		Def("counter", NewSingleton(newThing)),
		Def("self", NewSelf()),
	)
	require.NoError(t, app.Err())

	c1, err := app.New()
	require.NoError(t, err)
	c2, err := app.New()
	require.NoError(t, err)

	v1 := mustResolve(t, c1, "counter")
	v2 := mustResolve(t, c2, "counter")
	assert.NotSame(t, v1, v2)
	assert.Same(t, v1, mustResolve(t, c1, "counter"))

	assert.Same(t, c1, mustResolve(t, c1, "self"))
	assert.Same(t, c2, mustResolve(t, c2, "self"))
	assert.Same(t, app, c1.Declaration())
}

func TestDeclaration_Extend(t *testing.T) {
	base := Declare("Base",
		Def("greeting", NewObject("hello")),
		Def("name", NewObject("base")),
	)
	child := base.Extend("Child",
		Def("name", NewObject("child")),
		Def("extra", NewObject(1)),
	)
	require.NoError(t, child.Err())
	assert.Same(t, base, child.Parent())
	assert.Equal(t, []string{"greeting", "name", "extra"}, child.Names())

	c, err := child.New()
	require.NoError(t, err)
	assert.Equal(t, "hello", mustResolve(t, c, "greeting"))
	assert.Equal(t, "child", mustResolve(t, c, "name"))

	greeting, err := c.Provider("greeting")
	require.NoError(t, err)
	assert.Equal(t, "Child.greeting", FullName(greeting))

	b, err := base.New()
	require.NoError(t, err)
	assert.Equal(t, "base", mustResolve(t, b, "name"))
}

func TestDeclaration_Override(t *testing.T) {
	base := Declare("Base", Def("name", NewObject("base")))
	child := base.Extend("Child")
	test := Declare("Test", Def("name", NewObject("test")))

	assert.ErrorIs(t, base.Override(base), ErrSelfOverride)
	assert.ErrorIs(t, child.Override(base), ErrSelfOverride)
	assert.ErrorIs(t, base.Override(child), ErrSelfOverride)

	before, err := base.New()
	require.NoError(t, err)

	require.NoError(t, base.Override(test))
	after, err := base.New()
	require.NoError(t, err)
	assert.Equal(t, "test", mustResolve(t, after, "name"))
	assert.Equal(t, "base", mustResolve(t, before, "name"))

	require.NoError(t, base.ResetLastOverriding())
	again, err := base.New()
	require.NoError(t, err)
	assert.Equal(t, "base", mustResolve(t, again, "name"))
}

func TestDeclaration_Errors(t *testing.T) {
	bad := Declare("Bad", Def("x", 42))
	_, err := bad.New()
	assert.ErrorIs(t, err, ErrNotAProvider)

	dup := Declare("Dup", Def("x", NewObject(1)), Def("x", NewObject(2)))
	_, err = dup.New()
	assert.ErrorIs(t, err, ErrDuplicateProvider)

	child := bad.Extend("Child")
	assert.ErrorIs(t, child.Err(), ErrNotAProvider)
}

func TestDeclaration_CheckDependencies(t *testing.T) {
	app := Declare("App", Def("db", NewDependency()))
	assert.Equal(t, []string{"App.db"}, app.CheckDependencies())

	c, err := app.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"App.db"}, c.CheckDependencies())
}
