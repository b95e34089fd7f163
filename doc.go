// Package injector wires an application out of providers: small objects
// that know how to produce a value when asked. Providers reference each
// other through their arguments and form a graph that is resolved on demand.
//
// The basic kinds are Object, Callable and Factory. Singleton,
// ThreadSafeSingleton and ThreadLocalSingleton cache what they build.
// Resource adds an initialize/shutdown lifecycle, and Dependency is a
// placeholder that must be overridden before use.
//
// Any provider can be overridden. Overrides stack: the most recent one
// answers until it is reset.
//
//	db := injector.NewSingleton(sql.Open, "postgres", dsn)
//	repo := injector.NewFactory(NewRepository, db)
//
//	c, err := injector.NewContainer("app", injector.WithProviders(
//		injector.Def("db", db),
//		injector.Def("repo", repo),
//	))
//	if err != nil {
//		return err
//	}
//	if err := c.InitResources(ctx); err != nil {
//		return err
//	}
//	defer c.ShutdownResources(ctx)
//
//	r, err := injector.Resolve[*Repository](ctx, c, "repo")
//
// A Declaration is a reusable container template. Each call to New returns
// an independent copy of the graph.
// Copy duplicates any provider graph and keeps its internal sharing.
// Configuration exposes a settings tree as providers. Its values come from
// the feeders package and can be watched for changes.
package injector
