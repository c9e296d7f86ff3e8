// Package container provides a Laravel-compatible IoC (Inversion of Control)
// container and Service Provider system for Go, extended with scoped
// bindings and the scope/type lookups that scope-transparent proxies need.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your application's
// dependencies. It supports transient bindings, singletons, scoped bindings,
// pre-built instances, aliases, tags, contextual bindings, and extension
// (decoration).
//
// It mirrors the public API of Laravel's Illuminate\Container\Container as
// closely as Go's type system allows. Because Go has no runtime constructor
// reflection, auto-wiring is replaced by explicit factory functions.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()        — safe to resolve everything after this
//  4. Serve requests
//
// # Bindings
//
//	// Transient — new instance every Make()
//	// Laravel: $app->bind(Foo::class, fn($app) => new Foo)
//	c.Bind("Foo", func(c *container.Container) any { return &Foo{} })
//
//	// Singleton — created once, reused
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache)
//	c.Singleton("cache", func(c *container.Container) any {
//	    cfg := container.Resolve[*Config](c, "config")
//	    return cache.NewRedis(cfg)
//	})
//
//	// Scoped — one instance per scope activation
//	// Laravel: $app->scoped(Cart::class, fn($app) => new Cart)
//	c.RegisterScope("request", scope.NewRequestScope())
//	c.Scoped("cart", "request", func(c *container.Container) any {
//	    return cart.New()
//	})
//
//	// Pre-built value
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
//
//	// Alias
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("cache", "cacheManager")
//
// # Resolving
//
//	// Untyped, panicking (bootstrap code)
//	// Laravel: $app->make(Cache::class)
//	raw := c.Make("cache")
//
//	// Error-returning (request paths, proxy dispatch)
//	inst, err := c.TryMake("cart")
//
//	// Generic (preferred — no type assertion required)
//	cache := container.Resolve[*RedisCache](c, "cache")
//
// # Scoped instance lifecycle
//
// CurrentInstance returns whatever instance currently serves the abstract —
// for scoped bindings this asks the owning Scope, which may fail when its
// context is not active (no request in flight). RemoveInstance discards the
// current instance so the next resolution recreates it:
//
//	cart, err := c.CurrentInstance("cart") // fresh lookup, never cached here
//	err = c.RemoveInstance("cart")         // next CurrentInstance rebuilds
//
// # Declared types
//
// TypeHint declares what type an abstract resolves to without building it —
// needed by anything that must reason about a binding's shape up front:
//
//	c.TypeHint("mailer", (*Mailer)(nil))    // interface hint
//	c.TypeHint("cart", (*cart.Cart)(nil))   // concrete hint
//	t, err := c.DeclaredType("mailer")
//
// # Contextual Binding
//
//	// Laravel: $app->when(PhotoController::class)
//	//              ->needs(Filesystem::class)
//	//              ->give(fn() => new S3Filesystem)
//	c.When("PhotoController").
//	    Needs("Filesystem").
//	    Give(func(c *container.Container) any { return &S3Filesystem{} })
//
// # Tags
//
//	// Laravel: $app->tag([CpuReport::class, MemReport::class], 'reports')
//	c.Tag([]string{"CpuReport", "MemReport"}, "reports")
//	reports := c.Tagged("reports")  // []any
//
// # Extend / Decorate
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return &TimestampLogger{Inner: instance.(*Logger)}
//	})
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Scoped("cart", "request", func(c *container.Container) any {
//	        return cart.New()
//	    })
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// Each registration is also recorded in the registry's ImportRegistry keyed
// by provider type, latest registration winning — ask registry.Imports()
// who imported a unit last.
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool     { return true }
//	func (p *HeavyProvider) Provides() []string   { return []string{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) {
//	    app.Singleton("heavy", func(c *container.Container) any {
//	        return heavySetup() // only called on first app.Make("heavy")
//	    })
//	}
package container
