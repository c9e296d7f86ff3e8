package container

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"sync"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
type Factory func(c *Container) any

// binding holds a registered factory, its lifetime, and the scope that owns
// its instances (empty for transient/singleton bindings).
type binding struct {
	factory   Factory
	singleton bool
	scopeName string
}

// extender wraps an already-resolved instance with decorator logic.
type extender func(instance any, c *Container) any

// ── Scope collaborator ────────────────────────────────────────────────────────

// Scope owns the instances of scope-bound abstracts for one lifecycle
// boundary (per-request, per-session, ...). Get returns the current instance
// for key, creating it with factory if the scope does not hold one yet.
// Remove discards the current instance so the next Get recreates it.
//
// Implementations decide what "current" means; a request scope, for example,
// keys its store off the calling goroutine and fails when no request is in
// flight. Errors from Get/Remove are propagated verbatim to resolvers.
type Scope interface {
	Get(key string, factory func() (any, error)) (any, error)
	Remove(key string) error
}

// ── Errors ────────────────────────────────────────────────────────────────────

var (
	// ErrNotBound is returned when resolving an abstract with no binding.
	ErrNotBound = errors.New("container: abstract is not bound")

	// ErrScopeUnknown is returned when a scoped binding names a scope that
	// was never registered via RegisterScope.
	ErrScopeUnknown = errors.New("container: scope is not registered")

	// ErrTypeUnknown is returned by DeclaredType when the abstract has no
	// type hint and has never produced a cached instance.
	ErrTypeUnknown = errors.New("container: declared type is unknown")
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container — mirrors Laravel's Illuminate\Container\Container,
// extended with scoped bindings ($app->scoped()) and declared-type tracking.
//
// It supports:
//   - Bind / Singleton / Scoped / Instance / Alias
//   - Make / TryMake / Resolve (generic)
//   - Scope registration (RegisterScope) and per-scope instance lifecycle
//     (CurrentInstance / RemoveInstance)
//   - Type hints (TypeHint / DeclaredType)
//   - Tags (group multiple abstractions under one tag)
//   - Extend (decorate / wrap resolved instances)
//   - Contextual binding (when A needs B, give it C)
//   - Rebound callbacks
//   - Resolved event callbacks
type Container struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved singleton instance
	instances map[string]any

	// scope name → Scope implementation
	scopes map[string]Scope

	// abstract → declared type hint
	types map[string]reflect.Type

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[concrete][abstract] = factory
	contextual map[string]map[string]Factory

	// rebound callbacks: abstract → []func(any)
	reboundCallbacks map[string][]func(any)

	// resolved callbacks: []func(abstract, instance)
	afterResolving []func(string, any)

	// per-goroutine stacks of abstracts currently being resolved (for
	// contextual lookup); keyed by goroutine ID so concurrent resolutions
	// never observe each other's build state
	buildStacks map[uint64][]string
}

// New creates an empty container.
func New() *Container {
	c := &Container{
		bindings:         make(map[string]*binding),
		instances:        make(map[string]any),
		scopes:           make(map[string]Scope),
		types:            make(map[string]reflect.Type),
		aliases:          make(map[string]string),
		extenders:        make(map[string][]extender),
		tags:             make(map[string][]string),
		contextual:       make(map[string]map[string]Factory),
		reboundCallbacks: make(map[string][]func(any)),
		buildStacks:      make(map[uint64][]string),
	}
	// Bind the container to itself — like Laravel's $app->instance()
	c.Instance("container", c)
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient (new instance each Make) factory.
//
//	// Laravel: $app->bind(UserRepository::class, fn($app) => new EloquentUserRepository($app))
//	c.Bind("UserRepository", func(c *container.Container) any {
//	    return &EloquentUserRepository{}
//	})
func (c *Container) Bind(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, false, "")
}

// Singleton registers a factory whose result is cached after first resolution.
//
//	// Laravel: $app->singleton(Cache::class, fn($app) => new RedisCache($app))
//	c.Singleton("cache", func(c *container.Container) any {
//	    return cache.NewRedisCache(Resolve[*config.Config](c, "config"))
//	})
func (c *Container) Singleton(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, true, "")
}

// Scoped registers a factory whose result lives inside the named scope:
// one instance per scope activation, recreated after RemoveInstance or when
// the scope is re-entered.
//
//	// Laravel: $app->scoped(Cart::class, fn($app) => new Cart)
//	c.Scoped("cart", "request", func(c *container.Container) any {
//	    return cart.New()
//	})
//
// The scope itself must be registered via RegisterScope before the binding
// is first resolved; resolution of a binding whose scope is missing fails
// with ErrScopeUnknown.
func (c *Container) Scoped(abstract, scopeName string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, false, scopeName)
}

// Instance registers a pre-built value as a singleton.
//
//	// Laravel: $app->instance(Config::class, $config)
//	c.Instance("config", myConfig)
func (c *Container) Instance(abstract string, instance any) {
	c.mu.Lock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	c.instances[key] = instance
	c.mu.Unlock()

	// Fired after the lock is released: callbacks may re-enter the container.
	c.fireRebound(abstract, instance)
}

// bind is the internal registration helper (must hold mu.Lock).
func (c *Container) bind(abstract string, factory Factory, singleton bool, scopeName string) {
	key := c.canonical(abstract)

	// Drop existing singleton instance so it's rebuilt with the new factory
	wasBound := c.instances[key] != nil
	delete(c.instances, key)

	c.bindings[key] = &binding{factory: factory, singleton: singleton, scopeName: scopeName}

	if wasBound {
		c.mu.Unlock()
		inst, err := c.resolve(abstract)
		if err == nil {
			c.fireRebound(abstract, inst)
		}
		c.mu.Lock()
	}
}

// Alias registers an alternative name for an abstract.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
//	c.Alias("cache", "cacheManager")
func (c *Container) Alias(abstract, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonical(abstract)
}

// ── Scopes ────────────────────────────────────────────────────────────────────

// RegisterScope makes a Scope implementation available to scoped bindings
// under the given name. Re-registering a name replaces the previous scope;
// instances held by the old scope are abandoned, not migrated.
func (c *Container) RegisterScope(name string, s Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopes[name] = s
}

// ScopeRegistered reports whether a scope name is known to the container.
func (c *Container) ScopeRegistered(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.scopes[name]
	return ok
}

// ScopeOf returns the registered scope owning the abstract's instances,
// or ("", nil) for non-scoped bindings.
func (c *Container) ScopeOf(abstract string) (string, Scope) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[c.canonical(abstract)]
	if !ok || b.scopeName == "" {
		return "", nil
	}
	return b.scopeName, c.scopes[b.scopeName]
}

// ── Declared types ────────────────────────────────────────────────────────────

// TypeHint declares the type an abstract resolves to, without building it.
// Pass a pointer prototype: a pointer to an interface declares the interface
// type, anything else declares its own type.
//
//	c.TypeHint("mailer", (*Mailer)(nil))   // declared type: Mailer (interface)
//	c.TypeHint("cart", (*cart.Cart)(nil))  // declared type: *cart.Cart
func (c *Container) TypeHint(abstract string, prototype any) {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Interface {
		t = t.Elem()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[c.canonical(abstract)] = t
}

// DeclaredType reports the type the abstract resolves to, without resolving
// it: the TypeHint if one was declared, else the type of an already-cached
// singleton instance. Fails with ErrTypeUnknown when neither exists and with
// ErrNotBound when the abstract is entirely unknown.
func (c *Container) DeclaredType(abstract string) (reflect.Type, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	if t, ok := c.types[key]; ok {
		return t, nil
	}
	if inst, ok := c.instances[key]; ok {
		return reflect.TypeOf(inst), nil
	}
	if _, ok := c.bindings[key]; ok {
		return nil, fmt.Errorf("%w: [%s] has no type hint and no cached instance", ErrTypeUnknown, abstract)
	}
	return nil, fmt.Errorf("%w: [%s]", ErrNotBound, abstract)
}

// ── Contextual Binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain.
//
//	// Laravel: $app->when(PhotoController::class)->needs(Filesystem::class)->give(fn() => new S3)
//	c.When("PhotoController").Needs("Filesystem").Give(func(c *container.Container) any {
//	    return filesystem.NewS3(...)
//	})
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

// getContextual returns the contextual factory for (concrete, abstract), or nil.
func (c *Container) getContextual(concrete, abstract string) Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.contextual[concrete]; ok {
		if f, ok := m[abstract]; ok {
			return f
		}
	}
	return nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract. For scoped
// bindings the extenders run on every fresh instance the scope creates.
//
//	// Laravel: $app->extend(Logger::class, fn($logger, $app) => new TimestampLogger($logger))
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return logging.NewTimestampWrapper(instance.(*Logger))
//	})
func (c *Container) Extend(abstract string, fn extender) {
	c.mu.Lock()
	key := c.canonical(abstract)
	c.extenders[key] = append(c.extenders[key], fn)
	inst, resolved := c.instances[key]
	c.mu.Unlock()

	// If already resolved as singleton, re-apply extenders and refire rebound
	if resolved {
		extended := c.applyExtenders(key, inst)
		c.mu.Lock()
		c.instances[key] = extended
		c.mu.Unlock()
		c.fireRebound(abstract, extended)
	}
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group.
//
//	// Laravel: $app->tag([CpuReport::class, MemoryReport::class], 'reports')
//	c.Tag([]string{"CpuReport", "MemoryReport"}, "reports")
func (c *Container) Tag(abstracts []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves all abstracts registered under a tag.
//
//	// Laravel: $app->tagged('reports')
//	reports := c.Tagged("reports")  // []any
func (c *Container) Tagged(tag string) []any {
	c.mu.RLock()
	abstracts := c.tags[tag]
	c.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		result = append(result, c.Make(abs))
	}
	return result
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container, panicking on failure —
// the Laravel-compatible path for application bootstrap code.
//
//	// Laravel: $app->make(UserRepository::class)
//	repo := c.Make("UserRepository")
func (c *Container) Make(abstract string) any {
	inst, err := c.resolve(abstract)
	if err != nil {
		panic(fmt.Sprintf("container: Make(%s): %v", abstract, err))
	}
	return inst
}

// TryMake is the error-returning counterpart of Make, for callers that must
// surface resolution failures instead of crashing (proxies, middleware).
func (c *Container) TryMake(abstract string) (any, error) {
	return c.resolve(abstract)
}

// CurrentInstance returns the instance currently serving the abstract:
// for scoped bindings, the instance held by the active scope (creating it on
// first access, failing when the scope has no active context); for
// singletons, the cached instance; for transients, a fresh one.
//
// Scoped-proxy dispatch calls this on every forwarded invocation.
func (c *Container) CurrentInstance(abstract string) (any, error) {
	return c.resolve(abstract)
}

// RemoveInstance discards the current instance for the abstract. Scoped
// bindings delegate to the owning scope (the next CurrentInstance recreates
// the instance there); singleton bindings drop the cached instance so the
// next resolution rebuilds it.
func (c *Container) RemoveInstance(abstract string) error {
	key := c.canonical(abstract)

	c.mu.RLock()
	b, ok := c.bindings[key]
	var s Scope
	if ok && b.scopeName != "" {
		s = c.scopes[b.scopeName]
	}
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		_, had := c.instances[key]
		delete(c.instances, key)
		c.mu.Unlock()
		if !had {
			return fmt.Errorf("%w: [%s]", ErrNotBound, abstract)
		}
		return nil
	}
	if b.scopeName == "" {
		c.mu.Lock()
		delete(c.instances, key)
		c.mu.Unlock()
		return nil
	}
	if s == nil {
		return fmt.Errorf("%w: [%s] for binding [%s]", ErrScopeUnknown, b.scopeName, abstract)
	}
	return s.Remove(key)
}

// resolve is the internal resolver (no outer lock — individual ops lock as needed).
func (c *Container) resolve(abstract string) (any, error) {
	key := c.canonical(abstract)

	// Check singleton instance cache
	c.mu.RLock()
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst, nil
	}
	c.mu.RUnlock()

	// Check contextual binding (look at this goroutine's build stack top)
	if caller, building := c.buildingCaller(); building {
		if f := c.getContextual(caller, abstract); f != nil {
			return c.runFactory(key, f, false), nil
		}
	}

	// Look up binding
	c.mu.RLock()
	b, ok := c.bindings[key]
	var s Scope
	if ok && b.scopeName != "" {
		s = c.scopes[b.scopeName]
	}
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrNotBound, abstract)
	}

	// Scoped binding: the scope owns the instance lifecycle.
	if b.scopeName != "" {
		if s == nil {
			return nil, fmt.Errorf("%w: [%s] for binding [%s]", ErrScopeUnknown, b.scopeName, abstract)
		}
		return s.Get(key, func() (any, error) {
			return c.runFactory(key, b.factory, false), nil
		})
	}

	return c.runFactory(key, b.factory, b.singleton), nil
}

// runFactory executes a factory, optionally caching the result.
func (c *Container) runFactory(key string, f Factory, singleton bool) any {
	c.pushBuild(key)

	instance := f(c)

	c.popBuild()

	instance = c.applyExtenders(key, instance)

	if singleton {
		c.mu.Lock()
		c.instances[key] = instance
		c.mu.Unlock()
	}

	c.fireAfterResolving(key, instance)
	return instance
}

// applyExtenders runs the key's extender chain over instance. The chain is
// snapshotted under the lock; extenders themselves run unlocked and may
// re-enter the container.
func (c *Container) applyExtenders(key string, instance any) any {
	c.mu.RLock()
	exts := append([]extender(nil), c.extenders[key]...)
	c.mu.RUnlock()
	for _, ext := range exts {
		instance = ext(instance, c)
	}
	return instance
}

// ── Build stacks ──────────────────────────────────────────────────────────────

func (c *Container) pushBuild(key string) {
	g := gid()
	c.mu.Lock()
	c.buildStacks[g] = append(c.buildStacks[g], key)
	c.mu.Unlock()
}

func (c *Container) popBuild() {
	g := gid()
	c.mu.Lock()
	stack := c.buildStacks[g]
	if n := len(stack); n > 0 {
		if n == 1 {
			delete(c.buildStacks, g)
		} else {
			c.buildStacks[g] = stack[:n-1]
		}
	}
	c.mu.Unlock()
}

// buildingCaller returns the abstract whose factory is running on the
// calling goroutine, if any. Other goroutines' builds are invisible here.
func (c *Container) buildingCaller() (string, bool) {
	g := gid()
	c.mu.RLock()
	defer c.mu.RUnlock()
	stack := c.buildStacks[g]
	if len(stack) == 0 {
		return "", false
	}
	return stack[len(stack)-1], true
}

// gid extracts the calling goroutine's ID from the runtime stack header
// ("goroutine 123 [running]:").
func gid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if an abstract has been registered.
//
//	// Laravel: $app->bound(UserRepository::class)
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Resolved returns true if the abstract has been resolved at least once.
//
//	// Laravel: $app->resolved(Cache::class)
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, ok := c.instances[key]
	return ok
}

// Forget removes all registrations for an abstract (binding + instance + hint).
//
//	// Laravel: $app->forgetInstance(Cache::class)
func (c *Container) Forget(abstract string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	delete(c.instances, key)
	delete(c.types, key)
}

// Flush resets the entire container.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = make(map[string]*binding)
	c.instances = make(map[string]any)
	c.scopes = make(map[string]Scope)
	c.types = make(map[string]reflect.Type)
	c.aliases = make(map[string]string)
	c.extenders = make(map[string][]extender)
	c.tags = make(map[string][]string)
	c.contextual = make(map[string]map[string]Factory)
	c.buildStacks = make(map[uint64][]string)
}

// Bindings returns a copy of all registered abstract keys (for debugging).
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	return out
}

// canonical resolves an alias to its canonical key.
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback to be called whenever an abstract is re-bound.
//
//	// Laravel: $app->rebinding(UserRepository::class, fn($app, $repo) => ...)
func (c *Container) Rebinding(abstract string, cb func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reboundCallbacks[abstract] = append(c.reboundCallbacks[abstract], cb)
}

// AfterResolving registers a callback fired after any abstract is resolved.
//
//	// Laravel: $app->afterResolving(fn($object, $app) => ...)
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireRebound(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.reboundCallbacks[abstract]
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(abstract, instance)
	}
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "main.UserRepository"
//	c.Singleton(key, factory)
//	repo := container.Resolve[UserRepository](c, key)
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Make and type-asserts the result.
//
//	// Instead of: db := c.Make("db").(*gorm.DB)
//	// Write:      db := container.Resolve[*gorm.DB](c, "db")
func Resolve[T any](c *Container, abstract string) T {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("container: Resolve[%T]: [%s] resolved to %T", *new(T), abstract, instance))
	}
	return typed
}

// MustResolve is like Resolve but returns (T, bool) without panicking.
func MustResolve[T any](c *Container, abstract string) (T, bool) {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	return typed, ok
}
