// Package scope provides scope-transparent proxies for scoped container
// bindings: stable singleton objects that can be injected once into
// long-lived consumers while every call through them reaches whatever
// instance currently lives in a narrower lifecycle scope (per-request,
// per-session).
//
// # The problem
//
// A controller built once at bootstrap wants to hold a per-request service.
// Injecting the service directly would freeze the instance of whichever
// request happened to be in flight at wiring time. A scoped proxy is
// injected instead: it re-resolves the target on every invocation, so two
// calls through the same proxy may be served by two different instances if
// the scope was re-entered between them.
//
// # Building a proxy
//
//	c := container.New()
//	c.RegisterScope("request", scope.NewRequestScope())
//	c.Scoped("cart", "request", func(c *container.Container) any { return cart.New() })
//	c.TypeHint("cart", (*cart.Cart)(nil))
//
//	proxy, err := scope.NewProxyBuilder(c).
//	    SetTargetKey("cart").
//	    Build()
//
// Build resolves the target's declared type once, decides the contract the
// proxy presents (concrete-type by default, interface set when the declared
// type is an interface or unexported, or when PreferConcrete is off), and
// caches the proxy — every later Build or Proxy call returns the identical
// object.
//
// # Calling through the proxy
//
//	outs, err := proxy.Invoke("AddItem", "sku-1", 2)
//	total, err := scope.Call[int](proxy, "Total")
//
// Each Invoke fetches the current scope instance fresh; a call outside an
// active scope fails synchronously with ErrScopeUnavailable.
//
// # Lifecycle capability
//
// The proxy introduces two methods that never reach the target:
//
//	sc, _ := scope.AsScoped(proxy)
//	sc.TargetKey() // "cart"
//	sc.Forget()    // discard the current instance; next call recreates it
//
// # Infrastructure marker
//
// Proxies satisfy the Infrastructure marker. Layers that auto-wrap resolved
// instances (decorators, instrumentation) must check IsInfrastructure and
// skip marked values — only the real scoped target is fair game.
//
// # Request scope
//
// RequestScope is the bundled Scope implementation: one instance store per
// activation, bound to the serving goroutine, with an http middleware that
// activates it around each handler.
package scope
