package scope

import (
	"fmt"
	"reflect"
)

// ── ProxyConfig ───────────────────────────────────────────────────────────────

// ProxyConfig is the set of proxy behavior flags. The builder copies it when
// the proxy is built; flag changes after that point have no effect.
type ProxyConfig struct {
	// PreferConcrete asks for a concrete-type proxy over the declared type
	// instead of an interface proxy. It is the default and degrades to
	// interface proxying when the declared type is an interface or is
	// unexported. See SelectInterfaces.
	PreferConcrete bool
}

// ── ProxyBuilder ──────────────────────────────────────────────────────────────

// ProxyBuilder assembles one scoped proxy: a thread-safe singleton that can
// be injected into shared, long-lived consumers while every call through it
// transparently reaches the instance currently owned by the scope.
//
// Lifecycle: configure (SetTargetKey and friends, single-threaded, during
// bootstrap) → Build → done. Build is idempotent — it caches the proxy and
// returns the same pointer forever after; the builder cannot be
// reconfigured once built. Build either fully succeeds or leaves the
// builder unusable; no partial proxy is ever handed out.
type ProxyBuilder struct {
	registry Registry
	ifaces   *InterfaceRegistry
	factory  ProxyFactory
	key      string
	cfg      ProxyConfig

	// write-once at build time, read-only after
	resolver *TargetResolver
	built    ProxyConfig
	proxy    *Proxy
}

// NewProxyBuilder creates a builder against the given registry with the
// default configuration: concrete-type proxying, dispatch-table factory.
func NewProxyBuilder(registry Registry) *ProxyBuilder {
	return &ProxyBuilder{
		registry: registry,
		factory:  DispatchFactory{},
		cfg:      ProxyConfig{PreferConcrete: true},
	}
}

// SetTargetKey names the scope-bound target. Required before Build.
func (b *ProxyBuilder) SetTargetKey(key string) *ProxyBuilder {
	b.key = key
	return b
}

// SetPreferConcrete overrides the concrete-vs-interface preference.
func (b *ProxyBuilder) SetPreferConcrete(v bool) *ProxyBuilder {
	b.cfg.PreferConcrete = v
	return b
}

// SetInterfaces supplies the interface catalogue consulted when resolving
// the target's contract.
func (b *ProxyBuilder) SetInterfaces(reg *InterfaceRegistry) *ProxyBuilder {
	b.ifaces = reg
	return b
}

// SetFactory swaps the proxy mechanism. Defaults to DispatchFactory.
func (b *ProxyBuilder) SetFactory(f ProxyFactory) *ProxyBuilder {
	b.factory = f
	return b
}

// Build resolves the target's declared type, selects the proxy's contract,
// attaches the lifecycle capability, and constructs the proxy. Safe to call
// repeatedly; every call after the first returns the cached proxy.
func (b *ProxyBuilder) Build() (*Proxy, error) {
	if b.proxy != nil {
		return b.proxy, nil
	}
	if b.registry == nil {
		return nil, fmt.Errorf("scope: builder has no registry")
	}
	if b.key == "" {
		return nil, ErrTargetKeyRequired
	}

	resolver := NewTargetResolver(b.registry, b.key, b.ifaces)
	info, err := resolver.ResolveType()
	if err != nil {
		return nil, err
	}

	cfg := b.cfg // copied: the built proxy never sees later flag changes
	capability := &scopedTarget{registry: b.registry, key: b.key}

	spec := ProxySpec{
		Interfaces: SelectInterfaces(info, cfg.PreferConcrete),
		Dispatch:   dispatchFor(resolver, capability),
		Capability: capability,
	}
	if len(spec.Interfaces) == 0 {
		spec.Concrete = info.Declared
	}

	proxy, err := b.factory.New(spec)
	if err != nil {
		return nil, err
	}

	b.resolver = resolver
	b.built = cfg
	b.proxy = proxy
	return proxy, nil
}

// Proxy returns the built proxy, or ErrNotInitialized before Build.
func (b *ProxyBuilder) Proxy() (*Proxy, error) {
	if b.proxy == nil {
		return nil, ErrNotInitialized
	}
	return b.proxy, nil
}

// ProxyType reports the effective exposed type: after Build, the proxy's
// own runtime type; before Build, the target's declared type when the
// registry already knows it, else ErrNotInitialized.
func (b *ProxyBuilder) ProxyType() (reflect.Type, error) {
	if b.proxy != nil {
		return reflect.TypeOf(b.proxy), nil
	}
	if b.key != "" && b.registry != nil {
		if t, err := b.registry.DeclaredType(b.key); err == nil {
			return t, nil
		}
	}
	return nil, ErrNotInitialized
}

// dispatchFor builds the per-invocation routing: lifecycle methods go to
// the capability (the introduction), everything else to the instance the
// resolver fetches fresh for this very call.
func dispatchFor(resolver *TargetResolver, capability Scoped) DispatchFunc {
	return func(method string, args []any) ([]any, error) {
		switch method {
		case "TargetKey":
			return []any{capability.TargetKey()}, nil
		case "Forget":
			return nil, capability.Forget()
		}
		target, err := resolver.CurrentTarget()
		if err != nil {
			return nil, err
		}
		return forwardCall(resolver.Key(), target, method, args)
	}
}
