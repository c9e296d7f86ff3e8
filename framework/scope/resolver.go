package scope

import (
	"fmt"
	"reflect"
)

// ── Registry collaborator ─────────────────────────────────────────────────────

// Registry is the slice of the IoC container the scope layer consumes:
// declared-type lookup plus the per-call instance lifecycle of one binding.
// *container.Container satisfies it.
type Registry interface {
	// DeclaredType reports the type the key resolves to, without resolving it.
	DeclaredType(key string) (reflect.Type, error)

	// CurrentInstance returns the instance currently serving the key. For
	// scope-bound keys this may fail when the calling goroutine carries no
	// active scope context.
	CurrentInstance(key string) (any, error)

	// RemoveInstance discards the current instance; the next
	// CurrentInstance recreates it.
	RemoveInstance(key string) error
}

// ── TargetResolver ────────────────────────────────────────────────────────────

// TargetResolver binds one target key to a Registry. It resolves the
// target's declared shape once, and its live instance on every call —
// never caching the latter, which is what makes a proxy built on top of it
// scope-transparent: two invocations may be served by two different
// instances if the scope was re-entered between them.
type TargetResolver struct {
	registry Registry
	key      string
	ifaces   *InterfaceRegistry

	// resolved at most once, during the single-threaded build phase
	info *TypeInfo
}

// NewTargetResolver constructs a resolver for key against registry.
// ifaces may be nil when no interface contracts are registered.
func NewTargetResolver(registry Registry, key string, ifaces *InterfaceRegistry) *TargetResolver {
	return &TargetResolver{registry: registry, key: key, ifaces: ifaces}
}

// Key returns the target key verbatim.
func (r *TargetResolver) Key() string { return r.key }

// ResolveType determines the target's declared shape. The result is computed
// on first use and cached for the resolver's lifetime; resolution failure is
// not cached, so a later call may succeed once the registry learns the type.
func (r *TargetResolver) ResolveType() (TypeInfo, error) {
	if r.info != nil {
		return *r.info, nil
	}
	declared, err := r.registry.DeclaredType(r.key)
	if err != nil {
		return TypeInfo{}, fmt.Errorf("%w: [%s]: %v", ErrTypeUndetermined, r.key, err)
	}
	info := infoFor(declared, r.ifaces)
	r.info = &info
	return info, nil
}

// CurrentTarget fetches the instance currently serving the key. Called on
// every forwarded invocation; deliberately uncached.
func (r *TargetResolver) CurrentTarget() (any, error) {
	return r.registry.CurrentInstance(r.key)
}
