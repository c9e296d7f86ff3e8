package scope

// ── Lifecycle capability ──────────────────────────────────────────────────────

// Scoped is the lifecycle capability a scoped proxy carries on top of the
// target's own contract: report the target key, and discard the current
// instance so the scope recreates it on the next forwarded call. Forget only
// signals removal — it never builds the replacement itself.
//
// Consumers reach it through a capability query:
//
//	if sc, ok := scope.AsScoped(proxy); ok {
//	    _ = sc.Forget()
//	}
type Scoped interface {
	// TargetKey returns the target's key verbatim.
	TargetKey() string

	// Forget removes the current instance from the owning scope. The next
	// forwarded call through the proxy transparently triggers recreation.
	Forget() error
}

// scopedTarget pairs a registry handle with the target key. It is the
// concrete capability attached to every scoped proxy.
type scopedTarget struct {
	registry Registry
	key      string
}

func (s *scopedTarget) TargetKey() string { return s.key }

func (s *scopedTarget) Forget() error { return s.registry.RemoveInstance(s.key) }

// AsScoped queries a value for the lifecycle capability.
func AsScoped(v any) (Scoped, bool) {
	sc, ok := v.(Scoped)
	return sc, ok
}

// ── Infrastructure marker ─────────────────────────────────────────────────────

// Infrastructure tags plumbing objects that must never receive further
// cross-cutting enhancement. A scoped proxy carries it so that auto-wrapping
// layers decorate only the real scoped target, never the proxy shell.
type Infrastructure interface {
	// InfrastructureProxy marks the implementer as exempt from wrapping.
	InfrastructureProxy()
}

// IsInfrastructure reports whether v carries the infrastructure marker.
// Any layer that wraps resolved instances must skip values for which this
// returns true.
func IsInfrastructure(v any) bool {
	_, ok := v.(Infrastructure)
	return ok
}
