package scope

import (
	"errors"
	"fmt"
)

// ── Errors ────────────────────────────────────────────────────────────────────

var (
	// ErrTargetKeyRequired is returned by ProxyBuilder.Build when no target
	// key was set. Fatal: the builder stays unusable until configured.
	ErrTargetKeyRequired = errors.New("scope: target key is required before building a proxy")

	// ErrTypeUndetermined is returned by ProxyBuilder.Build when the
	// target's declared type cannot be resolved — without it the builder
	// cannot choose between interface and concrete proxying.
	ErrTypeUndetermined = errors.New("scope: target type could not be determined")

	// ErrScopeUnavailable is returned by scope implementations when a
	// lookup happens outside an active scope context (no request in flight
	// on the calling goroutine). It surfaces synchronously to the caller of
	// the proxied method; retrying is the caller's business.
	ErrScopeUnavailable = errors.New("scope: no active scope context")

	// ErrNotInitialized is returned when the proxy or its effective type is
	// queried before Build has completed.
	ErrNotInitialized = errors.New("scope: proxy has not been built yet")
)

// MethodError reports an invocation of a method the proxy does not expose,
// or that the current target instance does not implement.
type MethodError struct {
	Method    string
	TargetKey string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("scope: target [%s] does not expose method %q", e.TargetKey, e.Method)
}
