package scope

import (
	"bytes"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ── RequestScope ──────────────────────────────────────────────────────────────

// RequestScope is the reference Scope implementation: one instance store per
// request, bound to the goroutine serving it. A lookup outside an active
// request fails with ErrScopeUnavailable — synchronously, on the goroutine
// that called, without observing any other goroutine's store.
//
// Usage outside HTTP handlers:
//
//	end := rs.Begin()
//	defer end()
//	// scoped bindings now resolve on this goroutine
//
// Inside an HTTP server, mount Middleware():
//
//	r := chi.NewRouter()
//	r.Use(rs.Middleware())
type RequestScope struct {
	mu     sync.RWMutex
	active map[uint64]*requestStore
}

// requestStore holds the scoped instances of one request. Each store gets a
// unique ID so tests and diagnostics can tell two activations apart.
type requestStore struct {
	id        string
	prev      *requestStore
	mu        sync.Mutex
	instances map[string]any
}

// NewRequestScope constructs a scope with no active stores.
func NewRequestScope() *RequestScope {
	return &RequestScope{active: make(map[uint64]*requestStore)}
}

// Begin activates a fresh store for the calling goroutine and returns the
// function that deactivates it. Begin nests: an inner activation shadows the
// outer one until its end function runs.
func (s *RequestScope) Begin() (end func()) {
	g := gid()
	store := &requestStore{
		id:        uuid.NewString(),
		instances: make(map[string]any),
	}

	s.mu.Lock()
	store.prev = s.active[g]
	s.active[g] = store
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if store.prev != nil {
			s.active[g] = store.prev
		} else {
			delete(s.active, g)
		}
	}
}

// Active reports whether the calling goroutine has an activation in flight.
func (s *RequestScope) Active() bool {
	return s.current() != nil
}

// StoreID returns the unique ID of the calling goroutine's active store.
func (s *RequestScope) StoreID() (string, bool) {
	store := s.current()
	if store == nil {
		return "", false
	}
	return store.id, true
}

// Get returns the store's instance for key, creating it with factory on
// first access within the activation.
func (s *RequestScope) Get(key string, factory func() (any, error)) (any, error) {
	store := s.current()
	if store == nil {
		return nil, fmt.Errorf("%w: [%s]: no request in flight on this goroutine", ErrScopeUnavailable, key)
	}

	store.mu.Lock()
	if inst, ok := store.instances[key]; ok {
		store.mu.Unlock()
		return inst, nil
	}
	store.mu.Unlock()

	// Built outside the lock: the factory may resolve other scoped
	// bindings through this same store.
	inst, err := factory()
	if err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if won, ok := store.instances[key]; ok {
		return won, nil
	}
	store.instances[key] = inst
	return inst, nil
}

// Remove discards the store's instance for key; the next Get within the
// same activation recreates it. Fails with ErrScopeUnavailable outside an
// activation, and is a no-op when the key holds no instance.
func (s *RequestScope) Remove(key string) error {
	store := s.current()
	if store == nil {
		return fmt.Errorf("%w: [%s]: no request in flight on this goroutine", ErrScopeUnavailable, key)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.instances, key)
	return nil
}

// Middleware activates the scope for each request's handler goroutine and
// stamps the store ID onto the response for correlation.
func (s *RequestScope) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			end := s.Begin()
			defer end()
			if id, ok := s.StoreID(); ok {
				w.Header().Set("X-Scope-Id", id)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// current returns the calling goroutine's active store, or nil.
func (s *RequestScope) current() *requestStore {
	g := gid()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[g]
}

// gid extracts the calling goroutine's ID from the runtime stack header
// ("goroutine 123 [running]:"). The scope's whole point is a context bound
// to the calling goroutine, which the runtime does not expose directly.
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
