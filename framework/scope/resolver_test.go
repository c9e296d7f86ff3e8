package scope_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/km-arc/go-scoped/framework/scope"
)

// ── stub registry ─────────────────────────────────────────────────────────────

// stubRegistry is a hand-rolled Registry collaborator that counts lookups.
type stubRegistry struct {
	declared  reflect.Type
	typeErr   error
	instances []any // served in order; last one repeats
	fetchErr  error
	fetches   int
	typeCalls int
	removed   int
}

func (s *stubRegistry) DeclaredType(key string) (reflect.Type, error) {
	s.typeCalls++
	if s.typeErr != nil {
		return nil, s.typeErr
	}
	return s.declared, nil
}

func (s *stubRegistry) CurrentInstance(key string) (any, error) {
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	i := s.fetches - 1
	if i >= len(s.instances) {
		i = len(s.instances) - 1
	}
	return s.instances[i], nil
}

func (s *stubRegistry) RemoveInstance(key string) error {
	s.removed++
	return nil
}

// ── ResolveType ───────────────────────────────────────────────────────────────

func TestResolveType_ComputedOnce(t *testing.T) {
	reg := &stubRegistry{declared: reflect.TypeOf(&EchoService{})}
	r := scope.NewTargetResolver(reg, "echo", nil)

	first, err := r.ResolveType()
	if err != nil {
		t.Fatalf("ResolveType: %v", err)
	}
	second, _ := r.ResolveType()

	if reg.typeCalls != 1 {
		t.Errorf("registry consulted %d times, want 1 (cached)", reg.typeCalls)
	}
	if first.Declared != second.Declared {
		t.Error("cached TypeInfo should be stable")
	}
}

func TestResolveType_InterfaceDeclared(t *testing.T) {
	ifaces := scope.NewInterfaceRegistry()
	_ = ifaces.Register((*Pinger)(nil))

	reg := &stubRegistry{declared: reflect.TypeOf((*Pinger)(nil)).Elem()}
	r := scope.NewTargetResolver(reg, "echo", ifaces)

	info, err := r.ResolveType()
	if err != nil {
		t.Fatalf("ResolveType: %v", err)
	}
	if !info.IsInterface {
		t.Error("IsInterface should be true for an interface declared type")
	}
	if len(info.Interfaces) != 1 {
		t.Errorf("Interfaces = %v, want [Pinger]", info.Interfaces)
	}
}

func TestResolveType_InterfaceDeclaredWithoutCatalogue(t *testing.T) {
	pinger := reflect.TypeOf((*Pinger)(nil)).Elem()
	reg := &stubRegistry{declared: pinger}
	r := scope.NewTargetResolver(reg, "echo", nil)

	info, err := r.ResolveType()
	if err != nil {
		t.Fatalf("ResolveType: %v", err)
	}
	if len(info.Interfaces) != 1 || info.Interfaces[0] != pinger {
		t.Errorf("Interfaces = %v, want the declared interface itself", info.Interfaces)
	}
}

func TestResolveType_UnexportedDetected(t *testing.T) {
	reg := &stubRegistry{declared: reflect.TypeOf(&silentService{})}
	r := scope.NewTargetResolver(reg, "silent", nil)

	info, err := r.ResolveType()
	if err != nil {
		t.Fatalf("ResolveType: %v", err)
	}
	if !info.Unexported {
		t.Error("*silentService should be detected as unexported")
	}
}

func TestResolveType_FailureWrapsSentinel(t *testing.T) {
	reg := &stubRegistry{typeErr: fmt.Errorf("no hint")}
	r := scope.NewTargetResolver(reg, "mystery", nil)

	_, err := r.ResolveType()
	if !errors.Is(err, scope.ErrTypeUndetermined) {
		t.Errorf("got %v, want ErrTypeUndetermined", err)
	}
}

func TestResolveType_FailureNotCached(t *testing.T) {
	reg := &stubRegistry{typeErr: fmt.Errorf("no hint")}
	r := scope.NewTargetResolver(reg, "mystery", nil)

	_, _ = r.ResolveType()
	reg.typeErr = nil
	reg.declared = reflect.TypeOf(&EchoService{})

	if _, err := r.ResolveType(); err != nil {
		t.Errorf("resolution should succeed once the registry learns the type: %v", err)
	}
}

// ── CurrentTarget ─────────────────────────────────────────────────────────────

func TestCurrentTarget_FetchesEveryCall(t *testing.T) {
	reg := &stubRegistry{instances: []any{&EchoService{}}}
	r := scope.NewTargetResolver(reg, "echo", nil)

	for i := 0; i < 3; i++ {
		if _, err := r.CurrentTarget(); err != nil {
			t.Fatalf("CurrentTarget: %v", err)
		}
	}
	if reg.fetches != 3 {
		t.Errorf("registry fetched %d times, want 3 (never cached)", reg.fetches)
	}
}

func TestCurrentTarget_ErrorPropagates(t *testing.T) {
	fetchErr := fmt.Errorf("%w: no request", scope.ErrScopeUnavailable)
	reg := &stubRegistry{fetchErr: fetchErr}
	r := scope.NewTargetResolver(reg, "echo", nil)

	_, err := r.CurrentTarget()
	if !errors.Is(err, scope.ErrScopeUnavailable) {
		t.Errorf("got %v, want ErrScopeUnavailable", err)
	}
}
