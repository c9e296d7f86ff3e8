package app_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-scoped/framework/app"
	"github.com/km-arc/go-scoped/framework/container"
	"github.com/km-arc/go-scoped/framework/scope"
)

// ticket is the scoped demo service: each activation gets its own, stamped
// with the build sequence number so instances can be told apart.
type ticket struct {
	serial int
}

func (tk *ticket) Serial() int { return tk.serial }

func newApp(t *testing.T) *app.Application {
	t.Helper()
	return app.New("testdata/empty.env")
}

// ── bootstrap ─────────────────────────────────────────────────────────────────

func TestNew_BootstrapsCoreServices(t *testing.T) {
	a := newApp(t)
	a.Boot()

	if a.Config() == nil {
		t.Fatal("config should be bound")
	}
	if a.RequestScope() == nil {
		t.Fatal("request scope should be bound")
	}
	if a.Interfaces() == nil {
		t.Fatal("interface catalogue should be bound")
	}
	if !a.ScopeRegistered("request") {
		t.Error("the request scope should be registered under its configured name")
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	t.Setenv("APP_ENV", "testing")
	a := newApp(t)
	a.Boot()

	if !a.IsTesting() || a.IsProduction() || a.IsLocal() {
		t.Errorf("Environment() = %q, want testing", a.Environment())
	}
}

// ── ScopedProxy ───────────────────────────────────────────────────────────────

func TestScopedProxy_BuiltOnce(t *testing.T) {
	a := newApp(t)
	a.Scoped("ticket", "request", func(c *container.Container) any {
		return &ticket{}
	})
	a.TypeHint("ticket", (*ticket)(nil))
	a.Boot()

	first, err := a.ScopedProxy("ticket")
	if err != nil {
		t.Fatalf("ScopedProxy: %v", err)
	}
	second, _ := a.ScopedProxy("ticket")
	if first != second {
		t.Error("repeated ScopedProxy calls should return the cached proxy")
	}
	if !a.Bound("ticket.proxy") {
		t.Error("the proxy should be registered in the container")
	}
}

func TestScopedProxy_ServesPerActivationInstances(t *testing.T) {
	a := newApp(t)

	builds := 0
	a.Scoped("ticket", "request", func(c *container.Container) any {
		builds++
		return &ticket{serial: builds}
	})
	a.TypeHint("ticket", (*ticket)(nil))
	a.Boot()

	proxy, err := a.ScopedProxy("ticket")
	if err != nil {
		t.Fatalf("ScopedProxy: %v", err)
	}
	rs := a.RequestScope()

	end := rs.Begin()
	got, err := scope.Call[int](proxy, "Serial")
	if err != nil {
		t.Fatalf("Serial: %v", err)
	}
	again, _ := scope.Call[int](proxy, "Serial")
	if got != 1 || again != 1 {
		t.Errorf("first activation saw serials %d, %d — want 1, 1 (cached per activation)", got, again)
	}
	end()

	end = rs.Begin()
	got, err = scope.Call[int](proxy, "Serial")
	if err != nil {
		t.Fatalf("Serial in second activation: %v", err)
	}
	end()
	if got != 2 {
		t.Errorf("second activation saw serial %d, want a fresh instance", got)
	}
}

func TestScopedProxy_ForgetRebuildsWithinActivation(t *testing.T) {
	a := newApp(t)

	builds := 0
	a.Scoped("ticket", "request", func(c *container.Container) any {
		builds++
		return &ticket{serial: builds}
	})
	a.TypeHint("ticket", (*ticket)(nil))
	a.Boot()

	proxy, _ := a.ScopedProxy("ticket")
	rs := a.RequestScope()

	end := rs.Begin()
	defer end()

	if _, err := scope.Call[int](proxy, "Serial"); err != nil {
		t.Fatalf("Serial: %v", err)
	}
	if err := proxy.Forget(); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	got, err := scope.Call[int](proxy, "Serial")
	if err != nil {
		t.Fatalf("Serial after Forget: %v", err)
	}
	if got != 2 {
		t.Errorf("Serial after Forget = %d, want a rebuilt instance", got)
	}
}

func TestScopedProxy_OutsideActivationFails(t *testing.T) {
	a := newApp(t)
	a.Scoped("ticket", "request", func(c *container.Container) any {
		return &ticket{}
	})
	a.TypeHint("ticket", (*ticket)(nil))
	a.Boot()

	proxy, err := a.ScopedProxy("ticket")
	if err != nil {
		t.Fatalf("ScopedProxy: %v", err)
	}
	if _, err := proxy.Invoke("Serial"); !errors.Is(err, scope.ErrScopeUnavailable) {
		t.Errorf("got %v, want ErrScopeUnavailable", err)
	}
}

func TestScopedProxy_UnknownBinding(t *testing.T) {
	a := newApp(t)
	a.Boot()

	if _, err := a.ScopedProxy("missing"); !errors.Is(err, scope.ErrTypeUndetermined) {
		t.Errorf("got %v, want ErrTypeUndetermined", err)
	}
}
