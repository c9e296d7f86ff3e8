package container_test

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/km-arc/go-scoped/framework/container"
)

// ── stub scope ────────────────────────────────────────────────────────────────

// memoryScope is a trivially-active Scope: one shared store, explicit Remove.
type memoryScope struct {
	instances map[string]any
}

func newMemoryScope() *memoryScope {
	return &memoryScope{instances: make(map[string]any)}
}

func (s *memoryScope) Get(key string, factory func() (any, error)) (any, error) {
	if inst, ok := s.instances[key]; ok {
		return inst, nil
	}
	inst, err := factory()
	if err != nil {
		return nil, err
	}
	s.instances[key] = inst
	return inst, nil
}

func (s *memoryScope) Remove(key string) error {
	delete(s.instances, key)
	return nil
}

// inactiveScope always reports no active context.
type inactiveScope struct{}

var errNoContext = errors.New("memory scope: not active")

func (inactiveScope) Get(string, func() (any, error)) (any, error) { return nil, errNoContext }
func (inactiveScope) Remove(string) error                          { return errNoContext }

type counter struct{ n int }

// ── Scoped bindings ───────────────────────────────────────────────────────────

func TestScoped_InstancePerScope(t *testing.T) {
	c := container.New()
	c.RegisterScope("session", newMemoryScope())

	built := 0
	c.Scoped("counter", "session", func(c *container.Container) any {
		built++
		return &counter{}
	})

	a := c.Make("counter").(*counter)
	b := c.Make("counter").(*counter)
	if a != b {
		t.Error("scoped binding should return the scope's one instance")
	}
	if built != 1 {
		t.Errorf("factory ran %d times, want 1", built)
	}
}

func TestScoped_UnregisteredScopeFails(t *testing.T) {
	c := container.New()
	c.Scoped("counter", "ghost", func(c *container.Container) any { return &counter{} })

	_, err := c.TryMake("counter")
	if !errors.Is(err, container.ErrScopeUnknown) {
		t.Errorf("got %v, want ErrScopeUnknown", err)
	}
}

func TestScoped_ScopeErrorPropagates(t *testing.T) {
	c := container.New()
	c.RegisterScope("session", inactiveScope{})
	c.Scoped("counter", "session", func(c *container.Container) any { return &counter{} })

	_, err := c.CurrentInstance("counter")
	if !errors.Is(err, errNoContext) {
		t.Errorf("scope errors should pass through verbatim, got %v", err)
	}
}

func TestRemoveInstance_ScopedRecreates(t *testing.T) {
	c := container.New()
	c.RegisterScope("session", newMemoryScope())

	built := 0
	c.Scoped("counter", "session", func(c *container.Container) any {
		built++
		return &counter{n: built}
	})

	first, _ := c.CurrentInstance("counter")
	if err := c.RemoveInstance("counter"); err != nil {
		t.Fatalf("RemoveInstance: %v", err)
	}
	second, _ := c.CurrentInstance("counter")

	if first.(*counter) == second.(*counter) {
		t.Error("instance after RemoveInstance should be a fresh one")
	}
	if built != 2 {
		t.Errorf("factory ran %d times, want 2", built)
	}
}

func TestRemoveInstance_SingletonRebuilds(t *testing.T) {
	c := container.New()
	built := 0
	c.Singleton("svc", func(c *container.Container) any {
		built++
		return &counter{n: built}
	})

	_ = c.Make("svc")
	if err := c.RemoveInstance("svc"); err != nil {
		t.Fatalf("RemoveInstance: %v", err)
	}
	got := c.Make("svc").(*counter)
	if got.n != 2 {
		t.Errorf("singleton after RemoveInstance: built %d times, want 2", got.n)
	}
}

func TestRemoveInstance_UnboundFails(t *testing.T) {
	c := container.New()
	if err := c.RemoveInstance("nothing"); !errors.Is(err, container.ErrNotBound) {
		t.Errorf("got %v, want ErrNotBound", err)
	}
}

func TestScopeOf_ReportsOwningScope(t *testing.T) {
	c := container.New()
	ses := newMemoryScope()
	c.RegisterScope("session", ses)
	c.Scoped("counter", "session", func(c *container.Container) any { return &counter{} })
	c.Bind("plain", func(c *container.Container) any { return 1 })

	name, s := c.ScopeOf("counter")
	if name != "session" || s == nil {
		t.Errorf("ScopeOf(counter) = %q, %v", name, s)
	}
	if name, s := c.ScopeOf("plain"); name != "" || s != nil {
		t.Error("ScopeOf(plain) should be empty")
	}
}

// ── TryMake / Make ────────────────────────────────────────────────────────────

func TestTryMake_UnboundReturnsError(t *testing.T) {
	c := container.New()
	_, err := c.TryMake("missing")
	if !errors.Is(err, container.ErrNotBound) {
		t.Errorf("got %v, want ErrNotBound", err)
	}
}

func TestMake_UnboundPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Make on unbound abstract should panic")
		}
	}()
	container.New().Make("missing")
}

// ── Declared types ────────────────────────────────────────────────────────────

type Greeter interface{ Greet() string }

func TestTypeHint_Interface(t *testing.T) {
	c := container.New()
	c.Bind("greeter", func(c *container.Container) any { return nil })
	c.TypeHint("greeter", (*Greeter)(nil))

	typ, err := c.DeclaredType("greeter")
	if err != nil {
		t.Fatalf("DeclaredType: %v", err)
	}
	if typ.Kind() != reflect.Interface || typ.Name() != "Greeter" {
		t.Errorf("declared type = %v, want Greeter interface", typ)
	}
}

func TestTypeHint_Concrete(t *testing.T) {
	c := container.New()
	c.Bind("counter", func(c *container.Container) any { return &counter{} })
	c.TypeHint("counter", (*counter)(nil))

	typ, err := c.DeclaredType("counter")
	if err != nil {
		t.Fatalf("DeclaredType: %v", err)
	}
	if typ != reflect.TypeOf(&counter{}) {
		t.Errorf("declared type = %v, want *counter", typ)
	}
}

func TestDeclaredType_FallsBackToCachedInstance(t *testing.T) {
	c := container.New()
	c.Singleton("svc", func(c *container.Container) any { return &counter{} })

	if _, err := c.DeclaredType("svc"); !errors.Is(err, container.ErrTypeUnknown) {
		t.Errorf("before resolution: got %v, want ErrTypeUnknown", err)
	}

	_ = c.Make("svc")
	typ, err := c.DeclaredType("svc")
	if err != nil {
		t.Fatalf("after resolution: %v", err)
	}
	if typ != reflect.TypeOf(&counter{}) {
		t.Errorf("declared type = %v, want *counter", typ)
	}
}

func TestDeclaredType_UnboundFails(t *testing.T) {
	c := container.New()
	if _, err := c.DeclaredType("nothing"); !errors.Is(err, container.ErrNotBound) {
		t.Errorf("got %v, want ErrNotBound", err)
	}
}

// ── Kept container behaviors ──────────────────────────────────────────────────

func TestSingleton_ResolvedOnce(t *testing.T) {
	c := container.New()
	built := 0
	c.Singleton("svc", func(c *container.Container) any {
		built++
		return &counter{}
	})

	a := c.Make("svc")
	b := c.Make("svc")
	if a != b || built != 1 {
		t.Errorf("singleton resolved %d times", built)
	}
}

func TestAlias_ResolvesCanonical(t *testing.T) {
	c := container.New()
	c.Instance("cfg", "value")
	c.Alias("cfg", "configuration")

	if got := c.Make("configuration").(string); got != "value" {
		t.Errorf("alias resolved to %q", got)
	}
}

func TestExtend_AppliesToScopedInstances(t *testing.T) {
	c := container.New()
	c.RegisterScope("session", newMemoryScope())
	c.Scoped("greeting", "session", func(c *container.Container) any { return "hello" })
	c.Extend("greeting", func(instance any, c *container.Container) any {
		return fmt.Sprintf("%s, world", instance)
	})

	if got := c.Make("greeting").(string); got != "hello, world" {
		t.Errorf("got %q", got)
	}
}

func TestContextual_GiveBinding(t *testing.T) {
	c := container.New()
	c.Instance("real", "the-proxy")
	c.When("consumer").Needs("dep").GiveBinding("real")
	c.Bind("consumer", func(c *container.Container) any {
		return c.Make("dep")
	})

	if got := c.Make("consumer").(string); got != "the-proxy" {
		t.Errorf("contextual GiveBinding resolved %q", got)
	}
}

// ── Callbacks & concurrency ───────────────────────────────────────────────────

func TestInstance_ReboundCallbackReentersContainer(t *testing.T) {
	c := container.New()

	var sawBound bool
	c.Rebinding("config", func(inst any) {
		// A rebound callback must be able to call back into the container.
		sawBound = c.Bound("config")
	})

	c.Instance("config", "v1")
	if !sawBound {
		t.Error("rebound callback should run after the instance is registered")
	}
}

func TestExtend_OnResolvedSingletonReentersContainer(t *testing.T) {
	c := container.New()
	c.Instance("suffix", "!")
	c.Singleton("greeting", func(c *container.Container) any { return "hello" })
	_ = c.Make("greeting")

	// Extending an already-resolved singleton runs the extender immediately;
	// the extender must be able to resolve from the container.
	c.Extend("greeting", func(instance any, c *container.Container) any {
		return instance.(string) + c.Make("suffix").(string)
	})

	if got := c.Make("greeting").(string); got != "hello!" {
		t.Errorf("got %q, want hello!", got)
	}
}

// transientScope never caches: every Get runs the factory, so concurrent
// resolutions all build at once.
type transientScope struct{}

func (transientScope) Get(key string, factory func() (any, error)) (any, error) {
	return factory()
}
func (transientScope) Remove(string) error { return nil }

func TestScoped_ConcurrentResolutionIsIsolated(t *testing.T) {
	const workers = 32
	c := container.New()
	c.RegisterScope("burst", transientScope{})

	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(workers)

	c.Bind("dep", func(c *container.Container) any { return "plain" })
	c.Scoped("svc", "burst", func(c *container.Container) any {
		entered.Done()
		<-release
		return "svc:" + c.Make("dep").(string)
	})
	c.When("svc").Needs("dep").Give(func(c *container.Container) any { return "tuned" })

	var wg sync.WaitGroup
	results := make([]any, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.CurrentInstance("svc")
		}(i)
	}

	entered.Wait()
	// Every worker is now mid-build. A bystander resolving "dep" directly
	// must not inherit any worker's contextual override.
	if got := c.Make("dep"); got != "plain" {
		t.Errorf("bystander resolved %v, want plain", got)
	}
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] != "svc:tuned" {
			t.Errorf("worker %d resolved %v, want svc:tuned", i, results[i])
		}
	}
}
