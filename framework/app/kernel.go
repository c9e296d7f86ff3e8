package app

import (
	"fmt"
	"log"
	"net/http"

	"github.com/km-arc/go-scoped/framework/config"
	"github.com/km-arc/go-scoped/framework/container"
	"github.com/km-arc/go-scoped/framework/providers"
	"github.com/km-arc/go-scoped/framework/scope"
)

// Application is the top-level application container.
// It embeds the IoC Container and ProviderRegistry so user code can
// call app.Bind(), app.Scoped(), app.Register() directly —
// exactly like $app in Laravel's bootstrap/app.php.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
}

// New creates and bootstraps the application.
func New(envFiles ...string) *Application {
	c := container.New()
	registry := container.NewProviderRegistry(c)

	app := &Application{
		Container: c,
		Providers: registry,
	}

	// Register framework core providers
	registry.Register(&providers.ConfigServiceProvider{EnvFiles: envFiles})
	registry.Register(&providers.ScopeServiceProvider{})

	return app
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() {
	a.Providers.Boot()
}

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return container.Resolve[*config.Config](a.Container, "config")
}

// RequestScope resolves the bundled request scope.
func (a *Application) RequestScope() *scope.RequestScope {
	return container.Resolve[*scope.RequestScope](a.Container, "scope.request")
}

// Interfaces resolves the interface catalogue scoped proxies present.
func (a *Application) Interfaces() *scope.InterfaceRegistry {
	return container.Resolve[*scope.InterfaceRegistry](a.Container, "scope.interfaces")
}

// ScopedProxy builds (once) and returns the scoped proxy for a scoped
// binding, registering it in the container under key + ".proxy" so other
// bindings can consume it. The proxy honors the configured
// Scope.PreferConcrete flag. Repeated calls return the cached proxy.
func (a *Application) ScopedProxy(key string) (*scope.Proxy, error) {
	proxyKey := key + ".proxy"
	if a.Resolved(proxyKey) {
		if p, ok := container.MustResolve[*scope.Proxy](a.Container, proxyKey); ok {
			return p, nil
		}
	}

	if !a.Providers.Booted() {
		a.Boot()
	}

	proxy, err := scope.NewProxyBuilder(a.Container).
		SetTargetKey(key).
		SetPreferConcrete(a.Config().Scope.PreferConcrete).
		SetInterfaces(a.Interfaces()).
		Build()
	if err != nil {
		return nil, err
	}

	a.Instance(proxyKey, proxy)
	return proxy, nil
}

// Serve boots the application if needed and starts the HTTP server on
// APP_PORT (default 8000) with the given handler.
func (a *Application) Serve(handler http.Handler) {
	if !a.Providers.Booted() {
		a.Boot()
	}
	cfg := a.Config()
	addr := ":" + cfg.App.Port
	fmt.Printf("🚀  %s running on http://localhost%s  [%s]\n",
		cfg.App.Name, addr, cfg.App.Env)

	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }
func (a *Application) Version() string     { return "0.1.0" }
