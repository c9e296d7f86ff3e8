package providers

import (
	"github.com/km-arc/go-scoped/framework/config"
	"github.com/km-arc/go-scoped/framework/container"
	"github.com/km-arc/go-scoped/framework/scope"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env and
// binds it into the container as "config".
//
// Bound abstracts:
//   - "config"  → *config.Config
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	envFiles := p.EnvFiles
	app.Singleton("config", func(c *container.Container) any {
		return config.Load(envFiles...)
	})
	app.Alias("config", "configuration")
}

// ── ScopeServiceProvider ──────────────────────────────────────────────────────

// ScopeServiceProvider wires the scoping machinery into the container.
//
// Bound abstracts:
//   - "scope.request"    → *scope.RequestScope (also registered as a
//     container scope under the configured request-scope name)
//   - "scope.interfaces" → *scope.InterfaceRegistry
//
// Configuration keys read from "config":
//   - Scope.RequestScopeName (default: "request")
//
// Laravel equivalent:
//
//	// $app->scoped() support plus the per-request instance flush
type ScopeServiceProvider struct {
	container.BaseProvider

	// ScopeName overrides the configured request-scope name when non-empty.
	ScopeName string
}

func (p *ScopeServiceProvider) Register(app *container.Container) {
	app.Instance("scope.request", scope.NewRequestScope())
	app.Instance("scope.interfaces", scope.NewInterfaceRegistry())
}

func (p *ScopeServiceProvider) Boot(app *container.Container) {
	name := p.ScopeName
	if name == "" {
		name = "request"
		if app.Bound("config") {
			if cfg, ok := container.MustResolve[*config.Config](app, "config"); ok && cfg.Scope.RequestScopeName != "" {
				name = cfg.Scope.RequestScopeName
			}
		}
	}
	rs := container.Resolve[*scope.RequestScope](app, "scope.request")
	app.RegisterScope(name, rs)
}
