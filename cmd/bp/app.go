// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/battery-pack-rs/battery-pack/internal/config"
	"github.com/battery-pack-rs/battery-pack/internal/registry"
	"github.com/battery-pack-rs/battery-pack/internal/selection"
	"github.com/battery-pack-rs/battery-pack/internal/templates"
	"github.com/battery-pack-rs/battery-pack/internal/tui"
	"github.com/battery-pack-rs/battery-pack/pkg/composition"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root of the CLI layer: every Cobra handler receives an App and reaches
	// the registry, cache and facade through it.
	App struct {
		Config   ConfigProvider
		Services ServiceFactory

		stdout io.Writer
		stderr io.Writer

		// Set by the root command before any RunE.
		cfg         *config.Config
		cfgPath     string
		cfgSource   string
		cfgErr      error
		verbose     bool
		interactive bool

		once   sync.Once
		svc    *Services
		svcErr error
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Services ServiceFactory
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// pathLoader is implemented by providers that know which file they read.
	pathLoader interface {
		LoadWithPath(ctx context.Context, opts config.LoadOptions) (config.Loaded, error)
	}

	// ServiceFactory builds the registry-facing services for a configuration.
	ServiceFactory func(cfg *config.Config) (*Services, error)

	// Services are the long-lived collaborators of one bp invocation.
	Services struct {
		Registry *registry.Client
		Catalog  selection.Catalog
		Cache    *templates.Cache
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Services == nil {
		deps.Services = NewServices
	}

	return &App{
		Config:   deps.Config,
		Services: deps.Services,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}
}

// NewServices builds the production services: a crates.io client with a DNS
// cached transport, the configured distribution point, and the on-disk
// template cache.
func NewServices(cfg *config.Config) (*Services, error) {
	timeout, err := cfg.Registry.Timeout.Duration(registry.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	clientOpts := []registry.ClientOption{registry.WithHTTPClient(registry.NewHTTPClient(timeout))}
	if cfg.Registry.URL != "" {
		clientOpts = append(clientOpts, registry.WithBaseURL(string(cfg.Registry.URL)))
	}
	if cfg.Registry.CDNURL != "" {
		clientOpts = append(clientOpts, registry.WithCDNURL(string(cfg.Registry.CDNURL)))
	}
	if cfg.Registry.UserAgent != "" {
		clientOpts = append(clientOpts, registry.WithUserAgent(cfg.Registry.UserAgent))
	}
	client := registry.NewClient(clientOpts...)

	var dist templates.Distribution
	switch cfg.Distribution {
	case config.DistributionGit:
		var gitOpts []templates.GitOption
		if cfg.Git.TokenEnv != "" {
			gitOpts = append(gitOpts, templates.WithGitToken(os.Getenv(cfg.Git.TokenEnv)))
		}
		dist = templates.NewGitDistribution(string(cfg.Git.URLPattern), gitOpts...)
	default:
		dist = registry.NewCratesIO(client)
	}

	cacheOpts := []templates.Option{templates.WithListingCacheSize(cfg.Cache.ListingSize)}
	if cfg.Cache.Dir != "" {
		cacheOpts = append(cacheOpts, templates.WithDir(string(cfg.Cache.Dir)))
	}
	cache, err := templates.New(dist, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening template cache: %w", err)
	}

	slog.Debug("services ready", "registry", client.BaseURL(), "distribution", cfg.Distribution, "cache", cache.Dir())

	return &Services{
		Registry: client,
		Catalog:  selection.NewRegistryCatalog(client),
		Cache:    cache,
	}, nil
}

// loadConfig loads the configuration once per invocation. A broken config
// file is reported as a warning and defaults are used, so that 'bp config'
// can still repair it.
func (a *App) loadConfig(ctx context.Context, cfgFile string) {
	opts := config.LoadOptions{ConfigFilePath: cfgFile}

	var (
		loaded *config.Config
		err    error
	)
	if pl, ok := a.Config.(pathLoader); ok {
		var withPath config.Loaded
		withPath, err = pl.LoadWithPath(ctx, opts)
		loaded, a.cfgSource = withPath.Config, withPath.Path
	} else {
		loaded, err = a.Config.Load(ctx, opts)
	}
	if err != nil {
		a.cfgErr = err
		fmt.Fprintln(a.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, a.verbose))
		loaded = config.DefaultConfig()
	}
	a.cfg = loaded
	a.cfgPath = cfgFile
}

// services builds the Services on first use.
func (a *App) services() (*Services, error) {
	a.once.Do(func() {
		a.svc, a.svcErr = a.Services(a.cfg)
	})
	return a.svc, a.svcErr
}

// facade returns a selection facade over the services. A nil lookup
// resolves packs through the template cache.
func (a *App) facade(lookup composition.Lookup) (*selection.Facade, error) {
	svc, err := a.services()
	if err != nil {
		return nil, err
	}
	if lookup == nil {
		lookup = selection.NewCacheLookup(svc.Cache)
	}

	var opts []selection.Option
	if a.interactive {
		opts = append(opts, selection.WithChooser(a.chooser()))
	}
	return selection.New(svc.Catalog, svc.Cache, lookup, opts...), nil
}

func (a *App) chooser() *tui.Chooser {
	c := tui.NewChooser()
	c.Config.Theme = themeFor(a.cfg.UI.ColorScheme)
	return c
}

func (a *App) tuiConfig() tui.Config {
	return a.chooser().Config
}

// themeFor maps the configured color scheme to a prompt theme.
func themeFor(cs config.ColorScheme) tui.Theme {
	switch cs {
	case config.ColorSchemeLight:
		return tui.ThemeBase16
	case config.ColorSchemeDark:
		return tui.ThemeCharm
	default:
		return tui.ThemeDefault
	}
}
