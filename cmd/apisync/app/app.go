// Package app provides the application context and dependency management
// for the apisync CLI. It centralizes configuration, the connection to the
// management service and lifecycle management.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/apisync"
	"github.com/agentstation/apisync/internal/cmd/application"
	"github.com/agentstation/apisync/internal/transport"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/metrics"
)

// App represents the apisync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// Management service client (lazy-initialized, singleton)
	mu      sync.RWMutex
	client  gateway.Client
	metrics *metrics.Recorder
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// The configuration is loaded from the environment and the default config
// file; functional options may replace it.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Metrics returns the metrics recorder, or nil when no metrics file is configured.
func (a *App) Metrics() *metrics.Recorder {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metrics
}

// Client returns the management service client, creating it lazily if needed.
func (a *App) Client() (gateway.Client, error) {
	a.mu.RLock()
	if a.client != nil {
		client := a.client
		a.mu.RUnlock()
		return client, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.client != nil {
		return a.client, nil
	}

	client, err := a.newTransport()
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// newTransport builds the HTTP client from the configuration.
func (a *App) newTransport() (*transport.Client, error) {
	if a.config.Endpoint == "" {
		return nil, errors.NewConfigError("endpoint",
			"no management endpoint configured (set --endpoint or "+EnvPrefix+"_ENDPOINT)", nil)
	}

	auth, err := transport.NewAuthenticator(a.config.AuthScheme, a.config.AuthHeader)
	if err != nil {
		return nil, err
	}

	client, err := transport.New(a.config.Endpoint,
		transport.WithAuth(auth, a.config.APIKey),
		transport.WithTimeout(a.config.Timeout),
		transport.WithRateLimit(a.config.RateLimit, a.config.RateBurst),
		transport.WithPageLimit(a.config.PageLimit),
		transport.WithUserAgent("apisync/"+a.version),
	)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.Endpoint, err)
	}
	return client, nil
}

// Syncer returns a Syncer bound to the management service. Calls are
// recorded when a metrics file is configured.
func (a *App) Syncer(opts ...apisync.Option) (apisync.Syncer, error) {
	client, err := a.Client()
	if err != nil {
		return nil, err
	}

	all := append([]apisync.Option{apisync.WithTimeout(a.config.CommandTimeout)}, opts...)
	syncer, err := apisync.New(metrics.Instrument(client, a.Metrics()), all...)
	if err != nil {
		return nil, errors.WrapResource("create", "syncer", "", err)
	}
	return syncer, nil
}

// enableMetrics creates the recorder when a metrics file is configured.
func (a *App) enableMetrics() error {
	if a.config.MetricsFile == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.metrics != nil {
		return nil
	}

	recorder, err := metrics.New(nil)
	if err != nil {
		return err
	}
	a.metrics = recorder
	return nil
}

// Shutdown releases the connections held by the client.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()

	if c, ok := client.(*transport.Client); ok {
		c.CloseIdleConnections()
	}
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return &errors.ValidationError{Field: "config", Message: "cannot be nil"}
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClient sets the management service client (useful for testing).
func WithClient(client gateway.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
