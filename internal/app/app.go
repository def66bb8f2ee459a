package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/executor"
	"github.com/vk/flowgrid/internal/hclgraph"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/runstate"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *nodes.Registry
	loader   *hclgraph.Loader
	metrics  *prometheus.Registry
	execOpts []executor.Option

	ctx        context.Context
	httpServer *http.Server

	mu       sync.Mutex
	runState runstate.Store
}

// Option customizes an App.
type Option func(*App)

// WithRegistry replaces the builtin node registry.
func WithRegistry(reg *nodes.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithExecutorOptions appends options passed to every executor the app creates.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(a *App) { a.execOpts = append(a.execOpts, opts...) }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger, registry and
// metrics registry.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: nodes.Builtin(),
		metrics:  prometheus.NewRegistry(),
		ctx:      ctxlog.WithLogger(context.Background(), logger),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.loader = hclgraph.NewLoader(a.registry)
	logger.Debug("App configured.", "graph", cfg.GraphPath, "types", len(a.registry.Types()))
	return a
}

// Registry returns the node registry. This is primarily for testing.
func (a *App) Registry() *nodes.Registry { return a.registry }

// Metrics returns the Prometheus registry the app reports to.
func (a *App) Metrics() *prometheus.Registry { return a.metrics }

// RunState returns the run-state of the current or last run, or nil.
func (a *App) RunState() runstate.Store {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runState
}

func (a *App) setRunState(s runstate.Store) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runState = s
}
