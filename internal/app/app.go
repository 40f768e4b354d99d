// Package app assembles the catalog runtime from configuration: the store,
// tracing, the dispatcher with its middleware and event bus, the compiler
// and the command handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/compiler"
	"github.com/zjrosen/specforge/internal/catalog/dispatcher"
	"github.com/zjrosen/specforge/internal/catalog/handler"
	"github.com/zjrosen/specforge/internal/catalog/validator"
	"github.com/zjrosen/specforge/internal/config"
	"github.com/zjrosen/specforge/internal/infrastructure/sqlstore"
	"github.com/zjrosen/specforge/internal/log"
	"github.com/zjrosen/specforge/internal/plan"
	"github.com/zjrosen/specforge/internal/pubsub"
	"github.com/zjrosen/specforge/internal/tracing"
	"github.com/zjrosen/specforge/internal/watcher"
)

// App is the wired catalog runtime.
type App struct {
	Config     config.Config
	DB         *sqlstore.DB
	Bus        *pubsub.Broker[any]
	Dispatcher *dispatcher.Dispatcher
	Compiler   *compiler.Compiler
	Tracing    *tracing.Provider
}

// New opens the configured store and wires the dispatcher.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := OpenDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	provider, err := tracing.NewProvider(cfg.Tracing,
		tracing.WithCatalog(string(db.Dialect()), !cfg.Compiler.DisableCache, cfg.Compiler.CacheTTL))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	bus := pubsub.NewBroker[any]()
	d := dispatcher.New(
		dispatcher.WithEventBus(bus),
		dispatcher.WithMiddleware(
			dispatcher.NewLoggingMiddleware(),
			tracing.NewTracingMiddleware(provider.Tracer()),
			dispatcher.NewSlowHandlerMiddleware(0),
			dispatcher.NewCommandLogMiddleware(bus),
		),
	)

	comp := compiler.New(compiler.Config{
		CacheTTL:        cfg.Compiler.CacheTTL,
		CleanupInterval: cfg.Compiler.CleanupInterval,
		DisableCache:    cfg.Compiler.DisableCache,
	}, compiler.WithTracer(provider.Tracer()))

	handler.New(db, validator.New(),
		handler.WithCompiler(comp),
		handler.WithRejectElementCycles(cfg.Schemas.RejectElementCycles),
	).Register(d)

	log.Info(log.CatConfig, "Catalog ready", "driver", string(db.Dialect()),
		"schema_version", db.SchemaVersion(), "tracing", provider.Enabled())

	return &App{
		Config:     cfg,
		DB:         db,
		Bus:        bus,
		Dispatcher: d,
		Compiler:   comp,
		Tracing:    provider,
	}, nil
}

// OpenDB opens the store selected by cfg.Driver, running migrations.
func OpenDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.DB, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		path := cfg.Path
		if path == "" {
			path = config.DefaultDatabasePath()
		}
		db, err := sqlstore.NewDB(path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite catalog %s: %w", path, err)
		}
		return db, nil
	case config.DriverPostgres:
		db, err := sqlstore.NewPostgresDB(ctx, cfg.DSN, cfg.MaxOpenConns)
		if err != nil {
			return nil, fmt.Errorf("opening postgres catalog: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Execute stamps cmd with the trace id carried by ctx, or a fresh one, and
// dispatches it.
func (a *App) Execute(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	if t, ok := cmd.(interface{ SetTraceID(string) }); ok {
		traceID := tracing.TraceIDFromContext(ctx)
		if traceID == "" {
			traceID = tracing.GenerateTraceID()
		}
		t.SetTraceID(traceID)
	}
	return a.Dispatcher.Execute(ctx, cmd)
}

// Apply loads the plan file at path and applies it.
func (a *App) Apply(ctx context.Context, path string, source command.CommandSource) (*plan.Result, error) {
	p, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	return plan.NewApplier(a.Dispatcher, plan.WithSource(source)).Apply(ctx, p)
}

// WatchPlan applies the plan at path, then reapplies it every time the file
// changes until ctx is done. onApply receives every outcome; apply failures
// do not stop the watch.
func (a *App) WatchPlan(ctx context.Context, path string, onApply func(*plan.Result, error)) error {
	w, err := watcher.New(watcher.Config{Path: path, DebounceDur: a.Config.Watch.Debounce})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	onApply(a.Apply(ctx, path, command.SourceWatcher))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			log.Info(log.CatWatcher, "Plan file changed", "path", path)
			onApply(a.Apply(ctx, path, command.SourceWatcher))
		}
	}
}

// Close flushes traces and closes the store.
func (a *App) Close(ctx context.Context) error {
	if stats, ok := a.Compiler.CacheStats(); ok {
		log.Debug(log.CatCache, "Plan cache", "hits", stats.Hits, "misses", stats.Misses, "items", stats.Items)
	}
	a.Bus.Close()
	return errors.Join(a.Tracing.Shutdown(ctx), a.DB.Close())
}

// InitLogging starts the logger the config asks for: a file when log.file
// is set, stderr when only debug is on, nothing otherwise. The returned
// cleanup is never nil.
func InitLogging(cfg config.LogConfig, stderr io.Writer) (func(), error) {
	level := log.LevelInfo
	if cfg.Debug {
		level = log.LevelDebug
	}
	switch {
	case cfg.File != "":
		cleanup, err := log.Init(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("initializing logging: %w", err)
		}
		log.SetMinLevel(level)
		return cleanup, nil
	case cfg.Debug:
		log.InitWriter(stderr, level)
		return func() { log.SetEnabled(false) }, nil
	default:
		return func() {}, nil
	}
}
