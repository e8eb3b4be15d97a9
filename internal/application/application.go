// Package application wires configuration into a running console: the
// document store, media signer, tracing and service shared by the server
// and the command-line tool.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/formconsole/internal/blob"
	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
	"github.com/JonMunkholm/formconsole/internal/observability"
	"github.com/JonMunkholm/formconsole/internal/store"
)

// App holds the long-lived dependencies built from a Config.
type App struct {
	Config  *config.Config
	Store   core.Store
	Service *core.Service
	Backend string

	closers []func(context.Context) error
}

// New connects every dependency cfg describes. On error, anything already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	app.closers = append(app.closers, shutdownTracing)

	st, backend, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.Store, app.Backend = st, backend
	app.closers = append(app.closers, st.Close)
	slog.Info("connected to document store", "backend", backend)

	opts := ServiceOptions(cfg)
	if cfg.Blob.Enabled() {
		signer, err := blob.NewSigner(cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		if err := signer.Ping(ctx); err != nil {
			slog.Warn("blob store unreachable, media URLs may fail", "endpoint", cfg.Blob.Endpoint, "error", err)
		}
		opts.Signer = signer
	}

	app.Service = core.NewService(st, opts)
	return app, nil
}

// ServiceOptions maps configuration onto service options.
func ServiceOptions(cfg *config.Config) core.Options {
	policy := core.RecentRequireContribution
	if !cfg.Stats.RecentRequiresContribution {
		policy = core.RecentCountAll
	}
	return core.Options{
		CacheTTL:             cfg.Cache.TTL,
		CacheCleanupInterval: cfg.Cache.CleanupInterval,
		MaxConcurrentExports: cfg.Export.MaxConcurrent,
		ExportWaitTime:       cfg.Export.MaxWaitTime,
		RecentWindow:         cfg.Stats.RecentWindow,
		RecentPolicy:         policy,
	}
}

// Close releases dependencies in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
