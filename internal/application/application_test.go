package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{URL: "memory://"},
		Cache:    config.CacheConfig{TTL: time.Minute, CleanupInterval: time.Minute},
		Export:   config.ExportConfig{MaxConcurrent: 2, MaxWaitTime: time.Second, Timeout: time.Minute},
		Stats:    config.StatsConfig{RecentWindow: 48 * time.Hour, RecentRequiresContribution: true},
		Tracing:  config.TracingConfig{Exporter: "none"},
	}
}

func TestServiceOptions(t *testing.T) {
	cfg := testConfig()
	opts := ServiceOptions(cfg)
	if opts.RecentPolicy != core.RecentRequireContribution {
		t.Errorf("RecentPolicy = %v, want require_contribution", opts.RecentPolicy)
	}
	if opts.RecentWindow != 48*time.Hour || opts.MaxConcurrentExports != 2 {
		t.Errorf("opts = %+v", opts)
	}

	cfg.Stats.RecentRequiresContribution = false
	if got := ServiceOptions(cfg).RecentPolicy; got != core.RecentCountAll {
		t.Errorf("RecentPolicy = %v, want count_all", got)
	}
}

func TestNew_Memory(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if app.Backend != config.BackendMemory {
		t.Errorf("Backend = %q", app.Backend)
	}
	if err := app.Service.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := app.Close(ctx); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNew_BadStore(t *testing.T) {
	cfg := testConfig()
	cfg.Database.URL = "memory://?seed=/does/not/exist.json"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	errBoom := errors.New("boom")
	app := &App{closers: []func(context.Context) error{
		func(context.Context) error { order = append(order, 1); return nil },
		func(context.Context) error { order = append(order, 2); return errBoom },
	}}
	if err := app.Close(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("Close error = %v, want boom", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("close order = %v, want [2 1]", order)
	}
}
