package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/formconsole/internal/admin"
	"github.com/JonMunkholm/formconsole/internal/application"
	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/logging"
)

func main() {
	_ = godotenv.Overload()
	// The CLI serves no HTTP, so admin tokens are not needed.
	if _, ok := os.LookupEnv("AUTH_REQUIRED"); !ok {
		_ = os.Setenv("AUTH_REQUIRED", "false")
	}

	root := admin.NewRootCmd(func(ctx context.Context) (*application.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		slog.Debug("configuration loaded", "config", cfg.String())
		return application.New(ctx, cfg)
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
