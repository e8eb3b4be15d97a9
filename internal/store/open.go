// Package store opens the document store selected by configuration.
package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/JonMunkholm/formconsole/internal/config"
	"github.com/JonMunkholm/formconsole/internal/core"
	"github.com/JonMunkholm/formconsole/internal/store/memory"
	"github.com/JonMunkholm/formconsole/internal/store/mongo"
	"github.com/JonMunkholm/formconsole/internal/store/postgres"
)

// Open connects to the backend named by the DATABASE_URL scheme.
// memory:// URLs accept a seed parameter naming a JSON seed file.
func Open(ctx context.Context, cfg config.DatabaseConfig) (core.Store, string, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, "", err
	}

	switch backend {
	case config.BackendMongo:
		s, err := mongo.Open(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return s, backend, nil
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return s, backend, nil
	case config.BackendMemory:
		s, err := openMemory(cfg.URL)
		if err != nil {
			return nil, "", err
		}
		return s, backend, nil
	default:
		return nil, "", fmt.Errorf("unsupported backend %q", backend)
	}
}

func openMemory(rawURL string) (*memory.Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse memory url: %w", err)
	}
	s := memory.New()
	if seed := u.Query().Get("seed"); seed != "" {
		if err := s.LoadSeedFile(seed); err != nil {
			return nil, fmt.Errorf("load seed %s: %w", seed, err)
		}
	}
	return s, nil
}
