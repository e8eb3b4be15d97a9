package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/formconsole/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(seed, []byte(`{"users":[{"uid":"u1","name":"Alice","status":"pending"}]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	s, backend, err := Open(context.Background(), config.DatabaseConfig{URL: "memory://local?seed=" + seed})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if backend != config.BackendMemory {
		t.Errorf("backend = %q, want %q", backend, config.BackendMemory)
	}
	u, err := s.GetUser(context.Background(), "u1")
	if err != nil || u.Name != "Alice" {
		t.Errorf("GetUser() = %+v, %v", u, err)
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []string{
		"no-scheme",
		"redis://localhost",
		"memory://local?seed=/does/not/exist.json",
	}
	for _, url := range tests {
		if _, _, err := Open(context.Background(), config.DatabaseConfig{URL: url}); err == nil {
			t.Errorf("Open(%q) error = nil, want error", url)
		}
	}
}
