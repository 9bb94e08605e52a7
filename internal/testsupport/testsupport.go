// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"curio/internal/catalog"
	"curio/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.UploadsDir = filepath.Join(base, "uploads")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.LLM.APIKey = "test-key"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a catalog store on the config's database path and
// closes it when the test finishes.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog store: %v", err)
		}
	})
	return store
}
