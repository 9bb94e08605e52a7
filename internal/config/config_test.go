package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultNormalizes(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected absolute data dir, got %q", cfg.Paths.DataDir)
	}
	if cfg.DatabasePath() != filepath.Join(cfg.Paths.DataDir, "catalog.db") {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatalf("expected missing file, got exists for %q", path)
	}
	if cfg.Paths.APIBind != defaultAPIBind {
		t.Fatalf("expected default bind, got %q", cfg.Paths.APIBind)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"[paths]",
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		"[transcript]",
		`languages = ["EN-us", "hi", "en"]`,
		"[enricher]",
		"pacing_seconds = 7",
	}, "\n")
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Enricher.PacingSeconds != 7 {
		t.Fatalf("expected pacing 7, got %d", cfg.Enricher.PacingSeconds)
	}
	if got := strings.Join(cfg.Transcript.Languages, ","); got != "en,hi" {
		t.Fatalf("expected deduplicated canonical languages, got %q", got)
	}
}

func TestLoadRejectsInvalidLanguage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[transcript]\nlanguages = [\"!!\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid language code")
	}
}

func TestValidateJitterBounds(t *testing.T) {
	cfg := Default()
	cfg.Enricher.PacingJitterMinSeconds = 10
	cfg.Enricher.PacingJitterMaxSeconds = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when jitter min exceeds max")
	}
}
