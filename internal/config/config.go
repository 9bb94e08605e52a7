package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	UploadsDir string `toml:"uploads_dir"`
	APIBind    string `toml:"api_bind"`
}

// LLM contains the generative model connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Enricher contains knobs for the batch run loop and the per-item worker.
type Enricher struct {
	// WorkerBinary overrides the executable spawned per item. Empty means
	// the running curio binary re-invokes itself.
	WorkerBinary string `toml:"worker_binary"`
	// PacingSeconds is a fixed pause between items. When zero, a random
	// pause between the jitter bounds is used instead.
	PacingSeconds          int `toml:"pacing_seconds"`
	PacingJitterMinSeconds int `toml:"pacing_jitter_min_seconds"`
	PacingJitterMaxSeconds int `toml:"pacing_jitter_max_seconds"`
	FetchTimeoutSeconds    int `toml:"fetch_timeout_seconds"`
	LogIdleTimeoutSeconds  int `toml:"log_idle_timeout_seconds"`
}

// Transcript contains the caption retrieval language preferences.
type Transcript struct {
	// Languages are tried in order; the first is the primary locale.
	Languages []string `toml:"languages"`
}

// Logging contains configuration for operational log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for curio.
//
// Sections by subsystem:
//   - Paths: data/uploads directories and API bind address
//   - LLM: generative model connection settings
//   - Enricher: batch pacing, worker invocation, timeouts
//   - Transcript: caption language preference order
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	LLM        LLM        `toml:"llm"`
	Enricher   Enricher   `toml:"enricher"`
	Transcript Transcript `toml:"transcript"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/curio/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path and the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("curio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadsDir, c.ScratchDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the catalog database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// LockPath returns the location of the batch lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "enrichment.lock")
}

// ScratchDir returns the directory used for transient subtitle downloads.
func (c *Config) ScratchDir() string {
	return filepath.Join(c.Paths.DataDir, "scratch")
}

// YtDlpBinary returns the media metadata extractor executable name.
func (c *Config) YtDlpBinary() string {
	return "yt-dlp"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
