package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEnricher(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEnricher() error {
	if c.Enricher.PacingJitterMinSeconds > c.Enricher.PacingJitterMaxSeconds {
		return errors.New("enricher.pacing_jitter_min_seconds must not exceed enricher.pacing_jitter_max_seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// RequireLLM reports an error when no model credentials are configured.
// Worker runs need the key; read-only commands do not, so loading stays lax.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/curio/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set CURIO_LLM_API_KEY or edit %s (create with 'curio config init')", defaultPath)
	}
	return nil
}
