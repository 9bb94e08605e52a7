package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeEnricher()
	if err := c.normalizeTranscript(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadsDir) == "" {
		c.Paths.UploadsDir = defaultUploadsDir
	}
	if c.Paths.UploadsDir, err = expandPath(c.Paths.UploadsDir); err != nil {
		return fmt.Errorf("paths.uploads_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv("CURIO_LLM_API_KEY"))
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeEnricher() {
	c.Enricher.WorkerBinary = strings.TrimSpace(c.Enricher.WorkerBinary)
	if c.Enricher.PacingSeconds < 0 {
		c.Enricher.PacingSeconds = 0
	}
	if c.Enricher.PacingJitterMinSeconds <= 0 {
		c.Enricher.PacingJitterMinSeconds = defaultPacingJitterMin
	}
	if c.Enricher.PacingJitterMaxSeconds <= 0 {
		c.Enricher.PacingJitterMaxSeconds = defaultPacingJitterMax
	}
	if c.Enricher.FetchTimeoutSeconds <= 0 {
		c.Enricher.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Enricher.LogIdleTimeoutSeconds <= 0 {
		c.Enricher.LogIdleTimeoutSeconds = defaultLogIdleTimeoutSeconds
	}
}

func (c *Config) normalizeTranscript() error {
	if len(c.Transcript.Languages) == 0 {
		c.Transcript.Languages = append([]string(nil), defaultTranscriptLanguages...)
	}
	normalized := make([]string, 0, len(c.Transcript.Languages))
	seen := make(map[string]struct{}, len(c.Transcript.Languages))
	for _, raw := range c.Transcript.Languages {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		tag, err := language.Parse(trimmed)
		if err != nil {
			return fmt.Errorf("transcript.languages: invalid language %q: %w", raw, err)
		}
		base, _ := tag.Base()
		code := base.String()
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		normalized = append(normalized, code)
	}
	if len(normalized) == 0 {
		normalized = append(normalized, defaultTranscriptLanguages...)
	}
	c.Transcript.Languages = normalized
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
