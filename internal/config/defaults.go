package config

const (
	defaultDataDir               = "~/.local/share/curio"
	defaultUploadsDir            = "~/.local/share/curio/uploads"
	defaultAPIBind               = "127.0.0.1:5001"
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-2.5-flash-lite"
	defaultLLMTimeoutSeconds     = 60
	defaultPacingJitterMin       = 2
	defaultPacingJitterMax       = 5
	defaultFetchTimeoutSeconds   = 15
	defaultLogIdleTimeoutSeconds = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

var defaultTranscriptLanguages = []string{"en", "hi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			UploadsDir: defaultUploadsDir,
			APIBind:    defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Enricher: Enricher{
			PacingJitterMinSeconds: defaultPacingJitterMin,
			PacingJitterMaxSeconds: defaultPacingJitterMax,
			FetchTimeoutSeconds:    defaultFetchTimeoutSeconds,
			LogIdleTimeoutSeconds:  defaultLogIdleTimeoutSeconds,
		},
		Transcript: Transcript{
			Languages: append([]string(nil), defaultTranscriptLanguages...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
