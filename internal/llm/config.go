package llm

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the LLM subsystem.
type Config struct {
	Provider    string // "openai", "anthropic", or "azure"
	Endpoint    string // base URL; empty uses the provider default
	APIKey      string
	Model       string
	Deployment  string // azure deployment name
	APIVersion  string // azure api-version query parameter
	Temperature float64
	MaxTokens   int
	TimeoutMs   int
	MaxRetries  int
	LogCalls    bool
}

// DefaultConfig returns a Config with sensible defaults. The OpenAI-compatible
// provider is the default backend; credentials still come from the environment.
func DefaultConfig() Config {
	return Config{
		Provider:    "openai",
		Temperature: 0.7,
		MaxTokens:   4096,
		TimeoutMs:   60000,
		MaxRetries:  2,
	}
}

// LoadConfig reads LLM configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SLEEPPLAN_LLM_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("SLEEPPLAN_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("SLEEPPLAN_LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("SLEEPPLAN_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SLEEPPLAN_LLM_DEPLOYMENT"); v != "" {
		cfg.Deployment = v
	}
	if v := os.Getenv("SLEEPPLAN_LLM_API_VERSION"); v != "" {
		cfg.APIVersion = v
	}
	if v := os.Getenv("SLEEPPLAN_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 2 {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("SLEEPPLAN_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("SLEEPPLAN_LLM_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("SLEEPPLAN_LLM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("SLEEPPLAN_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}

	return cfg
}

// Validate checks that the configuration is complete for the selected
// provider. It runs at client construction, before any network I/O, so a
// missing secret surfaces as ErrMisconfigured rather than a mid-request
// failure.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.Model == "" {
			return fmt.Errorf("%w: model is required", ErrMisconfigured)
		}
		// A custom endpoint means an OpenAI-compatible server that may not
		// require auth; the hosted API always does.
		if c.APIKey == "" && c.Endpoint == "" {
			return fmt.Errorf("%w: api key is required for the hosted OpenAI API", ErrMisconfigured)
		}
	case "anthropic":
		if c.Model == "" {
			return fmt.Errorf("%w: model is required", ErrMisconfigured)
		}
		if c.APIKey == "" {
			return fmt.Errorf("%w: api key is required for anthropic", ErrMisconfigured)
		}
	case "azure":
		if c.APIKey == "" {
			return fmt.Errorf("%w: api key is required for azure", ErrMisconfigured)
		}
		if c.Endpoint == "" {
			return fmt.Errorf("%w: endpoint is required for azure", ErrMisconfigured)
		}
		if c.Deployment == "" {
			return fmt.Errorf("%w: deployment is required for azure", ErrMisconfigured)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrMisconfigured, c.Provider)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrMisconfigured)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrMisconfigured)
	}
	return nil
}
