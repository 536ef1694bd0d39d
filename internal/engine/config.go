package engine

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the gating thresholds and generation defaults. These are
// inputs to the gate contract, not constants: deployments tune them per
// environment.
type Config struct {
	// WindowDays is the default trailing context window length.
	WindowDays int
	// MinEvents is the minimum event count the sanity gate requires.
	MinEvents int
	// MinDistinctTypes is the minimum number of distinct event types.
	MinDistinctTypes int
	// AllowSurveyOnly lets a complete survey pass the initial gate with no
	// event history at all.
	AllowSurveyOnly bool
	// SanityGateRefinements applies the event/type/age sanity check to
	// transcript refinements too. Off by default: refinements are driven by
	// a consultation transcript, not raw event volume.
	SanityGateRefinements bool
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		WindowDays:            30,
		MinEvents:             10,
		MinDistinctTypes:      2,
		AllowSurveyOnly:       true,
		SanityGateRefinements: false,
	}
}

// LoadConfig reads engine configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("SLEEPPLAN_WINDOW_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WindowDays = n
		}
	}
	if v := os.Getenv("SLEEPPLAN_MIN_EVENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MinEvents = n
		}
	}
	if v := os.Getenv("SLEEPPLAN_MIN_DISTINCT_TYPES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MinDistinctTypes = n
		}
	}
	if v := os.Getenv("SLEEPPLAN_ALLOW_SURVEY_ONLY"); v != "" {
		cfg.AllowSurveyOnly, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("SLEEPPLAN_SANITY_GATE_REFINEMENTS"); v != "" {
		cfg.SanityGateRefinements, _ = strconv.ParseBool(v)
	}

	return cfg
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.WindowDays <= 0 {
		return fmt.Errorf("window days must be positive, got %d", c.WindowDays)
	}
	if c.MinEvents < 0 || c.MinDistinctTypes < 0 {
		return fmt.Errorf("gate thresholds must not be negative")
	}
	return nil
}
