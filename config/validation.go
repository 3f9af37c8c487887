package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Validate checks the configuration for values that would misbehave at
// runtime. It returns an error describing the first failed validation.
func Validate(cfg *Config) error {
	if err := validateClient(&cfg.Client); err != nil {
		return fmt.Errorf("client config: %w", err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}

	return nil
}

func validateClient(cfg *ClientConfig) error {
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base url: %q", cfg.BaseURL)
		}
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if cfg.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}

	if cfg.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}

	if err := validateBreaker(&cfg.Breaker); err != nil {
		return err
	}

	return validateRateLimit(&cfg.RateLimit)
}

func validateBreaker(cfg *BreakerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.Threshold <= 0 {
		return fmt.Errorf("circuit breaker threshold must be positive")
	}

	if cfg.Volume <= 0 {
		return fmt.Errorf("circuit breaker volume must be positive")
	}

	if cfg.ResetTimeout <= 0 {
		return fmt.Errorf("circuit breaker reset timeout must be positive")
	}

	return nil
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}

	// A zero rate admits the initial burst and then blocks forever.
	if cfg.Rate <= 0 {
		return fmt.Errorf("rate limit rate must be positive")
	}

	if cfg.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func validateLog(cfg *LogConfig) error {
	if _, err := zerolog.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("invalid log level: %q", cfg.Level)
	}
	return nil
}
