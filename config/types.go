// Package config loads and validates the backend client configuration
// from defaults, YAML files, and environment variables.
package config

import "time"

// Config represents the overall configuration structure for the backend
// client: connection settings, resilience tuning, and logging preferences.
type Config struct {
	Client ClientConfig `koanf:"client" json:"client" yaml:"client" toml:"client" mapstructure:"client"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log" toml:"log" mapstructure:"log"`
}

// ClientConfig holds the request dispatch and resilience settings.
type ClientConfig struct {
	BaseURL    string         `koanf:"baseurl" json:"baseurl" yaml:"baseurl" toml:"baseurl" mapstructure:"baseurl"`
	Timeout    time.Duration  `koanf:"timeout" json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout"`
	Retries    int            `koanf:"retries" json:"retries" yaml:"retries" toml:"retries" mapstructure:"retries"`
	RetryDelay time.Duration  `koanf:"retrydelay" json:"retrydelay" yaml:"retrydelay" toml:"retrydelay" mapstructure:"retrydelay"`
	Breaker    BreakerConfig  `koanf:"circuitbreaker" json:"circuitbreaker" yaml:"circuitbreaker" toml:"circuitbreaker" mapstructure:"circuitbreaker"`
	RateLimit  RateLimitConfig `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit" toml:"ratelimit" mapstructure:"ratelimit"`
}

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`

	// Threshold trips the breaker: a value in (0, 1] is a failure ratio,
	// above 1 an absolute failure count.
	Threshold float64 `koanf:"threshold" json:"threshold" yaml:"threshold" toml:"threshold" mapstructure:"threshold"`

	// Volume is the minimum sample count before the breaker can trip.
	Volume int `koanf:"volume" json:"volume" yaml:"volume" toml:"volume" mapstructure:"volume"`

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration `koanf:"resettimeout" json:"resettimeout" yaml:"resettimeout" toml:"resettimeout" mapstructure:"resettimeout"`
}

// RateLimitConfig holds token bucket tuning.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled" json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
	Rate    float64 `koanf:"rate" json:"rate" yaml:"rate" toml:"rate" mapstructure:"rate"`
	Burst   int     `koanf:"burst" json:"burst" yaml:"burst" toml:"burst" mapstructure:"burst"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" toml:"pretty" mapstructure:"pretty"`
}
