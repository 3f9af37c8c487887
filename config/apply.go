package config

import (
	"github.com/PoisedDok/AetherArena-sub004/client"
	"github.com/PoisedDok/AetherArena-sub004/resilience"
)

// ClientConfig converts the loaded configuration into the client package's
// config struct, ready for client.NewBuilderFromConfig.
func (c *Config) ClientConfig() client.Config {
	out := client.Config{
		BaseURL:    c.Client.BaseURL,
		Timeout:    c.Client.Timeout,
		MaxRetries: c.Client.Retries,
		RetryDelay: c.Client.RetryDelay,
	}

	if c.Client.Breaker.Enabled {
		out.Breaker = &resilience.BreakerConfig{
			FailureThreshold: c.Client.Breaker.Threshold,
			VolumeThreshold:  c.Client.Breaker.Volume,
			ResetTimeout:     c.Client.Breaker.ResetTimeout,
		}
	}

	if c.Client.RateLimit.Enabled {
		out.Limiter = &resilience.LimiterConfig{
			Rate:  c.Client.RateLimit.Rate,
			Burst: c.Client.RateLimit.Burst,
		}
	}

	return out
}
