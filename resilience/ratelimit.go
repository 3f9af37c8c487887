package resilience

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRate is the default refill rate in tokens per second.
	DefaultRate = 100
	// BurstMultiplier derives the default burst capacity from the rate.
	BurstMultiplier = 2
)

// LimiterConfig configures the per-key token buckets.
type LimiterConfig struct {
	// Rate is the refill rate in tokens per second. A rate of zero never
	// refills: the initial burst is admitted and every later acquisition
	// fails, so it is almost always a configuration mistake.
	// Default: 100
	Rate float64

	// Burst is the bucket capacity. A new key starts with a full bucket.
	// Default: Rate * BurstMultiplier
	Burst int
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.Rate < 0 {
		c.Rate = DefaultRate
	}
	if c.Burst <= 0 {
		c.Burst = int(c.Rate) * BurstMultiplier
		if c.Burst <= 0 {
			c.Burst = 1
		}
	}
	return c
}

// LimiterStats is a point-in-time view of one key's bucket.
type LimiterStats struct {
	Key    string
	Tokens float64
	Rate   float64
	Burst  int
}

// LimiterGroup manages token buckets by string key. Buckets are created
// lazily with a full burst and refilled lazily from elapsed time at each
// acquisition; no background timers are involved.
type LimiterGroup struct {
	cfg LimiterConfig
	now func() time.Time

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewLimiterGroup creates a limiter registry with the given per-bucket
// configuration.
func NewLimiterGroup(cfg LimiterConfig) *LimiterGroup {
	return &LimiterGroup{
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		limiters: make(map[string]*rate.Limiter),
	}
}

// TryAcquire takes cost tokens from the bucket for key if available. It
// never blocks; a false result means the call is rate limited right now
// and the bucket is left unchanged.
func (g *LimiterGroup) TryAcquire(key string, cost int) bool {
	if cost <= 0 {
		cost = 1
	}
	return g.get(key).AllowN(g.now(), cost)
}

// Acquire is the error-returning form of TryAcquire, matching the shape
// of Breaker.Allow for callers composing both gates.
func (g *LimiterGroup) Acquire(key string, cost int) error {
	if !g.TryAcquire(key, cost) {
		return ErrRateLimited
	}
	return nil
}

// Stats returns the current bucket state for key. A key that has never
// been used reports a full bucket.
func (g *LimiterGroup) Stats(key string) LimiterStats {
	g.mu.RLock()
	l, ok := g.limiters[key]
	g.mu.RUnlock()
	if !ok {
		return LimiterStats{Key: key, Tokens: float64(g.cfg.Burst), Rate: g.cfg.Rate, Burst: g.cfg.Burst}
	}
	return LimiterStats{
		Key:    key,
		Tokens: l.TokensAt(g.now()),
		Rate:   float64(l.Limit()),
		Burst:  l.Burst(),
	}
}

// Reset restores a full bucket for key.
func (g *LimiterGroup) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.limiters, key)
}

func (g *LimiterGroup) get(key string) *rate.Limiter {
	g.mu.RLock()
	l, ok := g.limiters[key]
	g.mu.RUnlock()
	if ok {
		return l
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[key]; ok {
		return l
	}
	l = rate.NewLimiter(rate.Limit(g.cfg.Rate), g.cfg.Burst)
	g.limiters[key] = l
	return l
}
