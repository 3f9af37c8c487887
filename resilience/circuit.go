package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means requests pass through the gate unconditionally.
	StateClosed State = iota
	// StateOpen means the gate rejects every request without dispatching.
	StateOpen
	// StateHalfOpen means the gate admits a bounded number of trial requests.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of a dispatched attempt, fed back into
// the breaker that admitted it.
type Outcome int

const (
	// OutcomeSuccess counts the attempt as a success.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure counts the attempt as a failure.
	OutcomeFailure
	// OutcomeDiscard releases a half-open trial slot without counting the
	// attempt either way. Used when the caller canceled mid-flight, since
	// cancellation reflects caller intent rather than target health.
	OutcomeDiscard
)

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold trips the breaker once reached. Values in (0, 1]
	// are interpreted as a failure ratio over the current window; values
	// above 1 as an absolute failure count.
	// Default: 0.5
	FailureThreshold float64

	// VolumeThreshold is the minimum sample count in the current window
	// before the breaker can trip.
	// Default: 5
	VolumeThreshold int

	// ResetTimeout is how long the breaker stays open before the next
	// gate check moves it to half-open.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxTrials is the number of concurrent trial requests
	// admitted while half-open.
	// Default: 1
	HalfOpenMaxTrials int

	// OnStateChange is called (with the breaker's lock held) when the
	// state changes.
	OnStateChange func(key string, from, to State)
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 0.5
	}
	if c.VolumeThreshold <= 0 {
		c.VolumeThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxTrials <= 0 {
		c.HalfOpenMaxTrials = 1
	}
	return c
}

// BreakerSnapshot is a point-in-time view of a breaker's state.
type BreakerSnapshot struct {
	Key       string
	State     State
	Successes int
	Failures  int
	OpenedAt  time.Time
}

// Breaker is a per-target circuit breaker. The gate check (Allow) and the
// outcome update (Record) share one mutex so that concurrent requests
// observe a consistent, monotonically-progressing state.
type Breaker struct {
	key string
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	successes int
	failures  int
	openedAt  time.Time
	trials    int
}

// NewBreaker creates a breaker for the given key.
func NewBreaker(key string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		key:   key,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
		state: StateClosed,
	}
}

// Allow performs the gate check. It returns ErrCircuitOpen while the
// breaker is open or while every half-open trial slot is taken; a nil
// return in half-open state reserves a trial slot, which the caller must
// release with Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.trials >= b.cfg.HalfOpenMaxTrials {
			return ErrCircuitOpen
		}
		b.trials++
	}
	return nil
}

// Record feeds the classified outcome of an admitted attempt back into
// the breaker. Every Allow that returned nil must be paired with exactly
// one Record.
func (b *Breaker) Record(o Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		switch o {
		case OutcomeSuccess:
			b.successes++
		case OutcomeFailure:
			b.failures++
			if b.shouldTripLocked() {
				b.transitionLocked(StateOpen)
			}
		}

	case StateHalfOpen:
		if b.trials > 0 {
			b.trials--
		}
		switch o {
		case OutcomeSuccess:
			b.transitionLocked(StateClosed)
		case OutcomeFailure:
			b.transitionLocked(StateOpen)
		}

	case StateOpen:
		// Outcome of an attempt admitted before the breaker tripped.
		// The window was reset at the transition, so it no longer counts.
	}
}

// State returns the current state, applying the lazy open -> half-open
// transition if the reset timeout has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// Snapshot returns a point-in-time view of the breaker.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerSnapshot{
		Key:       b.key,
		State:     b.currentStateLocked(),
		Successes: b.successes,
		Failures:  b.failures,
		OpenedAt:  b.openedAt,
	}
}

// Reset forces the breaker back to closed and clears the window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked(StateClosed)
}

func (b *Breaker) shouldTripLocked() bool {
	total := b.successes + b.failures
	if total < b.cfg.VolumeThreshold {
		return false
	}
	if b.cfg.FailureThreshold > 1 {
		return float64(b.failures) >= b.cfg.FailureThreshold
	}
	return float64(b.failures)/float64(total) >= b.cfg.FailureThreshold
}

func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	b.successes = 0
	b.failures = 0
	b.trials = 0
	if to == StateOpen {
		b.openedAt = b.now()
	}
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.key, from, to)
	}
}

// BreakerGroup manages breakers by string key. Breakers are created
// lazily and live for the lifetime of the group; independent keys never
// share a lock.
type BreakerGroup struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewBreakerGroup creates a breaker registry with the given per-breaker
// configuration.
func NewBreakerGroup(cfg BreakerConfig) *BreakerGroup {
	return &BreakerGroup{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the given key, creating it on first use.
func (g *BreakerGroup) Get(key string) *Breaker {
	g.mu.RLock()
	b, ok := g.breakers[key]
	g.mu.RUnlock()
	if ok {
		return b
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.breakers[key]; ok {
		return b
	}
	b = NewBreaker(key, g.cfg)
	g.breakers[key] = b
	return b
}

// Snapshot returns the state of the breaker for key. A key that has never
// been used reports a closed breaker with an empty window.
func (g *BreakerGroup) Snapshot(key string) BreakerSnapshot {
	g.mu.RLock()
	b, ok := g.breakers[key]
	g.mu.RUnlock()
	if !ok {
		return BreakerSnapshot{Key: key, State: StateClosed}
	}
	return b.Snapshot()
}

// Reset forces the breaker for key back to closed, if it exists.
func (g *BreakerGroup) Reset(key string) {
	g.mu.RLock()
	b, ok := g.breakers[key]
	g.mu.RUnlock()
	if ok {
		b.Reset()
	}
}
