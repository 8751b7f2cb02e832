package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Reconnect pacing defaults.
const (
	// DefaultInitialDelay is the first reconnection delay.
	DefaultInitialDelay = 1 * time.Second

	// DefaultMaxDelay is the reconnection delay ceiling. A
	// power-cycled AZM takes about 30 seconds to boot, so waiting
	// longer than that between dials only adds dead air.
	DefaultMaxDelay = 30 * time.Second

	// DefaultMultiplier is the factor between consecutive delays.
	DefaultMultiplier = 2.0

	// DefaultJitter is the maximum random extension as a fraction of
	// the base delay.
	DefaultJitter = 0.25
)

// Backoff produces exponentially increasing, jittered delays between
// reconnection attempts.
type Backoff struct {
	mu sync.Mutex

	// Base delay for the next attempt, before jitter.
	current time.Duration

	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	attempts int

	rng *rand.Rand
}

// NewBackoff creates a backoff calculator with the default pacing.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: DefaultJitter})
}

// BackoffConfig customizes backoff pacing. Zero durations and a
// multiplier at or below 1 fall back to the defaults; jitter 0 means
// no jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewBackoffWithConfig creates a backoff calculator with custom pacing.
func NewBackoffWithConfig(config BackoffConfig) *Backoff {
	if config.Initial <= 0 {
		config.Initial = DefaultInitialDelay
	}
	if config.Max <= 0 {
		config.Max = DefaultMaxDelay
	}
	if config.Multiplier <= 1 {
		config.Multiplier = DefaultMultiplier
	}
	if config.Jitter < 0 {
		config.Jitter = 0
	}

	return &Backoff{
		current:    config.Initial,
		initial:    config.Initial,
		max:        config.Max,
		multiplier: config.Multiplier,
		jitter:     config.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay (with jitter) and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.current)

	b.attempts++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

// Peek returns the next delay (with jitter) without advancing.
func (b *Backoff) Peek() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addJitter(b.current)
}

// Reset restores the initial pacing. Called after a successful
// connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last
// reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the next base delay, without jitter.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	extra := time.Duration(float64(d) * b.jitter * b.rng.Float64())
	return d + extra
}

// BackoffSequence returns the base delays (without jitter) from the
// first attempt up to the ceiling.
func BackoffSequence() []time.Duration {
	return []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // ceiling
	}
}
