// Package poll defines the timing policy for a job status poll loop:
// backoff between status requests, the total wait budget, and how many
// consecutive transport failures to tolerate before giving up.
// A Policy is an immutable value; it is safe to share between loops.
package poll

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Policy governs one await loop.
type Policy struct {
	// InitialInterval is the delay before the second status poll.
	// The first poll is issued immediately.
	InitialInterval time.Duration

	// MaxInterval caps the backoff growth.
	MaxInterval time.Duration

	// Multiplier scales the interval after each poll. Must be >= 1.
	Multiplier float64

	// MaxTotalWait bounds the whole wait, measured against the job's
	// submission time. Past it the job is reported as timed out; the
	// remote job is not cancelled.
	MaxTotalWait time.Duration

	// MaxTransportFailures is how many consecutive transport failures
	// the loop tolerates before reporting the service unreachable.
	// Any successful status response resets the count.
	MaxTransportFailures int

	// Jitter draws each delay uniformly from [0, interval] to avoid
	// synchronized polling across many jobs. Off by default so that
	// interval growth stays deterministic.
	Jitter bool
}

// DefaultPolicy returns the policy used when callers have no opinion:
// 1s initial, 30s cap, doubling, 10m total budget, 3 failures tolerated.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval:      time.Second,
		MaxInterval:          30 * time.Second,
		Multiplier:           2,
		MaxTotalWait:         10 * time.Minute,
		MaxTransportFailures: 3,
	}
}

// Validate reports whether the policy is usable for a poll loop.
func (p Policy) Validate() error {
	if p.InitialInterval <= 0 {
		return errors.New("poll: InitialInterval must be positive")
	}
	if p.MaxInterval > 0 && p.MaxInterval < p.InitialInterval {
		return errors.New("poll: MaxInterval must be >= InitialInterval")
	}
	if p.Multiplier < 1 {
		return errors.New("poll: Multiplier must be >= 1")
	}
	if p.MaxTotalWait <= 0 {
		return errors.New("poll: MaxTotalWait must be positive")
	}
	if p.MaxTransportFailures < 0 {
		return errors.New("poll: MaxTransportFailures must be >= 0")
	}
	return nil
}

// Interval returns the delay before poll n (1-indexed). Poll 1 is the
// first re-poll after the initial status request, so Interval(1) ==
// InitialInterval. Growth is InitialInterval * Multiplier^(n-1), capped
// at MaxInterval.
func (p Policy) Interval(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(n-1))
	if p.MaxInterval > 0 && d > float64(p.MaxInterval) {
		d = float64(p.MaxInterval)
	}
	if p.Jitter {
		return time.Duration(rand.Float64() * d) //nolint:gosec // jitter intentionally uses non-crypto rand
	}
	return time.Duration(d)
}
