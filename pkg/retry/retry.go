// Package retry provides policy-driven retries with exponential backoff.
// It is applied to read-only collaborator calls (fee quotes, balance
// reads); side-effecting dispatch calls are never retried here because a
// repeated bridge call could move value twice.
package retry

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrMaxRetriesExceeded is returned when all attempts failed
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy controls retry behaviour
type Policy struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64 // fraction of the backoff randomized, 0..1

	// RetryableFunc decides whether an error is worth retrying.
	// When nil every error is retried.
	RetryableFunc func(error) bool
}

// DefaultPolicy returns the policy used for collaborator reads
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
	}
}

// Validate checks the policy for nonsense values
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialBackoff <= 0 {
		return fmt.Errorf("initial backoff must be positive, got %s", p.InitialBackoff)
	}
	if p.Multiplier < 1.0 {
		return fmt.Errorf("multiplier must be >= 1.0, got %f", p.Multiplier)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("jitter must be in [0,1], got %f", p.Jitter)
	}
	return nil
}

// Backoff computes per-attempt wait durations for a policy
type Backoff struct {
	policy Policy
}

// NewBackoff creates a backoff calculator
func NewBackoff(policy Policy) *Backoff {
	return &Backoff{policy: policy}
}

// Calculate returns the wait before the given attempt (1-based)
func (b *Backoff) Calculate(attempt int) time.Duration {
	d := float64(b.policy.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= b.policy.Multiplier
		if d >= float64(b.policy.MaxBackoff) {
			d = float64(b.policy.MaxBackoff)
			break
		}
	}

	if b.policy.Jitter > 0 {
		delta := d * b.policy.Jitter
		d = d - delta + rand.Float64()*2*delta
	}

	if d > float64(b.policy.MaxBackoff) {
		d = float64(b.policy.MaxBackoff)
	}
	return time.Duration(d)
}
