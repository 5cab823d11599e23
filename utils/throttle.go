package utils

import (
	"context"
	"time"
)

// Throttle enforces a fixed real-time pause between sequential requests.
// It is not safe for concurrent use; the pipeline never shares one.
type Throttle struct {
	interval time.Duration
	pauses   int
}

// NewThrottle creates a Throttle that pauses rateLimitMs milliseconds.
func NewThrottle(rateLimitMs int) *Throttle {
	if rateLimitMs < 0 {
		rateLimitMs = 0
	}
	return &Throttle{interval: time.Duration(rateLimitMs) * time.Millisecond}
}

// Interval returns the configured pause length.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Pauses returns how many times Pause has been called.
func (t *Throttle) Pauses() int {
	return t.pauses
}

// Pause blocks for the configured interval or until ctx is done.
func (t *Throttle) Pause(ctx context.Context) error {
	t.pauses++
	if t.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
