package poller

import (
	"context"
	"time"
)

const (
	DefaultBaseInterval = time.Second
	DefaultMaxInterval  = 5 * time.Second
)

// NextDelay is the backoff step: the base interval first, then doubling until
// the cap. A base equal to the cap gives a fixed polling interval.
func NextDelay(previous, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	if max < base {
		max = base
	}
	if previous <= 0 {
		return base
	}
	next := previous * 2
	if next > max || next <= 0 {
		return max
	}
	return next
}

// Backoff holds the delay state of one polling run.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = DefaultBaseInterval
	}
	if max < base {
		max = base
	}
	return &Backoff{base: base, max: max}
}

func (b *Backoff) Next() time.Duration {
	b.current = NextDelay(b.current, b.base, b.max)
	return b.current
}

// Sleeper suspends the poll loop between ticks.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
