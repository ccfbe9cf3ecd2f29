package poller

import (
	"testing"
	"time"
)

func TestBackoffDoublesUntilCap(t *testing.T) {
	backoff := NewBackoff(time.Second, 5*time.Second)
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, expected := range want {
		if got := backoff.Next(); got != expected {
			t.Fatalf("step %d: expected %s, got %s", i, expected, got)
		}
	}
}

func TestBackoffFixedInterval(t *testing.T) {
	backoff := NewBackoff(3*time.Second, 3*time.Second)
	for i := 0; i < 4; i++ {
		if got := backoff.Next(); got != 3*time.Second {
			t.Fatalf("expected fixed 3s interval, got %s", got)
		}
	}
}

func TestNextDelayNormalizesBounds(t *testing.T) {
	if got := NextDelay(0, 0, 0); got != DefaultBaseInterval {
		t.Fatalf("expected default base, got %s", got)
	}
	if got := NextDelay(2*time.Second, 2*time.Second, time.Second); got != 2*time.Second {
		t.Fatalf("expected cap raised to base, got %s", got)
	}
}
