package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestRetrySucceedsAfterFailures verifies that a transient failure is
// retried and success stops the loop.
func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "test", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

// TestRetryExhaustsBudget verifies the wrapped error after the attempt
// budget runs out.
func TestRetryExhaustsBudget(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	err := Retry(context.Background(), "test", RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
	}, func() error {
		attempts++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("got %v, want wrapped permanent error", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

// TestRetryRespectsContext verifies cancellation aborts the backoff.
func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, "test", RetryConfig{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
	}, func() error {
		attempts++
		cancel()
		return errors.New("failing")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context cancellation", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

// TestComputeDelayBounds verifies the delay grows with the attempt and
// never exceeds the cap.
func TestComputeDelayBounds(t *testing.T) {
	cfg := RetryConfig{}
	cfg.applyDefaults()
	for attempt := 1; attempt <= 10; attempt++ {
		d := computeDelay(attempt, cfg)
		if d > cfg.MaxDelay {
			t.Errorf("attempt %d: delay %v exceeds cap %v", attempt, d, cfg.MaxDelay)
		}
		if d <= 0 {
			t.Errorf("attempt %d: non-positive delay %v", attempt, d)
		}
	}
}
