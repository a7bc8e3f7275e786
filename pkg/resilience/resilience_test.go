package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	fail := func() error { return errors.New("boom") }

	cb.Execute(fail)
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v after one failure, want closed", cb.GetState())
	}
	cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v after threshold failures, want open", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Millisecond})
	cb.Execute(func() error { return errors.New("boom") })
	if cb.GetState() != StateOpen {
		t.Fatal("breaker did not open")
	}
	time.Sleep(5 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe after reset timeout failed: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state = %v after successful probe, want closed", cb.GetState())
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "op", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
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

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("persistent")
	err := Retry(context.Background(), "op", RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want wrapped sentinel", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}

	if err := WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("fast fn err = %v", err)
	}
}
