package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestWithRetryZeroRetriesSingleAttempt(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), Policy{MaxRetries: 0}, "flaky op", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls)
	}
	if err == nil || !strings.Contains(err.Error(), "failed after 0 retries") {
		t.Fatalf("expected error mentioning \"failed after 0 retries\", got %v", err)
	}
}

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	policy := Policy{MaxRetries: 3, RetryDelay: time.Millisecond}
	v, err := WithRetry(context.Background(), policy, "flaky op", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("boom")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("expected success value %q, got %q", "ok", v)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
}

func TestWithRetryPreservesFirstAndLastError(t *testing.T) {
	calls := 0
	policy := Policy{MaxRetries: 2, RetryDelay: time.Millisecond}
	sentinel := errors.New("last failure")
	_, err := WithRetry(context.Background(), policy, "flaky op", func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("first failure")
		}
		return 0, sentinel
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "first failure") || !strings.Contains(err.Error(), "last failure") {
		t.Fatalf("expected first and last errors in message, got %q", err.Error())
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected last error to be wrapped, got %v", err)
	}
}

func TestWithRetryExponentialBackoffDelays(t *testing.T) {
	policy := Policy{MaxRetries: 2, RetryDelay: 10 * time.Millisecond, BackoffMultiplier: 2, ExponentialBackoff: true}
	if d := backoffDelay(policy, 1); d != 10*time.Millisecond {
		t.Fatalf("attempt 1 delay = %s, want 10ms", d)
	}
	if d := backoffDelay(policy, 2); d != 20*time.Millisecond {
		t.Fatalf("attempt 2 delay = %s, want 20ms", d)
	}
	if d := backoffDelay(policy, 3); d != 40*time.Millisecond {
		t.Fatalf("attempt 3 delay = %s, want 40ms", d)
	}
}

func TestWithTimeoutDeadlineExceeded(t *testing.T) {
	_, err := WithTimeout(context.Background(), 20*time.Millisecond, "slow op", func(ctx context.Context) (int, error) {
		select {
		case <-time.After(time.Second):
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.Label != "slow op" || te.Timeout != 20*time.Millisecond {
		t.Fatalf("unexpected timeout error fields: %+v", te)
	}
}

func TestWithTimeoutPropagatesResult(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "fast op", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestWithTimeoutPropagatesFailureUnchanged(t *testing.T) {
	sentinel := errors.New("boom")
	_, err := WithTimeout(context.Background(), time.Second, "failing op", func(ctx context.Context) (int, error) {
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected original error to surface, got %v", err)
	}
}

func TestRetryWrappingTimeoutSurfacesTimeoutError(t *testing.T) {
	policy := Policy{MaxRetries: 1, RetryDelay: time.Millisecond}
	_, err := WithRetry(context.Background(), policy, "guarded op", func(ctx context.Context) (int, error) {
		return WithTimeout(ctx, 10*time.Millisecond, "guarded op", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected wrapped *TimeoutError after retries exhausted, got %v", err)
	}
}
