package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campusbooker/internal/apperr"
)

func testCaller(t *testing.T, cfg Config, fallback func() bool) *Caller[bool] {
	t.Helper()
	log := zerolog.Nop()
	return New(cfg, fallback, &log)
}

func fastConfig() Config {
	return Config{
		Name:         "test",
		Attempts:     2,
		Delay:        time.Millisecond,
		Backoff:      1,
		FailureRatio: 0.5,
		MinRequests:  2,
		Cooldown:     time.Minute,
	}
}

func TestCallReturnsValueOnSuccess(t *testing.T) {
	c := testCaller(t, fastConfig(), func() bool { return false })

	got, err := c.Call(context.Background(), "op", func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("Call() error = %v, want nil", err)
	}
	if !got {
		t.Error("Call() = false, want true")
	}
}

func TestCallRetriesTransientFailure(t *testing.T) {
	c := testCaller(t, fastConfig(), func() bool { return false })

	calls := 0
	got, err := c.Call(context.Background(), "op", func(ctx context.Context) (bool, error) {
		calls++
		if calls == 1 {
			return false, errors.New("connection reset")
		}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Call() error = %v, want nil", err)
	}
	if !got {
		t.Error("Call() = false, want true after retry")
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestCallFallsBackWhenRetriesExhausted(t *testing.T) {
	c := testCaller(t, fastConfig(), func() bool { return false })

	calls := 0
	got, err := c.Call(context.Background(), "op", func(ctx context.Context) (bool, error) {
		calls++
		return true, errors.New("downstream on fire")
	})
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("Call() error = %v, want ErrUnavailable", err)
	}
	if got {
		t.Error("Call() = true, want fallback false")
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2 attempts", calls)
	}
}

func TestCallOpensCircuitAndShortCircuits(t *testing.T) {
	c := testCaller(t, fastConfig(), func() bool { return false })

	calls := 0
	failing := func(ctx context.Context) (bool, error) {
		calls++
		return false, errors.New("downstream gone")
	}

	// Two failed calls trip the breaker (MinRequests=2, ratio 0.5).
	for i := 0; i < 2; i++ {
		if _, err := c.Call(context.Background(), "op", failing); !errors.Is(err, apperr.ErrUnavailable) {
			t.Fatalf("call %d error = %v, want ErrUnavailable", i, err)
		}
	}

	before := calls
	got, err := c.Call(context.Background(), "op", failing)
	if !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("short-circuited call error = %v, want ErrUnavailable", err)
	}
	if got {
		t.Error("short-circuited call = true, want fallback false")
	}
	if calls != before {
		t.Errorf("fn invoked while circuit open: %d calls, want %d", calls, before)
	}
}

func TestCallDoesNotRetryPermanentError(t *testing.T) {
	c := testCaller(t, fastConfig(), func() bool { return false })

	notFound := apperr.NotFound("user 7 does not exist")
	calls := 0
	_, err := c.Call(context.Background(), "op", func(ctx context.Context) (bool, error) {
		calls++
		return false, Permanent(notFound)
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Call() error = %v, want the permanent business error", err)
	}
	if errors.Is(err, apperr.ErrUnavailable) {
		t.Error("permanent error must not be tagged unavailable")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1 (no retry on permanent)", calls)
	}
}

func TestPermanentErrorsDoNotTripBreaker(t *testing.T) {
	c := testCaller(t, fastConfig(), func() bool { return false })

	notFound := Permanent(apperr.NotFound("missing"))
	for i := 0; i < 5; i++ {
		_, _ = c.Call(context.Background(), "op", func(ctx context.Context) (bool, error) {
			return false, notFound
		})
	}

	// The breaker must still be closed: a healthy call goes through.
	got, err := c.Call(context.Background(), "op", func(ctx context.Context) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("Call() after permanent failures error = %v, want nil", err)
	}
	if !got {
		t.Error("Call() = false, want true")
	}
}
