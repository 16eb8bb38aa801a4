package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"prayogai-rag/internal/pkg/retry"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), testPolicy(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), testPolicy(), func() error {
		calls++
		return errFatal
	})
	if !errors.Is(err, errFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestDoBoundsAttempts(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), testPolicy(), func() error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestDoWithDataZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := retry.DoWithData(context.Background(), testPolicy().WithAttempts(0), func() (int, error) {
		calls++
		return 0, errTransient
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestDoWithDataReturnsValue(t *testing.T) {
	calls := 0
	got, err := retry.DoWithData(context.Background(), testPolicy(), func() (string, error) {
		calls++
		if calls == 1 {
			return "", errTransient
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("expected ok, got %q, %v", got, err)
	}
}
