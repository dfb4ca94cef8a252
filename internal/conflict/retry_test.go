package conflict

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/voltera-ev/evscgo/internal/database"
)

func TestRetryOnWriteConflict_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	start := time.Now()

	result, err := RetryOnWriteConflict(context.Background(), 3, func() (string, error) {
		calls++
		if calls <= 2 {
			return "", fmt.Errorf("tx collided: %w", database.ErrWriteConflict)
		}
		return "done", nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "done" {
		t.Errorf("result = %q, want done", result)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	// Two backoffs: 50ms + 100ms
	if elapsed < 150*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 150ms of backoff", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, backoff much longer than expected", elapsed)
	}
}

func TestRetryOnWriteConflict_NonRetryableFailsImmediately(t *testing.T) {
	boom := errors.New("constraint violation")
	calls := 0
	start := time.Now()

	_, err := RetryOnWriteConflict(context.Background(), 3, func() (int, error) {
		calls++
		return 0, boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected original error back, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("non-retryable error must not back off, took %v", elapsed)
	}
}

func TestRetryOnWriteConflict_ExhaustionReturnsLastError(t *testing.T) {
	calls := 0

	_, err := RetryOnWriteConflict(context.Background(), 2, func() (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d: %w", calls, database.ErrWriteConflict)
	})

	if err == nil {
		t.Fatal("expected error after exhaustion")
	}
	if !database.IsWriteConflict(err) {
		t.Errorf("expected last write-conflict error back, got %v", err)
	}
	// Initial attempt plus two retries
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryOnWriteConflict_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryOnWriteConflict(ctx, 3, func() (int, error) {
		return 0, database.ErrWriteConflict
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetryOnWriteConflict_DefaultsRetriesWhenZero(t *testing.T) {
	calls := 0
	_, err := RetryOnWriteConflict(context.Background(), 0, func() (int, error) {
		calls++
		return 0, database.ErrWriteConflict
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != defaultMaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, defaultMaxRetries+1)
	}
}
