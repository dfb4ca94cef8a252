package conflict

import (
	"context"
	"log"
	"time"

	"github.com/voltera-ev/evscgo/internal/database"
)

const (
	defaultMaxRetries = 3
	baseBackoff       = 50 * time.Millisecond
)

// RetryOnWriteConflict runs op, retrying up to maxRetries times when op
// fails with a classified transient write conflict. Backoff doubles per
// retry: 50ms, 100ms, 200ms. Non-retryable errors and exhaustion return
// the last error unchanged. op must be safe to invoke repeatedly.
func RetryOnWriteConflict[T any](ctx context.Context, maxRetries int, op func() (T, error)) (T, error) {
	var zero T
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if !database.IsWriteConflict(err) {
			return zero, err
		}
		lastErr = err
		if attempt >= maxRetries {
			return zero, lastErr
		}

		delay := baseBackoff << attempt
		log.Printf("⚠️ Write conflict (attempt %d/%d), retrying in %v", attempt+1, maxRetries, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}
