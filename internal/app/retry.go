package service

import (
	"context"
	"time"

	"github.com/okian/lapprice/pkg/logger"
	"github.com/okian/lapprice/pkg/metrics"
)

// RetryPolicy bounds retries of external store calls. Attempts counts
// retries after the first call.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// withRetry calls fn until it succeeds, the attempts are used up, or ctx
// ends. The last error is returned.
func withRetry[T any](ctx context.Context, p RetryPolicy, store string, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var (
		v   T
		err error
	)
	for attempt := 0; ; attempt++ {
		v, err = fn(ctx)
		if err == nil || attempt >= p.Attempts {
			return v, err
		}
		metrics.RecordStoreRetry(store)
		log.Warn(ctx, "store call failed, retrying",
			logger.String("store", store),
			logger.Int("attempt", attempt+1),
			logger.Error(err))

		t := time.NewTimer(p.Backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return v, ctx.Err()
		case <-t.C:
		}
	}
}
