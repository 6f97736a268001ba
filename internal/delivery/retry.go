package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/LeventeLantos/rental-messaging/internal/gateway"
)

type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// SendWithRetry repeats Send while the failure is transient, up to
// p.Attempts times with a fixed delay. It returns the last result and the
// number of attempts made.
func (e *Engine) SendWithRetry(ctx context.Context, req Request, p RetryPolicy) (Result, int) {
	attempts := max(p.Attempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var res Result
	for attempt := 1; attempt <= attempts; attempt++ {
		res = e.Send(ctx, req)
		if res.Success {
			return res, attempt
		}
		if !gateway.Retryable(res.Err) || attempt == attempts {
			return res, attempt
		}
		slog.Warn("delivery attempt failed",
			"phone", req.To, "type", req.Type, "attempt", attempt, "err", res.Err)
		if err := sleep(ctx, p.Delay); err != nil {
			res.Err = err
			return res, attempt
		}
	}
	return res, attempts
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
