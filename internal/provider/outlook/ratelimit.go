package outlook

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// requestLimiter admits at most maxConcurrent in-flight Graph requests and
// enforces a minimum delay between request starts.
type requestLimiter struct {
	pacer *rate.Limiter
	slots chan struct{}
}

func newRequestLimiter(maxConcurrent int, minInterval time.Duration) *requestLimiter {
	return &requestLimiter{
		pacer: rate.NewLimiter(rate.Every(minInterval), 1),
		slots: make(chan struct{}, maxConcurrent),
	}
}

func (l *requestLimiter) acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := l.pacer.Wait(ctx); err != nil {
		<-l.slots
		return err
	}
	return nil
}

func (l *requestLimiter) release() {
	<-l.slots
}
