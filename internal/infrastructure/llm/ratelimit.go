package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"ArticlesEvaluator/internal/ports"
)

// RateLimitedDispatcher waits for a token before every request.
type RateLimitedDispatcher struct {
	delegate ports.Dispatcher
	limiter  *rate.Limiter
}

var _ ports.Dispatcher = (*RateLimitedDispatcher)(nil)

// WrapWithRateLimit returns dispatcher unchanged when perSecond is not positive.
// A burst less than 1 is coerced to 1.
func WrapWithRateLimit(dispatcher ports.Dispatcher, perSecond float64, burst int) ports.Dispatcher {
	if perSecond <= 0 {
		return dispatcher
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedDispatcher{
		delegate: dispatcher,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (d *RateLimitedDispatcher) Dispatch(ctx context.Context, prompt, credential string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", &DispatchError{Transport: fmt.Errorf("rate limiter: %w", err)}
	}
	return d.delegate.Dispatch(ctx, prompt, credential)
}
