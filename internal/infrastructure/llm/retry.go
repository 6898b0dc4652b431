package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"ArticlesEvaluator/internal/ports"
)

// RetryingDispatcher repeats retryable dispatch failures with exponential backoff.
type RetryingDispatcher struct {
	delegate     ports.Dispatcher
	maxRetries   uint64
	buildBackoff func() backoff.BackOff
	logger       *slog.Logger
}

var _ ports.Dispatcher = (*RetryingDispatcher)(nil)

// WrapWithRetry returns dispatcher unchanged when maxRetries is not positive.
func WrapWithRetry(dispatcher ports.Dispatcher, maxRetries int, initial, maxInterval time.Duration, logger *slog.Logger) ports.Dispatcher {
	if maxRetries <= 0 {
		return dispatcher
	}
	return &RetryingDispatcher{
		delegate:   dispatcher,
		maxRetries: uint64(maxRetries),
		buildBackoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if initial > 0 {
				b.InitialInterval = initial
			}
			if maxInterval > 0 {
				b.MaxInterval = maxInterval
			}
			b.MaxElapsedTime = 0
			return b
		},
		logger: logger,
	}
}

// Dispatch forwards to the delegate, retrying transport errors, 429 and 5xx.
func (r *RetryingDispatcher) Dispatch(ctx context.Context, prompt, credential string) (string, error) {
	var (
		text    string
		attempt int
	)
	operation := func() error {
		attempt++
		out, err := r.delegate.Dispatch(ctx, prompt, credential)
		if err == nil {
			text = out
			return nil
		}
		var dispatchErr *DispatchError
		if !errors.As(err, &dispatchErr) || !dispatchErr.Retryable() {
			return backoff.Permanent(err)
		}
		if r.logger != nil {
			r.logger.Warn("dispatch failed, retrying", "attempt", attempt, "error", err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.buildBackoff(), r.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", err
	}
	return text, nil
}
