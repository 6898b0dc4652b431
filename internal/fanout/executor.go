// Package fanout runs a batch of prompts concurrently and keeps their order.
package fanout

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

// DefaultMaxConcurrency matches the number of rubric prompts per record.
const DefaultMaxConcurrency = 7

// Executor issues prompts through a dispatcher with a hard ceiling on in-flight calls.
type Executor struct {
	dispatcher     ports.Dispatcher
	maxConcurrency int
	logger         *slog.Logger
}

// New builds an executor. A non-positive maxConcurrency falls back to DefaultMaxConcurrency.
func New(dispatcher ports.Dispatcher, maxConcurrency int, logger *slog.Logger) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Executor{dispatcher: dispatcher, maxConcurrency: maxConcurrency, logger: logger}
}

// RunAll dispatches every prompt and returns one response per prompt, in input order.
// It never fails as a whole: a failed call leaves an "Error: ..." marker in its slot.
func (e *Executor) RunAll(ctx context.Context, prompts []string, credential string) []string {
	responses := make([]string, len(prompts))
	filled := make([]bool, len(prompts))

	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			text, err := e.call(ctx, prompt, credential)
			if err != nil {
				e.log(slog.LevelError, "prompt generated an error", "index", i, "error", err)
				text = domain.ErrorMarker(err)
			}
			responses[i] = text
			filled[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i := range responses {
		if !filled[i] {
			e.log(slog.LevelWarn, "no response received", "index", i)
			responses[i] = domain.NoResponse
		}
	}

	return responses
}

func (e *Executor) call(ctx context.Context, prompt, credential string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	if e.dispatcher == nil {
		return "", fmt.Errorf("dispatcher is not configured")
	}
	return e.dispatcher.Dispatch(ctx, prompt, credential)
}

func (e *Executor) log(level slog.Level, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Log(context.Background(), level, msg, args...)
	}
}
