package ports

import (
	"context"

	"ArticlesEvaluator/internal/domain"
)

// Dispatcher sends one prompt to the generation backend and returns its text.
// Implementations never retry unless explicitly decorated to do so.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt, credential string) (string, error)
}

// PromptProvider renders the rubric and aggregation prompts.
type PromptProvider interface {
	Rubric(record domain.ArticleRecord, course string) ([]string, error)
	Aggregate(composite, course string) (string, error)
}

// ResultSink receives each record's results as soon as they exist.
type ResultSink interface {
	WriteRecord(ctx context.Context, index int, results domain.Results) error
	// SnapshotReady signals that every written record forms a consistent export.
	SnapshotReady(ctx context.Context) error
}

// CancelSignal is polled between records to stop a batch cooperatively.
type CancelSignal interface {
	Cancelled() bool
}

// Notifier announces finished runs on Telegram or other channels.
// Formatting the report is up to the channel.
type Notifier interface {
	RunFinished(ctx context.Context, report domain.RunReport) error
}
