package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

// ErrInvalidRange is returned when start/end do not select rows of the batch.
var ErrInvalidRange = errors.New("invalid row range")

// RecordEvaluator turns one record into its eight result slots without failing.
type RecordEvaluator interface {
	Evaluate(ctx context.Context, record domain.ArticleRecord, course, credential string) domain.Results
}

// RecordObserver receives per-record outcomes, e.g. for metrics.
type RecordObserver interface {
	RecordEvaluated(results domain.Results)
	ProgressChanged(fraction float64)
}

// RunState enumerates terminal batch states.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateCancelled RunState = "cancelled"
	StateFailed    RunState = "failed"
)

// BatchRequest describes one run over an inclusive row range.
type BatchRequest struct {
	RunID      string
	Records    []domain.ArticleRecord
	Course     string
	Credential string
	Start      int
	End        int
	Cancel     ports.CancelSignal
	OnProgress func(fraction float64)
	Sink       ports.ResultSink
}

// Validate checks the range and collaborators before any backend call.
func (r BatchRequest) Validate() error {
	if r.Sink == nil {
		return fmt.Errorf("result sink is required")
	}
	if r.Start < 0 || r.End < r.Start || r.End >= len(r.Records) {
		return fmt.Errorf("%w: [%d, %d] over %d rows", ErrInvalidRange, r.Start, r.End, len(r.Records))
	}
	return nil
}

// BatchOutcome summarizes a finished run.
type BatchOutcome struct {
	RunID     string
	State     RunState
	Processed int
	Failed    int
	Progress  float64
}

// BatchRunner evaluates records strictly one after another and persists each immediately.
type BatchRunner struct {
	evaluator RecordEvaluator
	observer  RecordObserver
	logger    *slog.Logger
}

// NewBatchRunner builds a runner. observer may be nil.
func NewBatchRunner(evaluator RecordEvaluator, observer RecordObserver, logger *slog.Logger) *BatchRunner {
	return &BatchRunner{evaluator: evaluator, observer: observer, logger: logger}
}

// Run walks [Start, End]. The cancel signal is checked only between records,
// so an in-flight record always finishes and lands in the sink. A sink error
// aborts the run because later snapshots could no longer be trusted.
func (b *BatchRunner) Run(ctx context.Context, req BatchRequest) (BatchOutcome, error) {
	if err := req.Validate(); err != nil {
		return BatchOutcome{State: StateFailed}, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	outcome := BatchOutcome{RunID: req.RunID, State: StateRunning}
	total := req.End - req.Start + 1
	logger := b.log().With("run_id", req.RunID)
	logger.Info("batch started", "start", req.Start, "end", req.End, "course", req.Course)

	for index := req.Start; index <= req.End; index++ {
		if req.Cancel != nil && req.Cancel.Cancelled() {
			outcome.State = StateCancelled
			logger.Warn("batch cancelled", "next_index", index, "processed", outcome.Processed)
			return outcome, nil
		}
		if err := ctx.Err(); err != nil {
			outcome.State = StateCancelled
			return outcome, err
		}

		results := b.evaluator.Evaluate(ctx, req.Records[index], req.Course, req.Credential)
		if err := req.Sink.WriteRecord(ctx, index, results); err != nil {
			outcome.State = StateFailed
			return outcome, fmt.Errorf("write record %d: %w", index, err)
		}

		outcome.Processed++
		if results.Failed() {
			outcome.Failed++
			logger.Warn("record marked NA", "index", index)
		}
		outcome.Progress = float64(index-req.Start+1) / float64(total)

		if b.observer != nil {
			b.observer.RecordEvaluated(results)
			b.observer.ProgressChanged(outcome.Progress)
		}
		if req.OnProgress != nil {
			req.OnProgress(outcome.Progress)
		}

		if err := req.Sink.SnapshotReady(ctx); err != nil {
			outcome.State = StateFailed
			return outcome, fmt.Errorf("publish snapshot after record %d: %w", index, err)
		}
		logger.Debug("record evaluated", "index", index, "progress", outcome.Progress)
	}

	outcome.State = StateCompleted
	logger.Info("batch completed", "processed", outcome.Processed, "failed", outcome.Failed)
	return outcome, nil
}

func (b *BatchRunner) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
