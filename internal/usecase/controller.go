package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

// ErrRunInProgress is returned when Start is called while a run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// ExportSink is the in-memory result table that can be exported at any time.
type ExportSink interface {
	ports.ResultSink
	WriteCSV(w io.Writer) error
	Results(index int) (domain.Results, bool)
}

// ControllerDeps wires the collaborators of a Controller.
type ControllerDeps struct {
	Runner  *BatchRunner
	Records []domain.ArticleRecord
	Table   ExportSink
	// Durable, when set, opens an additional sink for each run (e.g. SQL).
	Durable  func(ctx context.Context, runID string) (ports.ResultSink, error)
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// RunParams are the caller-selected settings for one run.
type RunParams struct {
	Course     string
	Credential string
	Start      int
	End        int
}

// Status is a point-in-time view of the current or last run.
type Status struct {
	RunID     string   `json:"run_id,omitempty"`
	Course    string   `json:"course,omitempty"`
	State     RunState `json:"state"`
	Start     int      `json:"start"`
	End       int      `json:"end"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Progress  float64  `json:"progress"`
	Error     string   `json:"error,omitempty"`
}

// Controller owns the result table and allows at most one run at a time.
type Controller struct {
	runner   *BatchRunner
	records  []domain.ArticleRecord
	table    ExportSink
	durable  func(ctx context.Context, runID string) (ports.ResultSink, error)
	notifier ports.Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	status Status
	cancel *CancelFlag
	done   chan struct{}
}

// NewController constructs a Controller in the idle state.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		runner:   deps.Runner,
		records:  deps.Records,
		table:    deps.Table,
		durable:  deps.Durable,
		notifier: deps.Notifier,
		logger:   logger,
		status:   Status{State: StateIdle},
	}
}

// Records returns the number of loaded rows.
func (c *Controller) Records() int {
	return len(c.records)
}

// Start launches a run in the background and returns its ID.
// ctx bounds the whole run, not just this call.
func (c *Controller) Start(ctx context.Context, params RunParams) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.State == StateRunning {
		return "", ErrRunInProgress
	}

	runID := uuid.NewString()
	req := BatchRequest{
		RunID:      runID,
		Records:    c.records,
		Course:     params.Course,
		Credential: params.Credential,
		Start:      params.Start,
		End:        params.End,
		Sink:       c.table,
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	if c.durable != nil {
		extra, err := c.durable(ctx, runID)
		if err != nil {
			return "", fmt.Errorf("open durable sink: %w", err)
		}
		req.Sink = TeeSink{c.table, extra}
	}

	flag := &CancelFlag{}
	req.Cancel = flag
	req.OnProgress = c.setProgress

	c.cancel = flag
	c.done = make(chan struct{})
	c.status = Status{RunID: runID, Course: params.Course, State: StateRunning, Start: params.Start, End: params.End}

	go c.run(ctx, req, c.done)
	return runID, nil
}

func (c *Controller) run(ctx context.Context, req BatchRequest, done chan struct{}) {
	defer close(done)

	outcome, err := c.runner.Run(ctx, req)

	c.mu.Lock()
	c.status.State = outcome.State
	c.status.Processed = outcome.Processed
	c.status.Failed = outcome.Failed
	if err != nil {
		c.status.Error = err.Error()
	}
	status := c.status
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("run stopped with error", "run_id", req.RunID, "error", err)
	}
	c.notify(ctx, status)
}

func (c *Controller) setProgress(fraction float64) {
	c.mu.Lock()
	c.status.Progress = fraction
	c.status.Processed++
	c.mu.Unlock()
}

// Cancel asks the active run to stop before its next record.
// It reports false when nothing is running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.State != StateRunning || c.cancel == nil {
		return false
	}
	c.cancel.Cancel()
	return true
}

// Wait blocks until the active run (if any) ends or ctx is done.
func (c *Controller) Wait(ctx context.Context) (Status, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Status(), ctx.Err()
		}
	}
	return c.Status(), nil
}

// Status returns a copy of the current run status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Export writes the current result table as CSV.
func (c *Controller) Export(w io.Writer) error {
	return c.table.WriteCSV(w)
}

// Results returns the stored slots for one row.
func (c *Controller) Results(index int) (domain.Results, bool) {
	return c.table.Results(index)
}

func (c *Controller) notify(ctx context.Context, status Status) {
	if c.notifier == nil {
		return
	}
	report := domain.RunReport{
		RunID:     status.RunID,
		Course:    status.Course,
		State:     string(status.State),
		Start:     status.Start,
		End:       status.End,
		Processed: status.Processed,
		Failed:    status.Failed,
		Err:       status.Error,
	}
	if err := c.notifier.RunFinished(context.WithoutCancel(ctx), report); err != nil {
		c.logger.Warn("run notification failed", "run_id", status.RunID, "error", err)
	}
}

// TeeSink forwards every call to each sink in order and stops at the first error.
type TeeSink []ports.ResultSink

var _ ports.ResultSink = TeeSink(nil)

func (t TeeSink) WriteRecord(ctx context.Context, index int, results domain.Results) error {
	for _, sink := range t {
		if err := sink.WriteRecord(ctx, index, results); err != nil {
			return err
		}
	}
	return nil
}

func (t TeeSink) SnapshotReady(ctx context.Context) error {
	for _, sink := range t {
		if err := sink.SnapshotReady(ctx); err != nil {
			return err
		}
	}
	return nil
}
