package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

type exportSink struct {
	*memorySink
}

func (e exportSink) WriteCSV(w io.Writer) error {
	_, err := io.WriteString(w, "csv")
	return err
}

func (e exportSink) Results(index int) (domain.Results, bool) {
	return e.get(index)
}

type blockingEvaluator struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingEvaluator) Evaluate(_ context.Context, record domain.ArticleRecord, _, _ string) domain.Results {
	b.once.Do(func() { close(b.started) })
	<-b.release
	var r domain.Results
	r[0] = record.Topic
	return r
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []domain.RunReport
}

func (n *recordingNotifier) RunFinished(_ context.Context, report domain.RunReport) error {
	n.mu.Lock()
	n.reports = append(n.reports, report)
	n.mu.Unlock()
	return nil
}

func TestControllerCancelStopsBeforeNextRecord(t *testing.T) {
	t.Parallel()

	evaluator := &blockingEvaluator{release: make(chan struct{}), started: make(chan struct{})}
	table := exportSink{newMemorySink()}
	notifier := &recordingNotifier{}
	controller := NewController(ControllerDeps{
		Runner:   NewBatchRunner(evaluator, nil, nil),
		Records:  records(4),
		Table:    table,
		Notifier: notifier,
	})

	runID, err := controller.Start(context.Background(), RunParams{Course: "Biology", Start: 0, End: 3})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected run id")
	}

	<-evaluator.started
	if _, err := controller.Start(context.Background(), RunParams{Start: 0, End: 0}); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if !controller.Cancel() {
		t.Fatalf("expected Cancel to report an active run")
	}
	close(evaluator.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := controller.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	if status.State != StateCancelled || status.Processed != 1 || status.Progress != 0.25 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if r, ok := controller.Results(0); !ok || r[0] != "topic-0" {
		t.Fatalf("in-flight record should be stored, got %v", r)
	}
	if _, ok := controller.Results(1); ok {
		t.Fatalf("record 1 must not be stored")
	}

	var buf bytes.Buffer
	if err := controller.Export(&buf); err != nil || buf.String() != "csv" {
		t.Fatalf("unexpected export %q, %v", buf.String(), err)
	}
	if len(notifier.reports) != 1 {
		t.Fatalf("expected one notification, got %v", notifier.reports)
	}
	if r := notifier.reports[0]; r.RunID != runID || r.Course != "Biology" || r.State != "cancelled" || r.Processed != 1 || r.Total() != 4 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if controller.Cancel() {
		t.Fatalf("Cancel after the run must report false")
	}
}

func TestControllerWritesDurableSink(t *testing.T) {
	t.Parallel()

	table := exportSink{newMemorySink()}
	durable := newMemorySink()
	var gotRunID string

	controller := NewController(ControllerDeps{
		Runner:  NewBatchRunner(&countingEvaluator{}, nil, nil),
		Records: records(2),
		Table:   table,
		Durable: func(_ context.Context, runID string) (ports.ResultSink, error) {
			gotRunID = runID
			return durable, nil
		},
	})

	runID, err := controller.Start(context.Background(), RunParams{Start: 0, End: 1})
	if err != nil {
		t.Fatalf("Start error: %v", err)
	}
	status, err := controller.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if status.State != StateCompleted || status.Progress != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if gotRunID != runID {
		t.Fatalf("durable sink opened for %q, want %q", gotRunID, runID)
	}
	for i := 0; i < 2; i++ {
		if _, ok := durable.get(i); !ok {
			t.Fatalf("durable sink missing record %d", i)
		}
		if _, ok := table.get(i); !ok {
			t.Fatalf("table missing record %d", i)
		}
	}
}

func TestControllerRejectsInvalidRangeSynchronously(t *testing.T) {
	t.Parallel()

	controller := NewController(ControllerDeps{
		Runner:  NewBatchRunner(&countingEvaluator{}, nil, nil),
		Records: records(2),
		Table:   exportSink{newMemorySink()},
	})
	if _, err := controller.Start(context.Background(), RunParams{Start: 1, End: 5}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if controller.Status().State != StateIdle {
		t.Fatalf("controller should stay idle")
	}
}
