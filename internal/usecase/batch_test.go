package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ArticlesEvaluator/internal/domain"
)

type countingEvaluator struct {
	mu      sync.Mutex
	seen    []string
	afterFn func(n int)
	tag     string
}

func (e *countingEvaluator) Evaluate(_ context.Context, record domain.ArticleRecord, course, _ string) domain.Results {
	e.mu.Lock()
	e.seen = append(e.seen, record.Topic)
	n := len(e.seen)
	e.mu.Unlock()

	var r domain.Results
	for i := range r {
		r[i] = e.tag + record.Topic
	}
	if e.afterFn != nil {
		e.afterFn(n)
	}
	return r
}

func TestRunCancelledAfterThirdRecord(t *testing.T) {
	t.Parallel()

	flag := &CancelFlag{}
	evaluator := &countingEvaluator{afterFn: func(n int) {
		if n == 3 {
			flag.Cancel()
		}
	}}
	sink := newMemorySink()
	var progress []float64

	outcome, err := NewBatchRunner(evaluator, nil, nil).Run(context.Background(), BatchRequest{
		Records:    records(5),
		Course:     "Biology",
		Start:      0,
		End:        4,
		Cancel:     flag,
		OnProgress: func(f float64) { progress = append(progress, f) },
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if outcome.State != StateCancelled || outcome.Processed != 3 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	for i := 0; i <= 2; i++ {
		r, ok := sink.get(i)
		if !ok || r[0] != "topic-"+string(rune('0'+i)) {
			t.Fatalf("record %d missing or wrong: %v", i, r)
		}
	}
	for i := 3; i <= 4; i++ {
		if _, ok := sink.get(i); ok {
			t.Fatalf("record %d must not be written", i)
		}
	}

	want := []float64{0.2, 0.4, 0.6}
	if len(progress) != len(want) {
		t.Fatalf("unexpected progress: %v", progress)
	}
	for i := range want {
		if diff := progress[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
	if sink.snapshots != 3 {
		t.Fatalf("expected a snapshot per record, got %d", sink.snapshots)
	}
}

func TestRunCompletesSubRange(t *testing.T) {
	t.Parallel()

	evaluator := &countingEvaluator{}
	sink := newMemorySink()
	var last float64

	outcome, err := NewBatchRunner(evaluator, nil, nil).Run(context.Background(), BatchRequest{
		Records:    records(6),
		Start:      2,
		End:        3,
		OnProgress: func(f float64) { last = f },
		Sink:       sink,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome.State != StateCompleted || outcome.Processed != 2 || last != 1 {
		t.Fatalf("unexpected outcome %+v, last progress %v", outcome, last)
	}
	if len(evaluator.seen) != 2 || evaluator.seen[0] != "topic-2" || evaluator.seen[1] != "topic-3" {
		t.Fatalf("unexpected evaluation order: %v", evaluator.seen)
	}
	if outcome.RunID == "" {
		t.Fatalf("expected generated run id")
	}
}

func TestRunOverwritesPreviousResults(t *testing.T) {
	t.Parallel()

	sink := newMemorySink()
	runner := NewBatchRunner(&countingEvaluator{tag: "old-"}, nil, nil)
	req := BatchRequest{Records: records(3), Start: 0, End: 2, Sink: sink}

	if _, err := runner.Run(context.Background(), req); err != nil {
		t.Fatalf("first run: %v", err)
	}

	rerun := NewBatchRunner(&countingEvaluator{tag: "new-"}, nil, nil)
	if _, err := rerun.Run(context.Background(), req); err != nil {
		t.Fatalf("second run: %v", err)
	}

	for i := 0; i < 3; i++ {
		r, _ := sink.get(i)
		if r[domain.AggregateSlot][:4] != "new-" {
			t.Fatalf("record %d not overwritten: %q", i, r[domain.AggregateSlot])
		}
	}
}

func TestRunRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	evaluator := &countingEvaluator{}
	runner := NewBatchRunner(evaluator, nil, nil)

	cases := []BatchRequest{
		{Records: records(3), Start: -1, End: 1, Sink: newMemorySink()},
		{Records: records(3), Start: 2, End: 1, Sink: newMemorySink()},
		{Records: records(3), Start: 0, End: 3, Sink: newMemorySink()},
	}
	for _, req := range cases {
		if _, err := runner.Run(context.Background(), req); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("expected ErrInvalidRange for [%d,%d], got %v", req.Start, req.End, err)
		}
	}
	if len(evaluator.seen) != 0 {
		t.Fatalf("no record should be evaluated")
	}
}

func TestRunStopsOnSinkFailure(t *testing.T) {
	t.Parallel()

	sink := newMemorySink()
	sink.failAt = 1
	evaluator := &countingEvaluator{}

	outcome, err := NewBatchRunner(evaluator, nil, nil).Run(context.Background(), BatchRequest{
		Records: records(4), Start: 0, End: 3, Sink: sink,
	})
	if err == nil {
		t.Fatalf("expected sink error")
	}
	if outcome.State != StateFailed || outcome.Processed != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(evaluator.seen) != 2 {
		t.Fatalf("runner must stop after the failing write, evaluated %v", evaluator.seen)
	}
}

func TestRunWithFailSoftRecords(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{Prompts: stubPrompts{rubricErr: errors.New("broken")}, Dispatcher: &scriptedDispatcher{failIndex: -1}})
	sink := newMemorySink()

	outcome, err := NewBatchRunner(pipeline, nil, nil).Run(context.Background(), BatchRequest{
		Records: records(2), Start: 0, End: 1, Sink: sink,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if outcome.State != StateCompleted || outcome.Failed != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	for i := 0; i < 2; i++ {
		if r, _ := sink.get(i); !r.Failed() {
			t.Fatalf("record %d should be NA, got %v", i, r)
		}
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	evaluator := &countingEvaluator{afterFn: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	sink := newMemorySink()

	outcome, err := NewBatchRunner(evaluator, nil, nil).Run(ctx, BatchRequest{
		Records: records(3), Start: 0, End: 2, Sink: sink,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if outcome.Processed != 1 {
		t.Fatalf("in-flight record must still be written, got %+v", outcome)
	}
}
