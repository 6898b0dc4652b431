package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/infrastructure/llm"
)

type stubDispatcher struct {
	err error
}

func (s stubDispatcher) Dispatch(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "ok", nil
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		OutcomeOK:             nil,
		OutcomeBackendError:   &llm.DispatchError{StatusCode: 500},
		OutcomeTransportError: fmt.Errorf("wrapped: %w", &llm.DispatchError{Transport: errors.New("reset")}),
		OutcomeParseError:     fmt.Errorf("%w: eof", llm.ErrMalformedResponse),
		OutcomeOtherError:     errors.New("other"),
	}
	for want, err := range cases {
		if got := Classify(err); got != want {
			t.Fatalf("Classify(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestInstrumentDispatcherCountsOutcomes(t *testing.T) {
	t.Parallel()

	collector := MustNewCollector(prometheus.NewRegistry())
	ok := InstrumentDispatcher(stubDispatcher{}, collector)
	failing := InstrumentDispatcher(stubDispatcher{err: &llm.DispatchError{StatusCode: 429}}, collector)

	_, _ = ok.Dispatch(context.Background(), "p", "k")
	_, _ = ok.Dispatch(context.Background(), "p", "k")
	_, _ = failing.Dispatch(context.Background(), "p", "k")

	if got := testutil.ToFloat64(collector.dispatchTotal.WithLabelValues(OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 ok dispatches, got %v", got)
	}
	if got := testutil.ToFloat64(collector.dispatchTotal.WithLabelValues(OutcomeBackendError)); got != 1 {
		t.Fatalf("expected 1 backend error, got %v", got)
	}
}

func TestRecordAndProgress(t *testing.T) {
	t.Parallel()

	collector := MustNewCollector(prometheus.NewRegistry())
	collector.RecordEvaluated(domain.FailedResults())
	collector.RecordEvaluated(domain.Results{"x"})
	collector.ProgressChanged(0.6)

	if got := testutil.ToFloat64(collector.recordsTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("expected 1 failed record, got %v", got)
	}
	if got := testutil.ToFloat64(collector.recordsTotal.WithLabelValues("evaluated")); got != 1 {
		t.Fatalf("expected 1 evaluated record, got %v", got)
	}
	if got := testutil.ToFloat64(collector.batchProgress); got != 0.6 {
		t.Fatalf("expected progress 0.6, got %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	t.Parallel()

	var c *Collector
	c.RecordEvaluated(domain.FailedResults())
	c.ProgressChanged(1)
	if d := InstrumentDispatcher(stubDispatcher{}, nil); d == nil {
		t.Fatalf("expected original dispatcher")
	}
}
