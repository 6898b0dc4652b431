package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ArticlesEvaluator/internal/domain"
)

func TestEvaluateAggregatesDespiteFailedSubCall(t *testing.T) {
	t.Parallel()

	dispatcher := &scriptedDispatcher{failIndex: 4}
	pipeline := NewPipeline(PipelineDeps{Prompts: stubPrompts{}, Dispatcher: dispatcher, MaxConcurrency: 7})

	results := pipeline.Evaluate(context.Background(), domain.ArticleRecord{Topic: "Cells"}, "Biology", "key")

	if len(results) != domain.SlotCount {
		t.Fatalf("expected %d slots, got %d", domain.SlotCount, len(results))
	}
	for i := 0; i < domain.DimensionCount; i++ {
		if i == 4 {
			if results[i] != "Error: connection reset" {
				t.Fatalf("slot 4 should carry the error marker, got %q", results[i])
			}
			continue
		}
		if !strings.Contains(results[i], `"score":1`) {
			t.Fatalf("slot %d unexpected: %q", i, results[i])
		}
	}
	if results.Aggregate() != `{"total_score":5}` {
		t.Fatalf("unexpected aggregate: %q", results.Aggregate())
	}

	if len(dispatcher.aggregates) != 1 {
		t.Fatalf("expected one aggregate call, got %d", len(dispatcher.aggregates))
	}
	if !strings.Contains(dispatcher.aggregates[0], "<ap_question_sufficiency>\nError: connection reset\n</ap_question_sufficiency>") {
		t.Fatalf("composite lacks error section: %s", dispatcher.aggregates[0])
	}
	if dispatcher.callCount() != domain.SlotCount {
		t.Fatalf("expected %d backend calls, got %d", domain.SlotCount, dispatcher.callCount())
	}
}

func TestEvaluateMarksFailedAggregate(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{Prompts: stubPrompts{}, Dispatcher: &scriptedDispatcher{failIndex: -1, failAgg: true}})
	results := pipeline.Evaluate(context.Background(), domain.ArticleRecord{}, "Physics", "key")

	if !strings.HasPrefix(results.Aggregate(), "Error:") {
		t.Fatalf("expected error marker in aggregate slot, got %q", results.Aggregate())
	}
	if results.Failed() {
		t.Fatalf("aggregate failure must not turn the record into NA")
	}
}

func TestEvaluateFailsSoft(t *testing.T) {
	t.Parallel()

	cases := map[string]stubPrompts{
		"render error":  {rubricErr: errors.New("bad template")},
		"short rubric":  {short: true},
		"render panics": {panics: true},
	}

	for name, prompts := range cases {
		prompts := prompts
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dispatcher := &scriptedDispatcher{failIndex: -1}
			pipeline := NewPipeline(PipelineDeps{Prompts: prompts, Dispatcher: dispatcher})
			results := pipeline.Evaluate(context.Background(), domain.ArticleRecord{}, "Biology", "key")

			if results != domain.FailedResults() {
				t.Fatalf("expected NA sentinel, got %v", results)
			}
			if dispatcher.callCount() != 0 {
				t.Fatalf("no backend call expected, got %d", dispatcher.callCount())
			}
		})
	}
}

func TestEvaluateUnconfiguredPipeline(t *testing.T) {
	t.Parallel()

	results := NewPipeline(PipelineDeps{}).Evaluate(context.Background(), domain.ArticleRecord{}, "", "")
	if !results.Failed() {
		t.Fatalf("expected NA sentinel, got %v", results)
	}
}

func TestBuildCompositeOrder(t *testing.T) {
	t.Parallel()

	composite := BuildComposite([]string{"a", "b", "c", "d", "e", "f", "g"})
	last := -1
	for _, dim := range domain.Dimensions() {
		pos := strings.Index(composite, "<"+dim.Section()+">")
		if pos <= last {
			t.Fatalf("section %s out of order", dim.Section())
		}
		last = pos
	}
	if !strings.HasPrefix(composite, "<evaluation_results>") || !strings.HasSuffix(composite, "</evaluation_results>\n") {
		t.Fatalf("missing wrapper: %s", composite)
	}
}
