package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ArticlesEvaluator/internal/domain"
)

type stubPrompts struct {
	rubricErr error
	short     bool
	panics    bool
}

func (s stubPrompts) Rubric(record domain.ArticleRecord, course string) ([]string, error) {
	if s.panics {
		panic("template exploded")
	}
	if s.rubricErr != nil {
		return nil, s.rubricErr
	}
	n := domain.DimensionCount
	if s.short {
		n = 3
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("prompt-%d|%s|%s", i, course, record.Topic)
	}
	return out, nil
}

func (s stubPrompts) Aggregate(composite, course string) (string, error) {
	return "AGGREGATE|" + course + "|" + composite, nil
}

// scriptedDispatcher answers rubric prompts with a score and records the aggregate prompt.
type scriptedDispatcher struct {
	mu         sync.Mutex
	failIndex  int
	failAgg    bool
	aggregates []string
	calls      int
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, prompt, _ string) (string, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if strings.HasPrefix(prompt, "AGGREGATE|") {
		d.mu.Lock()
		d.aggregates = append(d.aggregates, prompt)
		d.mu.Unlock()
		if d.failAgg {
			return "", fmt.Errorf("aggregate unavailable")
		}
		return `{"total_score":5}`, nil
	}

	var idx int
	fmt.Sscanf(prompt, "prompt-%d|", &idx)
	if idx == d.failIndex {
		return "", fmt.Errorf("connection reset")
	}
	return fmt.Sprintf(`{"score":1,"dimension":%d}`, idx), nil
}

func (d *scriptedDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type memorySink struct {
	mu        sync.Mutex
	rows      map[int]domain.Results
	snapshots int
	failAt    int
}

func newMemorySink() *memorySink {
	return &memorySink{rows: map[int]domain.Results{}, failAt: -1}
}

func (m *memorySink) WriteRecord(_ context.Context, index int, results domain.Results) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index == m.failAt {
		return fmt.Errorf("disk full")
	}
	m.rows[index] = results
	return nil
}

func (m *memorySink) SnapshotReady(context.Context) error {
	m.mu.Lock()
	m.snapshots++
	m.mu.Unlock()
	return nil
}

func (m *memorySink) get(index int) (domain.Results, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[index]
	return r, ok
}

func records(n int) []domain.ArticleRecord {
	out := make([]domain.ArticleRecord, n)
	for i := range out {
		out[i] = domain.ArticleRecord{Topic: fmt.Sprintf("topic-%d", i), Article: "text"}
	}
	return out
}
