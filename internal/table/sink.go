package table

import (
	"context"
	"fmt"
	"io"
	"sync"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

// SnapshotListener is invoked after each consistent snapshot.
type SnapshotListener func(ctx context.Context, s *Sink) error

// Sink is the in-memory result table. Each record's slots are written under
// one lock so readers never observe a torn row.
type Sink struct {
	mu        sync.RWMutex
	table     Table
	resultCol int
	written   []bool
	listeners []SnapshotListener
}

var _ ports.ResultSink = (*Sink)(nil)

// NewSink copies t and ensures the result columns exist. Existing result
// cells (from a previous export) are kept until overwritten. Every row is
// fitted to the input header first, so cells without a column are dropped.
func NewSink(t Table) *Sink {
	tbl := t.Clone()
	for i, row := range tbl.Rows {
		tbl.Rows[i] = fitRow(row, len(tbl.Header))
	}

	cols := ResultColumns()
	first := tbl.ColumnIndex(cols[0])
	contiguous := first >= 0 && first+len(cols) <= len(tbl.Header)
	for i := 1; contiguous && i < len(cols); i++ {
		contiguous = tbl.Header[first+i] == cols[i]
	}
	if !contiguous {
		first = len(tbl.Header)
		tbl.Header = append(tbl.Header, cols...)
		for i, row := range tbl.Rows {
			tbl.Rows[i] = fitRow(row, len(tbl.Header))
		}
	}

	return &Sink{table: tbl, resultCol: first, written: make([]bool, len(tbl.Rows))}
}

func fitRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width:width]
	}
	return append(row, make([]string, width-len(row))...)
}

// OnSnapshot registers a listener run after every SnapshotReady.
func (s *Sink) OnSnapshot(l SnapshotListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// WriteRecord stores all slots of one row in a single step.
func (s *Sink) WriteRecord(_ context.Context, index int, results domain.Results) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.table.Rows) {
		return fmt.Errorf("row %d out of range [0, %d)", index, len(s.table.Rows))
	}
	copy(s.table.Rows[index][s.resultCol:s.resultCol+domain.SlotCount], results[:])
	s.written[index] = true
	return nil
}

// SnapshotReady notifies listeners outside the lock.
func (s *Sink) SnapshotReady(ctx context.Context) error {
	s.mu.RLock()
	listeners := append([]SnapshotListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		if err := l(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Results returns the slots written during this process for row index.
func (s *Sink) Results(index int) (domain.Results, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r domain.Results
	if index < 0 || index >= len(s.table.Rows) || !s.written[index] {
		return r, false
	}
	copy(r[:], s.table.Rows[index][s.resultCol:s.resultCol+domain.SlotCount])
	return r, true
}

// Snapshot returns a deep copy of the current table.
func (s *Sink) Snapshot() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Clone()
}

// WriteCSV exports the current table.
func (s *Sink) WriteCSV(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.WriteCSV(w)
}
