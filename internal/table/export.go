package table

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultExportName is the file name offered for downloads.
const DefaultExportName = "processed_articles.csv"

// FileExporter rewrites path with the current table after every snapshot.
func FileExporter(path string) SnapshotListener {
	return func(_ context.Context, s *Sink) error {
		return s.ExportFile(path)
	}
}

// ExportFile atomically replaces path with a CSV export of the table.
// The disk write works on a snapshot so writers are not blocked.
func (s *Sink) ExportFile(path string) error {
	snapshot := s.Snapshot()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp export: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := snapshot.WriteCSV(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace export: %w", err)
	}
	return nil
}
