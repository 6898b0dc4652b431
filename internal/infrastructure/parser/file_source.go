package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"ArticlesEvaluator/internal/loader"
	"ArticlesEvaluator/internal/table"
)

// FileSource loads input tables from disk via registered format readers.
type FileSource struct {
	registry *loader.Registry
	logger   *slog.Logger
}

// NewFileSource wires a reader registry.
func NewFileSource(reg *loader.Registry, log *slog.Logger) *FileSource {
	return &FileSource{registry: reg, logger: log}
}

// DefaultRegistry registers the CSV and HTML readers.
func DefaultRegistry() *loader.Registry {
	reg := loader.NewRegistry()
	reg.Register(CSVReader{})
	reg.Register(HTMLReader{})
	return reg
}

// Load reads path and rejects tables missing a required column before any evaluation.
func (s *FileSource) Load(ctx context.Context, path string) (table.Table, error) {
	if s.registry == nil {
		return table.Table{}, fmt.Errorf("reader registry is not configured")
	}

	format := loader.FormatFromPath(path)
	reader, err := s.registry.Resolve(format)
	if err != nil {
		return table.Table{}, fmt.Errorf("file %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s.debug("load table", "path", path, "format", format)
	tbl, err := reader.Read(ctx, f)
	if err != nil {
		return table.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := tbl.Validate(); err != nil {
		return table.Table{}, err
	}

	s.debug("table loaded", "path", path, "rows", tbl.Len())
	return tbl, nil
}

func (s *FileSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
