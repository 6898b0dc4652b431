package loader

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ArticlesEvaluator/internal/table"
)

// Reader decodes one tabular format (CSV, HTML, etc.).
type Reader interface {
	Name() string
	Read(ctx context.Context, r io.Reader) (table.Table, error)
}

// Registry keeps a mapping from format names to their readers.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{readers: map[string]Reader{}}
}

// Register adds or replaces a reader implementation.
func (r *Registry) Register(reader Reader) {
	if r.readers == nil {
		r.readers = map[string]Reader{}
	}
	r.readers[reader.Name()] = reader
}

// Resolve returns a reader by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Reader, error) {
	if reader, ok := r.readers[name]; ok {
		return reader, nil
	}
	return nil, fmt.Errorf("table format %s is not registered", name)
}

// FormatFromPath derives the format name from a file extension.
func FormatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "htm" {
		return "html"
	}
	return ext
}
