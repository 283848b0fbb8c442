package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction to the highest-priority extractor
// registered for a file's extension.
type Registry struct {
	byExt map[string]driven.TextExtractor
}

// NewRegistry builds a registry from the given extractors. When two
// extractors claim the same extension, the higher priority wins.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	byExt := make(map[string]driven.TextExtractor)
	for _, e := range extractors {
		for _, ext := range e.SupportedExtensions() {
			ext = strings.ToLower(ext)
			if existing, ok := byExt[ext]; ok && existing.Priority() >= e.Priority() {
				continue
			}
			byExt[ext] = e
		}
	}
	return &Registry{byExt: byExt}
}

// Supports reports whether any registered extractor handles the path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract dispatches to the extractor for the path's extension.
func (r *Registry) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}

	text, err := extractor.Extract(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, path, err)
	}
	return text, nil
}

// Title derives a human-readable title from a file path: the base name
// without extension, underscores and dashes replaced with spaces.
func Title(path string) string {
	filename := filepath.Base(path)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
