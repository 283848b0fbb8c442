package driven

import "context"

// TextExtractor turns a file into plain text.
// Each extractor handles specific file extensions (e.g. ".pdf", ".md").
type TextExtractor interface {
	// SupportedExtensions returns the lower-case extensions this extractor
	// handles, including the leading dot.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred) when
	// multiple extractors claim the same extension.
	Priority() int

	// Extract reads the file and returns its plain text content.
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorRegistry selects an extractor by file extension.
type ExtractorRegistry interface {
	// Extract dispatches to the highest-priority extractor for the file's
	// extension. Returns domain.ErrUnsupportedFormat when none matches.
	Extract(ctx context.Context, path string) (string, error)

	// Supports reports whether any registered extractor handles the path.
	Supports(path string) bool
}
