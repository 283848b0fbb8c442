package driven

import (
	"context"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// Chunker splits extracted document text into overlapping chunks bounded
// by a configured maximum size.
type Chunker interface {
	// Split produces the chunks for a document's text. Empty content
	// produces no chunks.
	Split(ctx context.Context, documentID, text string) ([]domain.Chunk, error)
}
