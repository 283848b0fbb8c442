package driving

import (
	"context"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// Retriever answers nearest-neighbour queries over the indexed documents.
type Retriever interface {
	// Retrieve embeds the query, searches the vector index and returns
	// ranked document metadata. An empty result is not an error; it can
	// mean no documents are indexed or no slots survived translation.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievedDocument, error)
}
