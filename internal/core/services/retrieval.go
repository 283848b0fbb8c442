package services

import (
	"context"
	"fmt"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driving"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.Retriever = (*RetrievalService)(nil)

// RetrievalService answers queries by embedding them with the same model
// used at ingestion, scanning the vector index and translating hits back
// to document metadata.
type RetrievalService struct {
	embedder    driven.EmbeddingService
	index       driven.VectorIndex
	idMap       driven.IDMap
	docStore    driven.DocumentStore
	defaultTopK int
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	idMap driven.IDMap,
	docStore driven.DocumentStore,
	defaultTopK int,
) *RetrievalService {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &RetrievalService{
		embedder:    embedder,
		index:       index,
		idMap:       idMap,
		docStore:    docStore,
		defaultTopK: defaultTopK,
	}
}

// Retrieve returns ranked document metadata for a query. An empty result
// is not an error: the index may be empty, or every hit may have been a
// dangling slot. Callers distinguishing "no matches" from "nothing
// indexed" should consult the document count separately.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) ([]domain.RetrievedDocument, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(queryVector) != s.index.Dimensions() {
		// The query embedder disagrees with the index configuration.
		// This is a configuration error, not a bad query.
		return nil, fmt.Errorf("%w: query embedding has length %d, index dimension is %d",
			domain.ErrDimensionMismatch, len(queryVector), s.index.Dimensions())
	}

	hits, err := s.index.Search(ctx, queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	logger.Debug("Index returned %d hits (index size %d)", len(hits), s.index.Size())

	// Translate slots to document ids, dropping dangling slots and
	// deduplicating repeated ids while preserving best-ranked order.
	type ranked struct {
		id       string
		distance float32
	}
	seen := make(map[string]bool, len(hits))
	order := make([]ranked, 0, len(hits))
	for _, hit := range hits {
		id, ok := s.idMap.SlotToID(hit.Slot)
		if !ok {
			logger.Warn("Dropping slot %d with no id mapping", hit.Slot)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, ranked{id: id, distance: hit.Distance})
	}

	if len(order) == 0 {
		return []domain.RetrievedDocument{}, nil
	}

	ids := make([]string, len(order))
	for i, r := range order {
		ids[i] = r.id
	}

	docs, err := s.docStore.LookupMetadata(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("looking up metadata: %w", err)
	}

	byID := make(map[string]domain.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}

	// Return in the rank order established by the index search, not the
	// order the metadata lookup happened to return. Ids whose metadata
	// was deleted are dangling and dropped.
	results := make([]domain.RetrievedDocument, 0, len(order))
	for _, r := range order {
		doc, ok := byID[r.id]
		if !ok {
			logger.Warn("Dropping id %s with no metadata (deleted document)", r.id)
			continue
		}
		results = append(results, domain.RetrievedDocument{
			Document: doc,
			Distance: r.distance,
			Rank:     len(results) + 1,
		})
	}

	logger.Info("Retrieved %d documents", len(results))
	return results, nil
}
