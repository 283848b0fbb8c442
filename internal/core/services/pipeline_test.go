package services

import (
	"context"
	"hash/fnv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedx-labs/embedx-cli/internal/adapters/driven/vectorindex/flat"
	"github.com/embedx-labs/embedx-cli/internal/chunker"
	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// hashVector derives a deterministic vector from text, so identical text
// always embeds to the same point and distinct texts land apart.
func hashVector(text string) []float32 {
	v := make([]float32, testDimension)
	for i := range v {
		h := fnv.New32a()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		v[i] = float32(h.Sum32()%1000) + 1
	}
	return v
}

// TestPipeline_IngestThenExactMatchRetrieval runs the full flow: three
// two-chunk documents go through ingestion, then a query equal to one
// chunk's text must come back with that chunk's document at rank 1 and
// distance zero.
func TestPipeline_IngestThenExactMatchRetrieval(t *testing.T) {
	texts := map[string]string{
		"/docs/alpha.txt": "alpha document first part and second part",
		"/docs/beta.txt":  "beta document first half and second half!",
		"/docs/gamma.txt": "gamma document one portion, other portion",
	}
	registry := &mockRegistry{texts: texts}

	dir := t.TempDir()
	index, idMap, err := flat.Open(
		filepath.Join(dir, "vectors.bin"),
		filepath.Join(dir, "mappings.bin"),
		testDimension,
	)
	require.NoError(t, err)

	docStore := newMockDocStore()
	embedder := &mockEmbedder{dims: testDimension, vectorFor: hashVector}
	c := chunker.New(chunker.WithChunkSize(24), chunker.WithOverlap(4))
	ctx := context.Background()

	pipeline := NewIngestionPipeline(registry, c, embedder, index, idMap, docStore)
	for path := range texts {
		outcome, err := pipeline.IngestFile(ctx, path)
		require.NoError(t, err)
		require.Equal(t, domain.IngestProcessed, outcome.State, "path %s", path)
		require.Equal(t, 2, outcome.Chunks, "path %s", path)
	}

	// Three documents, two chunks each.
	assert.Equal(t, 6, index.Size())
	assert.Equal(t, 6, idMap.Size())
	docs, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	// Query with the exact text of beta's second chunk.
	betaChunks, err := c.Split(ctx, "any", texts["/docs/beta.txt"])
	require.NoError(t, err)
	require.Len(t, betaChunks, 2)
	query := betaChunks[1].Content

	retriever := NewRetrievalService(embedder, index, idMap, docStore, 3)
	results, err := retriever.Retrieve(ctx, query, domain.RetrieveOptions{TopK: 1})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, domain.ContentID(texts["/docs/beta.txt"]), results[0].Document.ID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, float32(0), results[0].Distance)
}

// TestPipeline_DeletedDocumentLeavesCleanRetrieval covers metadata-only
// deletion end to end: the orphaned vectors stay searchable but resolve
// to nothing, and listing no longer includes the document.
func TestPipeline_DeletedDocumentLeavesCleanRetrieval(t *testing.T) {
	texts := map[string]string{"/docs/only.txt": "the only document in the store"}
	registry := &mockRegistry{texts: texts}

	dir := t.TempDir()
	index, idMap, err := flat.Open(
		filepath.Join(dir, "vectors.bin"),
		filepath.Join(dir, "mappings.bin"),
		testDimension,
	)
	require.NoError(t, err)

	docStore := newMockDocStore()
	embedder := &mockEmbedder{dims: testDimension, vectorFor: hashVector}
	c := chunker.New(chunker.WithChunkSize(64), chunker.WithOverlap(8))
	ctx := context.Background()

	pipeline := NewIngestionPipeline(registry, c, embedder, index, idMap, docStore)
	outcome, err := pipeline.IngestFile(ctx, "/docs/only.txt")
	require.NoError(t, err)
	require.Equal(t, domain.IngestProcessed, outcome.State)

	require.NoError(t, docStore.Delete(ctx, outcome.DocumentID))

	docs, err := docStore.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	// The orphaned vectors still occupy slots, but retrieval returns an
	// empty result rather than an error.
	retriever := NewRetrievalService(embedder, index, idMap, docStore, 3)
	results, err := retriever.Retrieve(ctx, texts["/docs/only.txt"], domain.RetrieveOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Greater(t, index.Size(), 0)
}
