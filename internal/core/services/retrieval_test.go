package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedx-labs/embedx-cli/internal/adapters/driven/vectorindex/flat"
	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// retrievalFixture holds a retrieval service over a real index with
// hand-placed vectors.
type retrievalFixture struct {
	service  *RetrievalService
	index    *flat.Index
	idMap    *flat.IDMap
	docStore *mockDocStore
	embedder *mockEmbedder
}

func newRetrievalFixture(t *testing.T, topK int) *retrievalFixture {
	t.Helper()

	dir := t.TempDir()
	index, idMap, err := flat.Open(
		filepath.Join(dir, "vectors.bin"),
		filepath.Join(dir, "mappings.bin"),
		testDimension,
	)
	require.NoError(t, err)

	docStore := newMockDocStore()
	embedder := &mockEmbedder{dims: testDimension}

	return &retrievalFixture{
		service:  NewRetrievalService(embedder, index, idMap, docStore, topK),
		index:    index,
		idMap:    idMap,
		docStore: docStore,
		embedder: embedder,
	}
}

// addDocument stores one vector per row for a document, recording the id
// map and metadata the way ingestion would.
func (f *retrievalFixture) addDocument(t *testing.T, id, title string, vectors ...[]float32) {
	t.Helper()

	firstSlot, err := f.index.Insert(context.Background(), vectors)
	require.NoError(t, err)
	for i := range vectors {
		f.idMap.Record(firstSlot+i, id)
	}
	f.docStore.docs[id] = domain.Document{
		ID:         id,
		Title:      title,
		SourcePath: "/docs/" + id + ".txt",
		Status:     domain.StatusProcessed,
	}
}

// queryAt makes the mock embedder return the given vector for any query.
func (f *retrievalFixture) queryAt(v []float32) {
	f.embedder.vectorFor = func(string) []float32 { return v }
}

func TestRetrieve_RanksByDistance(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.addDocument(t, "doc-far", "Far", []float32{10, 0, 0, 0})
	f.addDocument(t, "doc-near", "Near", []float32{1, 0, 0, 0})
	f.queryAt([]float32{0, 0, 0, 0})

	results, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc-near", results[0].Document.ID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, float32(1), results[0].Distance)

	assert.Equal(t, "doc-far", results[1].Document.ID)
	assert.Equal(t, 2, results[1].Rank)
	assert.Equal(t, float32(100), results[1].Distance)
}

func TestRetrieve_DeduplicatesChunksOfSameDocument(t *testing.T) {
	f := newRetrievalFixture(t, 4)
	// One document with three chunks, all nearer than the other document.
	f.addDocument(t, "doc-multi", "Multi",
		[]float32{1, 0, 0, 0},
		[]float32{2, 0, 0, 0},
		[]float32{3, 0, 0, 0},
	)
	f.addDocument(t, "doc-other", "Other", []float32{9, 0, 0, 0})
	f.queryAt([]float32{0, 0, 0, 0})

	results, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The document appears once, at the distance of its best chunk.
	assert.Equal(t, "doc-multi", results[0].Document.ID)
	assert.Equal(t, float32(1), results[0].Distance)
	assert.Equal(t, "doc-other", results[1].Document.ID)
	assert.Equal(t, 2, results[1].Rank)
}

func TestRetrieve_DropsDanglingSlots(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.addDocument(t, "doc-mapped", "Mapped", []float32{5, 0, 0, 0})

	// A vector with no id-map record, nearer than the mapped one.
	_, err := f.index.Insert(context.Background(), [][]float32{{1, 0, 0, 0}})
	require.NoError(t, err)

	f.queryAt([]float32{0, 0, 0, 0})
	results, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)

	// The dangling slot is silently dropped; ranks stay contiguous.
	require.Len(t, results, 1)
	assert.Equal(t, "doc-mapped", results[0].Document.ID)
	assert.Equal(t, 1, results[0].Rank)
}

func TestRetrieve_DropsDeletedDocuments(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.addDocument(t, "doc-kept", "Kept", []float32{2, 0, 0, 0})
	f.addDocument(t, "doc-deleted", "Deleted", []float32{1, 0, 0, 0})

	// Metadata-only delete leaves the vectors and the id mapping behind.
	require.NoError(t, f.docStore.Delete(context.Background(), "doc-deleted"))

	f.queryAt([]float32{0, 0, 0, 0})
	results, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "doc-kept", results[0].Document.ID)
	assert.Equal(t, 1, results[0].Rank)
}

func TestRetrieve_EmptyIndexReturnsEmpty(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.queryAt([]float32{0, 0, 0, 0})

	results, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_TopKBoundsResults(t *testing.T) {
	f := newRetrievalFixture(t, 2)
	for i, id := range []string{"doc-a", "doc-b", "doc-c", "doc-d"} {
		f.addDocument(t, id, id, []float32{float32(i + 1), 0, 0, 0})
	}
	f.queryAt([]float32{0, 0, 0, 0})

	// Default top-k from construction.
	results, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Explicit top-k overrides the default.
	results, err = f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{TopK: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetrieve_QueryDimensionMismatchIsConfigError(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.addDocument(t, "doc-a", "A", []float32{1, 0, 0, 0})
	f.embedder.vectorFor = func(string) []float32 { return []float32{1, 0} }

	_, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRetrieve_EmbedErrorPropagates(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.embedder.embedErr = domain.ErrEmbeddingUnavailable

	_, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestRetrieve_StorageErrorPropagates(t *testing.T) {
	f := newRetrievalFixture(t, 3)
	f.addDocument(t, "doc-a", "A", []float32{1, 0, 0, 0})
	f.docStore.lookupErr = domain.ErrStorage
	f.queryAt([]float32{0, 0, 0, 0})

	_, err := f.service.Retrieve(context.Background(), "anything", domain.RetrieveOptions{})
	assert.ErrorIs(t, err, domain.ErrStorage)
}
