package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL
	return NewEmbeddingService(cfg)
}

func TestEmbedBatch_SendsSingleBatchedRequest(t *testing.T) {
	var gotReq embedRequest
	calls := 0
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/api/embed", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		})
	}, Config{Model: "test-model", Dimensions: 2})

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Equal(t, []string{"one", "two"}, gotReq.Input)
	require.Len(t, embeddings, 2)
	assert.InDelta(t, 0.1, embeddings[0][0], 1e-6)
	assert.InDelta(t, 0.4, embeddings[1][1], 1e-6)
}

func TestEmbedBatch_AppliesPromptPrefix(t *testing.T) {
	var gotReq embedRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1}}})
	}, Config{PromptPrefix: "passage: "})

	_, err := svc.EmbedBatch(context.Background(), []string{"chunk text"})
	require.NoError(t, err)
	assert.Equal(t, []string{"passage: chunk text"}, gotReq.Input)
}

func TestEmbed_DelegatesToBatch(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1, 2, 3}}})
	}, Config{})

	v, err := svc.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, v)
}

func TestEmbedBatch_RowCountMismatchIsAnError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float64{{1}}})
	}, Config{})

	_, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})
	assert.Error(t, err)
}

func TestEmbedBatch_ServerErrorIncludesBody(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}, Config{})

	_, err := svc.EmbedBatch(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, Config{})
	assert.NoError(t, svc.Ping(context.Background()))

	down := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{})
	assert.Error(t, down.Ping(context.Background()))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}
