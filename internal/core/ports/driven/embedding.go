package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// The same service (and therefore the same dimension) must be used at
// ingestion and at query time.
//
// Note: This is separate from VectorIndex which stores and searches
// vectors. EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call where
	// the backend supports it. Most embedding backends are internally
	// vectorized, so one batched call beats per-chunk fan-out.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This must match the VectorIndex configuration exactly.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	// Used at startup before committing to ingestion or retrieval.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
