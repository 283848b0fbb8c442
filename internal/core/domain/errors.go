package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Extraction errors.

	// ErrUnsupportedFormat indicates no extractor handles the file's
	// extension. The file is skipped during batch ingestion.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtractionFailed indicates text extraction produced an error or
	// empty content. The pipeline never embeds empty content.
	ErrExtractionFailed = errors.New("text extraction failed")

	// Index errors.

	// ErrDimensionMismatch indicates a vector's length does not match the
	// configured embedding dimension. Vectors are never truncated or
	// padded; the offending operation aborts.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidEmbedding indicates an embedding batch failed validation
	// (wrong row count, NaN values, or an all-zero vector). The document
	// is failed rather than stored.
	ErrInvalidEmbedding = errors.New("invalid embedding")

	// ErrIndexCorrupted indicates the persisted vector snapshot and id
	// mapping disagree on slot count. Every subsequent query would be
	// wrong, so startup surfaces this loudly instead of continuing.
	ErrIndexCorrupted = errors.New("vector index corrupted")

	// Storage errors.

	// ErrStorage wraps storage-engine-level failures from the metadata
	// store. Retry policy is a caller concern.
	ErrStorage = errors.New("storage failure")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Chat response generation is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Both ingestion and retrieval require it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)
