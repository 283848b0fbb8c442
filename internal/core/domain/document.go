package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// DocumentStatus marks the lifecycle state of a stored document.
type DocumentStatus string

const (
	// StatusPending indicates the document record exists but its vectors
	// have not been fully stored yet.
	StatusPending DocumentStatus = "pending"

	// StatusProcessed indicates at least one vector has been stored for
	// the document.
	StatusProcessed DocumentStatus = "processed"
)

// Document represents an indexed document's metadata.
// The ID is the content hash of the extracted text, so byte-identical
// content ingested under different paths resolves to the same record.
type Document struct {
	// ID is the content-hash identifier (hex-encoded SHA-256).
	ID string

	// Title is the human-readable title derived from the source file name.
	Title string

	// SourcePath is the file the text was extracted from.
	SourcePath string

	// Status is the processing state.
	Status DocumentStatus
}

// Chunk is a bounded substring of a document's extracted text, the unit
// of embedding. Chunks are never persisted without their embedding.
type Chunk struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// Index is the ordinal position within the document.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation, populated at ingestion time.
	Embedding []float32
}

// ContentID computes the deterministic document identifier for extracted
// text. Hashing the content rather than the path makes deduplication
// independent of file location: the same bytes under two paths dedup, the
// same path with changed bytes is a new document.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
