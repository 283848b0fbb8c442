// Package chunker provides a fixed-size overlapping text chunker.
package chunker

import (
	"context"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 300

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits document text into overlapping fixed-size chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave forward progress
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split produces overlapping chunks of the document text. Sizes are in
// runes, not bytes, so multi-byte characters are never cut mid-sequence.
// Empty content produces no chunks.
func (c *Chunker) Split(_ context.Context, documentID, text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	textLen := len(runes)
	step := c.chunkSize - c.overlap

	estimated := (textLen / step) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	index := 0
	for start := 0; start < textLen; start += step {
		end := start + c.chunkSize
		if end > textLen {
			end = textLen
		}

		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      index,
			Content:    string(runes[start:end]),
		})
		index++

		if end == textLen {
			break
		}
	}

	return chunks, nil
}
