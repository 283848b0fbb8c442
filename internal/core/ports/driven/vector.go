package driven

import "context"

// VectorIndex stores fixed-dimension vectors at append-only slots and
// answers exact nearest-neighbour queries by squared Euclidean distance.
// Slots are assigned in insertion order and never reused within a session
// unless the index is explicitly reset.
type VectorIndex interface {
	// Insert appends a batch of vectors and returns the slot assigned to
	// the first one; the rest follow contiguously. Fails with
	// domain.ErrDimensionMismatch (without mutating the index) if any
	// vector's length differs from the configured dimension.
	Insert(ctx context.Context, vectors [][]float32) (int, error)

	// Search returns up to k nearest vectors to the query, ascending by
	// distance. k is clamped to the current size. Ties break on the lower
	// slot (insertion order).
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Size returns the number of stored vectors.
	Size() int

	// Dimensions returns the fixed vector dimension.
	Dimensions() int

	// Reset empties the index. Callers must clear the IDMap in the same
	// logical operation to keep the two consistent.
	Reset(ctx context.Context) error

	// Persist writes a snapshot to durable storage.
	Persist() error
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// Slot is the matched vector's position in the index.
	Slot int

	// Distance is the squared Euclidean distance to the query.
	Distance float32
}

// IDMap is the bidirectional mapping between index slots and document
// ids. The reverse direction is last-write-wins: a document with several
// chunks only remembers its most recent slot, so callers needing every
// slot for a document must track them externally.
type IDMap interface {
	// Record sets both the forward (slot -> id) and reverse (id -> slot)
	// mappings.
	Record(slot int, documentID string)

	// SlotToID resolves a slot to its document id.
	SlotToID(slot int) (string, bool)

	// IDToSlot resolves a document id to its most recent slot.
	IDToSlot(documentID string) (int, bool)

	// Size returns the number of recorded slots.
	Size() int

	// Reset discards all mappings.
	Reset() error

	// Persist writes a snapshot. Must be called strictly after every
	// VectorIndex mutation that changes the slot count, to minimise the
	// inconsistency window across a crash.
	Persist() error
}
