// Package flat provides an exact brute-force vector index over
// fixed-dimension float32 vectors, with binary snapshot persistence.
// Slots are append-only: position in the backing slice is the slot, and
// a slot is never reused within a session unless the index is reset.
package flat

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

// Snapshot format constants.
const (
	indexMagic   = "EXVI"
	indexVersion = uint32(1)
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a flat (non-approximate) vector index using squared Euclidean
// distance. Search is an exact linear scan over all stored vectors.
type Index struct {
	mu        sync.RWMutex
	path      string
	dimension int
	vectors   [][]float32

	// discarded is set when a stale or unreadable snapshot was thrown
	// away on load. The paired id map must be cleared too.
	discarded bool
}

// NewIndex loads the snapshot at path, or initialises an empty index of
// the given dimension when no snapshot exists. A snapshot whose dimension
// differs from the configured one is discarded and the index reinitialised
// empty: previously indexed vectors are lost, which is logged at error
// severity, but a dimension upgrade never requires manual cleanup. An
// unreadable snapshot degrades the same way.
func NewIndex(path string, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", domain.ErrInvalidInput, dimension)
	}

	idx := &Index{
		path:      path,
		dimension: dimension,
	}

	vectors, storedDim, err := readSnapshot(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run: empty index
	case err != nil:
		logger.Error("vector snapshot %s unreadable (%v): reinitialising empty index, previously indexed vectors are lost", path, err)
		idx.discarded = true
	case storedDim != dimension:
		logger.Error("vector snapshot %s has dimension %d, configured %d: discarding stale snapshot, previously indexed vectors are lost", path, storedDim, dimension)
		idx.discarded = true
	default:
		idx.vectors = vectors
	}

	return idx, nil
}

// Discarded reports whether the on-disk snapshot was thrown away during
// load (unreadable or dimension-inconsistent).
func (idx *Index) Discarded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.discarded
}

// Insert appends a batch of vectors and returns the first assigned slot.
// If any vector's length differs from the index dimension, nothing is
// inserted.
func (idx *Index) Insert(_ context.Context, vectors [][]float32) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for i, v := range vectors {
		if len(v) != idx.dimension {
			return 0, fmt.Errorf("%w: vector %d has length %d, index dimension is %d",
				domain.ErrDimensionMismatch, i, len(v), idx.dimension)
		}
	}

	first := len(idx.vectors)
	for _, v := range vectors {
		stored := make([]float32, len(v))
		copy(stored, v)
		idx.vectors = append(idx.vectors, stored)
	}

	return first, nil
}

// Search returns up to k nearest vectors to the query, ascending by
// squared Euclidean distance. Ties break on the lower slot.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has length %d, index dimension is %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}

	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}
	if k <= 0 {
		return []driven.VectorHit{}, nil
	}

	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for slot, v := range idx.vectors {
		hits = append(hits, driven.VectorHit{
			Slot:     slot,
			Distance: squaredL2(query, v),
		})
	}

	// Stable ordering: distance ascending, then insertion order. The sort
	// is stable over slot-ordered input, so equal distances keep the
	// lower slot first.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	return hits[:k], nil
}

// Size returns the number of stored vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Dimensions returns the fixed vector dimension.
func (idx *Index) Dimensions() int {
	return idx.dimension
}

// Reset empties the index and persists the empty snapshot. The caller is
// responsible for clearing the id map in the same logical operation.
func (idx *Index) Reset(_ context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = nil
	return idx.persistLocked()
}

// Persist writes the snapshot to the configured path. The write goes to
// a temporary file first and is renamed into place, so a crash mid-write
// leaves the previous snapshot intact.
func (idx *Index) Persist() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.persistLocked()
}

func (idx *Index) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(idx.path), 0700); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(idx.path), ".vectors-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeSnapshot(tmp, idx.dimension, idx.vectors); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), idx.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// squaredL2 computes the squared Euclidean distance between two vectors
// of equal length.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// writeSnapshot serialises the index: magic, version, dimension, count,
// then the vector data row by row, all little-endian.
func writeSnapshot(w io.Writer, dimension int, vectors [][]float32) error {
	if _, err := w.Write([]byte(indexMagic)); err != nil {
		return err
	}
	header := []any{indexVersion, uint32(dimension), uint64(len(vectors))}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}

	buf := make([]byte, 4*dimension)
	for _, v := range vectors {
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// readSnapshot deserialises a snapshot file, returning the vectors and
// the stored dimension.
func readSnapshot(path string) ([][]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, 0, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != indexMagic {
		return nil, 0, errors.New("not a vector snapshot file")
	}

	var version, dimension uint32
	var count uint64
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, 0, fmt.Errorf("reading version: %w", err)
	}
	if version != indexVersion {
		return nil, 0, fmt.Errorf("unsupported snapshot version %d", version)
	}
	if err := binary.Read(f, binary.LittleEndian, &dimension); err != nil {
		return nil, 0, fmt.Errorf("reading dimension: %w", err)
	}
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return nil, 0, fmt.Errorf("reading count: %w", err)
	}

	buf := make([]byte, 4*dimension)
	vectors := make([][]float32, 0, count)
	for i := uint64(0); i < count; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, 0, fmt.Errorf("reading vector %d: %w", i, err)
		}
		v := make([]float32, dimension)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		vectors = append(vectors, v)
	}

	return vectors, int(dimension), nil
}
