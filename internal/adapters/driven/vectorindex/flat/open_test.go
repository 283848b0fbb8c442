package flat

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// persistPair builds and persists a consistent index/id-map pair with n
// vectors, one document id per slot.
func persistPair(t *testing.T, indexPath, idMapPath string, dimension, n int) {
	t.Helper()

	idx, err := NewIndex(indexPath, dimension)
	require.NoError(t, err)
	idMap, err := NewIDMap(idMapPath)
	require.NoError(t, err)

	vectors := make([][]float32, n)
	for i := range vectors {
		vectors[i] = make([]float32, dimension)
		vectors[i][0] = float32(i)
	}
	_, err = idx.Insert(context.Background(), vectors)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		idMap.Record(i, "doc-"+string(rune('a'+i)))
	}

	require.NoError(t, idx.Persist())
	require.NoError(t, idMap.Persist())
}

func TestOpen_FreshPathsStartEmpty(t *testing.T) {
	dir := t.TempDir()

	idx, idMap, err := Open(filepath.Join(dir, "vectors.bin"), filepath.Join(dir, "mappings.bin"), 4)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 0, idMap.Size())
}

func TestOpen_ConsistentPairReloads(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vectors.bin")
	idMapPath := filepath.Join(dir, "mappings.bin")
	persistPair(t, indexPath, idMapPath, 4, 3)

	idx, idMap, err := Open(indexPath, idMapPath, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Size())
	assert.Equal(t, 3, idMap.Size())
}

func TestOpen_SizeMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vectors.bin")
	idMapPath := filepath.Join(dir, "mappings.bin")
	persistPair(t, indexPath, idMapPath, 4, 2)

	// Simulate a crash between index persist and id-map persist: the id
	// map gains an extra record the index never saw.
	idMap, err := NewIDMap(idMapPath)
	require.NoError(t, err)
	idMap.Record(2, "doc-extra")
	require.NoError(t, idMap.Persist())

	_, _, err = Open(indexPath, idMapPath, 4)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestOpen_DimensionChangeResetsIDMapToo(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vectors.bin")
	idMapPath := filepath.Join(dir, "mappings.bin")
	persistPair(t, indexPath, idMapPath, 4, 3)

	// Reopening under a new dimension discards the vector snapshot; the
	// id map must be cleared with it rather than tripping the size check.
	idx, idMap, err := Open(indexPath, idMapPath, 8)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Size())
	assert.Equal(t, 8, idx.Dimensions())
	assert.Equal(t, 0, idMap.Size())
}
