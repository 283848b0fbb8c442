package flat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIDMap(t *testing.T) *IDMap {
	t.Helper()
	m, err := NewIDMap(filepath.Join(t.TempDir(), "mappings.bin"))
	require.NoError(t, err)
	return m
}

func TestIDMap_RecordAndResolve(t *testing.T) {
	m := newTestIDMap(t)

	m.Record(0, "doc-a")
	m.Record(1, "doc-b")

	id, ok := m.SlotToID(0)
	require.True(t, ok)
	assert.Equal(t, "doc-a", id)

	slot, ok := m.IDToSlot("doc-b")
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	_, ok = m.SlotToID(99)
	assert.False(t, ok)
	_, ok = m.IDToSlot("doc-missing")
	assert.False(t, ok)

	assert.Equal(t, 2, m.Size())
}

func TestIDMap_ReverseIsLastWriteWins(t *testing.T) {
	m := newTestIDMap(t)

	// A multi-chunk document records one entry per slot.
	m.Record(0, "doc-a")
	m.Record(1, "doc-a")
	m.Record(2, "doc-a")

	// Forward entries all survive.
	for slot := 0; slot < 3; slot++ {
		id, ok := m.SlotToID(slot)
		require.True(t, ok)
		assert.Equal(t, "doc-a", id)
	}

	// Reverse remembers only the most recent slot.
	slot, ok := m.IDToSlot("doc-a")
	require.True(t, ok)
	assert.Equal(t, 2, slot)
	assert.Equal(t, 3, m.Size())
}

func TestIDMap_PersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.bin")

	m, err := NewIDMap(path)
	require.NoError(t, err)
	m.Record(0, "doc-a")
	m.Record(1, "doc-b")
	m.Record(2, "doc-a")
	require.NoError(t, m.Persist())

	reloaded, err := NewIDMap(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Size())

	id, ok := reloaded.SlotToID(1)
	require.True(t, ok)
	assert.Equal(t, "doc-b", id)

	// Replaying records in slot order restores the last-write-wins
	// reverse entry.
	slot, ok := reloaded.IDToSlot("doc-a")
	require.True(t, ok)
	assert.Equal(t, 2, slot)
}

func TestIDMap_MissingSnapshotStartsEmpty(t *testing.T) {
	m := newTestIDMap(t)
	assert.Equal(t, 0, m.Size())
}

func TestIDMap_CorruptSnapshotIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.bin")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	_, err := NewIDMap(path)
	assert.Error(t, err)
}

func TestIDMap_ResetEmptiesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.bin")

	m, err := NewIDMap(path)
	require.NoError(t, err)
	m.Record(0, "doc-a")
	require.NoError(t, m.Persist())

	require.NoError(t, m.Reset())
	assert.Equal(t, 0, m.Size())

	reloaded, err := NewIDMap(path)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Size())
}
