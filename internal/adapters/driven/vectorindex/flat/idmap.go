package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
)

// Snapshot format constants.
const (
	idMapMagic   = "EXIM"
	idMapVersion = uint32(1)
)

// Ensure IDMap implements the interface.
var _ driven.IDMap = (*IDMap)(nil)

// IDMap maps index slots to document ids and back. The reverse map is
// last-write-wins: recording a second slot for the same document id
// overwrites the previous reverse entry. The snapshot uses length-prefixed
// binary records rather than any language-specific object serialisation.
type IDMap struct {
	mu       sync.RWMutex
	path     string
	slotToID map[int]string
	idToSlot map[string]int
}

// NewIDMap loads the snapshot at path, or initialises an empty map when
// no snapshot exists. Unlike the vector snapshot, an unreadable id map is
// returned as an error: the caller pairs it with the index and decides
// whether to fail startup.
func NewIDMap(path string) (*IDMap, error) {
	m := &IDMap{
		path:     path,
		slotToID: make(map[int]string),
		idToSlot: make(map[string]int),
	}

	if err := m.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return m, nil
}

// Record sets both the forward and reverse mappings.
func (m *IDMap) Record(slot int, documentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slotToID[slot] = documentID
	m.idToSlot[documentID] = slot
}

// SlotToID resolves a slot to its document id.
func (m *IDMap) SlotToID(slot int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.slotToID[slot]
	return id, ok
}

// IDToSlot resolves a document id to its most recently recorded slot.
func (m *IDMap) IDToSlot(documentID string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.idToSlot[documentID]
	return slot, ok
}

// Size returns the number of recorded slots.
func (m *IDMap) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slotToID)
}

// Reset discards all mappings and persists the empty snapshot.
func (m *IDMap) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slotToID = make(map[int]string)
	m.idToSlot = make(map[string]int)
	return m.persistLocked()
}

// Persist writes the snapshot via temp-file rename, like the index.
func (m *IDMap) Persist() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persistLocked()
}

func (m *IDMap) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0700); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.path), ".idmap-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := m.write(w); err != nil {
		tmp.Close()
		return fmt.Errorf("writing id map: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing id map: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing id map: %w", err)
	}

	if err := os.Rename(tmp.Name(), m.path); err != nil {
		return fmt.Errorf("replacing id map: %w", err)
	}
	return nil
}

// write serialises the forward map: magic, version, count, then one
// record per slot (slot uint64, id length uint32, id bytes). The reverse
// map is rebuilt on load by replaying records in slot order.
func (m *IDMap) write(w io.Writer) error {
	if _, err := w.Write([]byte(idMapMagic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, idMapVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(m.slotToID))); err != nil {
		return err
	}

	for _, slot := range sortedSlots(m.slotToID) {
		id := m.slotToID[slot]
		if err := binary.Write(w, binary.LittleEndian, uint64(slot)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(id))); err != nil {
			return err
		}
		if _, err := w.Write([]byte(id)); err != nil {
			return err
		}
	}
	return nil
}

func (m *IDMap) load() error {
	f, err := os.Open(m.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != idMapMagic {
		return errors.New("not an id map snapshot file")
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("reading version: %w", err)
	}
	if version != idMapVersion {
		return fmt.Errorf("unsupported id map version %d", version)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("reading count: %w", err)
	}

	for i := uint64(0); i < count; i++ {
		var slot uint64
		if err := binary.Read(r, binary.LittleEndian, &slot); err != nil {
			return fmt.Errorf("reading record %d: %w", i, err)
		}
		var idLen uint32
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("reading record %d: %w", i, err)
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return fmt.Errorf("reading record %d: %w", i, err)
		}
		// Replay in slot order restores last-write-wins reverse entries.
		m.slotToID[int(slot)] = string(id)
		m.idToSlot[string(id)] = int(slot)
	}

	return nil
}

// sortedSlots returns the map keys in ascending order.
func sortedSlots(m map[int]string) []int {
	slots := make([]int, 0, len(m))
	for slot := range m {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots
}
