package flat

import (
	"fmt"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// Open loads the vector snapshot and its id map together and verifies
// they agree on slot count. The two files are persisted separately, so a
// crash can leave them out of step; a mismatch on startup would silently
// misattribute every search result, which is why it is a fatal integrity
// error rather than something to reconcile.
func Open(indexPath, idMapPath string, dimension int) (*Index, *IDMap, error) {
	idx, err := NewIndex(indexPath, dimension)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector index: %w", err)
	}

	idMap, err := NewIDMap(idMapPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening id map: %w", domain.ErrIndexCorrupted, err)
	}

	// A discarded index snapshot starts empty, so the id map must start
	// empty too or every historical mapping would dangle.
	if idx.Discarded() && idMap.Size() > 0 {
		if err := idMap.Reset(); err != nil {
			return nil, nil, fmt.Errorf("resetting id map after snapshot discard: %w", err)
		}
	}

	if idx.Size() != idMap.Size() {
		return nil, nil, fmt.Errorf("%w: index has %d slots, id map has %d",
			domain.ErrIndexCorrupted, idx.Size(), idMap.Size())
	}

	return idx, idMap, nil
}
