package index

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/Voskan/mpmc-index/internal/epoch"
	"github.com/Voskan/mpmc-index/internal/htable"
)

// tunablesFile is the on-disk, JWCC (JSON-with-comments-and-commas)
// representation of htable.Tunables, for cmd/index-inspect --config.
// Grounded on calvinalkan-agent-task's config.go: hujson.Standardize,
// then json.Unmarshal against a plain struct (unknown fields are ignored).
type tunablesFile struct {
	LinearSearchRange      uint64 `json:"linear_search_range,omitempty"`
	UpsizeBlockSize        uint32 `json:"upsize_block_size,omitempty"`
	OperationQueueRingSize uint32 `json:"operation_queue_ring_size,omitempty"`
	StagedObjectsRingSize  uint32 `json:"staged_objects_ring_size,omitempty"`
	DestructorBatchSize    uint8  `json:"destructor_batch_size,omitempty"`
}

// LoadTunables reads a JWCC document from path and overlays any fields it
// sets onto htable.DefaultTunables(). Fields the file omits keep their
// default value, so a caller need not spell out every field. A file that
// cannot be read is an error; it does not fall back to the defaults.
func LoadTunables(path string) (htable.Tunables, error) {
	tun := htable.DefaultTunables()

	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return htable.Tunables{}, fmt.Errorf("index: read tunables file %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return htable.Tunables{}, fmt.Errorf("index: invalid JWCC in %s: %w", path, err)
	}

	var f tunablesFile
	if err := json.Unmarshal(standardized, &f); err != nil {
		return htable.Tunables{}, fmt.Errorf("index: invalid tunables JSON in %s: %w", path, err)
	}

	if f.LinearSearchRange != 0 {
		tun.LinearSearchRange = f.LinearSearchRange
	}
	if f.UpsizeBlockSize != 0 {
		tun.UpsizeBlockSize = f.UpsizeBlockSize
	}
	if f.OperationQueueRingSize != 0 {
		tun.Epoch.OperationQueueRingSize = f.OperationQueueRingSize
	}
	if f.StagedObjectsRingSize != 0 {
		tun.Epoch.StagedObjectsRingSize = f.StagedObjectsRingSize
	}
	if f.DestructorBatchSize != 0 {
		tun.Epoch.DestructorBatchSize = f.DestructorBatchSize
	}

	return tun, nil
}

// defaultEpochTunables returns the epoch GC portion of
// htable.DefaultTunables(), without requiring a live Table.
func defaultEpochTunables() epoch.Tunables {
	return htable.DefaultTunables().Epoch
}
