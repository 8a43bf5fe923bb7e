// internal/store/history.go
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"github.com/DjMdava/Nexus-AI-v2.0/internal/types"
)

// History collection names.
const (
	HistoryGenerate = "history_generate"
	HistoryEdit     = "history_edit"
)

// MaxHistory is the per-collection record cap. The oldest records are
// evicted first.
const MaxHistory = 20

const historyBucket = "history"

// HistoryStore keeps capped, newest-first collections of history records.
type HistoryStore struct {
	store *Store
}

// NewHistoryStore creates a HistoryStore over the given Store.
func NewHistoryStore(store *Store) *HistoryStore {
	return &HistoryStore{store: store}
}

// Append prepends rec to the named collection and trims it to MaxHistory.
// The read and rewrite happen in one transaction so interleaved appends
// cannot lose records.
func (h *HistoryStore) Append(collection string, rec *types.HistoryRecord) error {
	err := h.store.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		if err != nil {
			return err
		}

		records := decodeRecords(b.Get([]byte(collection)), collection)
		records = append([]*types.HistoryRecord{rec}, records...)
		if len(records) > MaxHistory {
			records = records[:MaxHistory]
		}

		data, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}
		return b.Put([]byte(collection), data)
	})
	if err != nil {
		return fmt.Errorf("append history %s: %w", collection, err)
	}
	return nil
}

// List returns the collection newest-first. A missing or malformed
// collection reads as empty.
func (h *HistoryStore) List(collection string) []*types.HistoryRecord {
	var records []*types.HistoryRecord
	if !h.store.Get(historyBucket, collection, &records) {
		return []*types.HistoryRecord{}
	}
	if records == nil {
		records = []*types.HistoryRecord{}
	}
	return records
}

// Clear removes every record in the collection.
func (h *HistoryStore) Clear(collection string) error {
	return h.store.Delete(historyBucket, collection)
}

func decodeRecords(raw []byte, collection string) []*types.HistoryRecord {
	if raw == nil {
		return nil
	}
	var records []*types.HistoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		slog.Warn("history collection malformed, resetting", "collection", collection, "error", err)
		return nil
	}
	return records
}
