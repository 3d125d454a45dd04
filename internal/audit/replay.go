package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/stockledger/pkg/db/models"
)

// Snapshot is the reconstructed position of a record at a point in time.
type Snapshot struct {
	RecordID       uuid.UUID `json:"record_id"`
	At             time.Time `json:"at"`
	Stock          int       `json:"stock"`
	ReservedStock  int       `json:"reserved_stock"`
	AvailableStock int       `json:"available_stock"`
	Version        int       `json:"version"`
	EntriesApplied int       `json:"entries_applied"`
}

// ChainError reports a gap between consecutive audit entries.
type ChainError struct {
	EntryID       uuid.UUID
	RecordVersion int
	Expected      [2]int
	Found         [2]int
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("audit chain broken at entry %s (version %d): expected before=%v, found %v",
		e.EntryID, e.RecordVersion, e.Expected, e.Found)
}

// Replay folds entries, which must belong to one record and be ordered by
// record_version, into a snapshot. Every record starts empty; each entry's
// before-state has to match the previous entry's after-state.
func Replay(recordID uuid.UUID, at time.Time, entries []models.AuditEntry) (Snapshot, error) {
	snap := Snapshot{RecordID: recordID, At: at}
	lastVersion := 0
	for _, entry := range entries {
		if entry.RecordID != recordID {
			return Snapshot{}, fmt.Errorf("entry %s belongs to record %s", entry.ID, entry.RecordID)
		}
		if entry.RecordVersion <= lastVersion {
			return Snapshot{}, fmt.Errorf("entry %s out of order: version %d after %d", entry.ID, entry.RecordVersion, lastVersion)
		}
		if entry.StockBefore != snap.Stock || entry.ReservedBefore != snap.ReservedStock {
			return Snapshot{}, &ChainError{
				EntryID:       entry.ID,
				RecordVersion: entry.RecordVersion,
				Expected:      [2]int{snap.Stock, snap.ReservedStock},
				Found:         [2]int{entry.StockBefore, entry.ReservedBefore},
			}
		}
		snap.Stock = entry.StockAfter
		snap.ReservedStock = entry.ReservedAfter
		snap.Version = entry.RecordVersion
		snap.EntriesApplied++
		lastVersion = entry.RecordVersion
	}
	snap.AvailableStock = snap.Stock - snap.ReservedStock
	return snap, nil
}
