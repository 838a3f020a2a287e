package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/cartsync/internal/app/model"
)

// MemoryCartRepository is an in-memory CartRepository for tests and
// the demo server. Rows keep insertion order per user.
type MemoryCartRepository struct {
	mu      sync.Mutex
	records map[string][]model.CartRecord
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{records: make(map[string][]model.CartRecord)}
}

func (r *MemoryCartRepository) FindByUser(userID string) ([]model.CartRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.CartRecord(nil), r.records[userID]...), nil
}

func (r *MemoryCartRepository) Upsert(record *model.CartRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rows := r.records[record.UserID]
	for i := range rows {
		if rows[i].ItemID == record.ItemID {
			rows[i].Category = record.Category
			rows[i].Quantity = record.Quantity
			rows[i].UpdatedAt = now
			return nil
		}
	}

	record.ID = uuid.New()
	record.CreatedAt = now
	record.UpdatedAt = now
	r.records[record.UserID] = append(rows, *record)
	return nil
}

func (r *MemoryCartRepository) Delete(userID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.records[userID]
	for i := range rows {
		if rows[i].ItemID == itemID {
			r.records[userID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryCartRepository) DeleteByUser(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, userID)
	return nil
}

func (r *MemoryCartRepository) DeleteStale(olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for userID, rows := range r.records {
		kept := rows[:0]
		for _, row := range rows {
			if row.UpdatedAt.Before(olderThan) {
				deleted++
				continue
			}
			kept = append(kept, row)
		}
		if len(kept) == 0 {
			delete(r.records, userID)
		} else {
			r.records[userID] = kept
		}
	}
	return deleted, nil
}
