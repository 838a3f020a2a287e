package repository

import (
	"time"

	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository stores server-side cart rows. Quantity 0 is never
// stored: callers delete instead.
type CartRepository interface {
	FindByUser(userID string) ([]model.CartRecord, error)
	Upsert(record *model.CartRecord) error
	Delete(userID, itemID string) error
	DeleteByUser(userID string) error
	DeleteStale(olderThan time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindByUser(userID string) ([]model.CartRecord, error) {
	var records []model.CartRecord
	err := r.db.Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		logger.Error("Failed to find cart records", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return records, nil
}

func (r *cartRepository) Upsert(record *model.CartRecord) error {
	logger.Debug("Upserting cart record", map[string]interface{}{
		"user_id":  record.UserID,
		"item_id":  record.ItemID,
		"quantity": record.Quantity,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"category", "quantity", "updated_at",
		}),
	}).Create(record).Error
	if err != nil {
		logger.Error("Failed to upsert cart record", err, map[string]interface{}{
			"user_id": record.UserID,
			"item_id": record.ItemID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) Delete(userID, itemID string) error {
	err := r.db.Where("user_id = ? AND item_id = ?", userID, itemID).
		Delete(&model.CartRecord{}).Error
	if err != nil {
		logger.Error("Failed to delete cart record", err, map[string]interface{}{
			"user_id": userID,
			"item_id": itemID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteByUser(userID string) error {
	err := r.db.Where("user_id = ?", userID).Delete(&model.CartRecord{}).Error
	if err != nil {
		logger.Error("Failed to clear cart records", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteStale(olderThan time.Time) (int64, error) {
	result := r.db.Where("updated_at < ?", olderThan).Delete(&model.CartRecord{})
	if result.Error != nil {
		logger.Error("Failed to delete stale cart records", result.Error, map[string]interface{}{
			"older_than": olderThan,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
