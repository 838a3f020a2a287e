package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRecord is a server-side cart row: one per (user, item).
// Quantity 0 never exists in storage; the store deletes instead.
type CartRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"not null;index;uniqueIndex:idx_user_item" json:"user_id"`
	ItemID    string         `gorm:"not null;uniqueIndex:idx_user_item" json:"item_id"`
	Category  string         `gorm:"not null" json:"category"`
	Quantity  int            `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CartRecord) TableName() string {
	return "cart_records"
}

func (r *CartRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
