package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stockledger/pkg/enums"
)

// Notification stores stock alerts addressed to the store owning a record.
type Notification struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID              `gorm:"column:store_id;type:uuid;not null;index"`
	RecordID      uuid.UUID              `gorm:"column:record_id;type:uuid;not null"`
	SourceEventID uuid.UUID              `gorm:"column:source_event_id;type:uuid;not null;uniqueIndex"`
	Type          enums.NotificationType `gorm:"column:type;type:varchar(32);not null"`
	Title         string                 `gorm:"column:title;type:text;not null"`
	Message       string                 `gorm:"column:message;type:text;not null"`
	Metadata      json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
