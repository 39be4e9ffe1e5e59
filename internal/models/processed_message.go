package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/attachstack/internal/utils"
)

// ProcessedMessage is the dedup lookup row maintained by the surrounding
// system. This core only reads it; writing stays at the collaborator boundary.
type ProcessedMessage struct {
	ID          string    `gorm:"type:varchar(50);primaryKey"`
	MessageID   string    `gorm:"type:varchar(500);uniqueIndex;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;type:timestamp"`
	Metadata    JSONMap   `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

// TableName overrides the table name for ProcessedMessage
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}

func (p *ProcessedMessage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = utils.GenerateNanoIDWithPrefix("pmsg", 12)
	}
	return nil
}
