package models

import (
	"time"

	"gorm.io/datatypes"

	"lumina/internal/shared/constants"
)

// WebhookEventModel stores inbound provider webhook payloads with
// deduplication metadata. The unique (provider, event_id) index is the
// dedup decision: a redelivered event fails the insert and is skipped.
type WebhookEventModel struct {
	ID              uint           `gorm:"primarykey"`
	SID             string         `gorm:"uniqueIndex;not null;size:50"`
	Provider        string         `gorm:"size:20;not null;uniqueIndex:ux_provider_event,priority:1"`
	EventID         string         `gorm:"size:191;not null;uniqueIndex:ux_provider_event,priority:2"`
	EventType       string         `gorm:"size:100;not null;index:idx_event_type"`
	Payload         datatypes.JSON
	ProcessedAt     *time.Time
	ProcessingError string         `gorm:"type:text"`
	CreatedAt       time.Time      `gorm:"index"`
	UpdatedAt       time.Time
}

// TableName specifies the table name for GORM
func (WebhookEventModel) TableName() string {
	return constants.TableWebhookEvents
}
