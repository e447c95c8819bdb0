package models

import (
	"time"

	"lumina/internal/shared/constants"
)

// NotificationLogModel records every outbound notification so the digest
// pipeline can avoid re-sending and support can trace deliveries.
type NotificationLogModel struct {
	ID        uint   `gorm:"primarykey"`
	SID       string `gorm:"uniqueIndex;not null;size:50"`
	UserID    uint   `gorm:"not null;index:idx_notification_user"`
	Channel   string `gorm:"size:20;not null"`
	Kind      string `gorm:"size:50;not null;index:idx_notification_kind"`
	Subject   string `gorm:"size:255"`
	SentAt    time.Time
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (NotificationLogModel) TableName() string {
	return constants.TableNotificationLogs
}
