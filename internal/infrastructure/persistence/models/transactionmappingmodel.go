package models

import (
	"time"

	"lumina/internal/shared/constants"
)

// TransactionMappingModel maps a provider transaction identifier to the
// owning user. Rows are created once at verification time and never updated;
// webhook handlers use them to resolve users without a table scan.
type TransactionMappingModel struct {
	ID                    uint   `gorm:"primarykey"`
	Provider              string `gorm:"size:20;not null;uniqueIndex:ux_provider_transaction,priority:1"`
	TransactionID         string `gorm:"size:128;not null;uniqueIndex:ux_provider_transaction,priority:2"`
	OriginalTransactionID string `gorm:"size:128;index:idx_original_transaction"`
	ProductID             string `gorm:"size:128"`
	UserID                uint   `gorm:"not null;index:idx_mapping_user"`
	CreatedAt             time.Time
}

// TableName specifies the table name for GORM
func (TransactionMappingModel) TableName() string {
	return constants.TableTransactionMappings
}
