package models

import (
	"time"

	"lumina/internal/shared/constants"
)

// SubscriptionFields is the subscription field group embedded on the user
// row. Every column gets the subscription_ prefix so reconciliation passes
// can address them individually without touching the rest of the row.
type SubscriptionFields struct {
	Status             string     `gorm:"size:20;not null;default:none;index:idx_subscription_status"`
	Tier               string     `gorm:"size:50"`
	BillingPeriod      string     `gorm:"size:20"`
	Provider           string     `gorm:"size:20;not null;default:none"`
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time `gorm:"index:idx_subscription_period_end"`
	TrialEnd           *time.Time

	// Provider-scoped identifiers. Stale values of a non-active provider
	// are kept for audit; the domain layer refuses to read them.
	AppleOriginalTransactionID string `gorm:"size:64;index:idx_apple_original_txn"`
	AppleTransactionID         string `gorm:"size:64"`
	GoogleOrderID              string `gorm:"size:128"`
	StripeSubscriptionID       string `gorm:"size:64;index:idx_stripe_subscription"`
	StripeCustomerID           string `gorm:"size:64"`

	MigratedFrom       *string    `gorm:"size:20"`
	MigratedAt         *time.Time
	CancelledAt        *time.Time
	CancellationReason *string    `gorm:"size:30"`
	RevokedAt          *time.Time
	RevocationReason   *string    `gorm:"size:100"`
	LastVerifiedAt     *time.Time
	CreatedAt          *time.Time
}

// UserModel is the persistence model for app users. Subscription state lives
// on the user entity itself (one record per user), never in a separate
// table, so feature gating is a single row read.
type UserModel struct {
	ID  uint   `gorm:"primarykey"`
	SID string `gorm:"uniqueIndex;not null;size:50"`

	Email             string `gorm:"uniqueIndex;not null;size:255"`
	DisplayName       string `gorm:"size:100"`
	EmailUnsubscribed bool   `gorm:"not null;default:false"`

	// AccountToken is the UUID the mobile app stamps on purchases as the
	// vendor's appAccountToken, giving webhooks a direct user lookup.
	AccountToken string `gorm:"uniqueIndex;size:36"`

	Subscription SubscriptionFields `gorm:"embedded;embeddedPrefix:subscription_"`

	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for GORM
func (UserModel) TableName() string {
	return constants.TableUsers
}
