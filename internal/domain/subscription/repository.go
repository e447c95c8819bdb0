package subscription

import (
	"context"
	"time"

	vo "lumina/internal/domain/subscription/valueobjects"
)

// Repository reads and writes the subscription field group on the user
// entity. Writes are field-scoped partial updates; implementations must not
// touch columns a method does not own.
type Repository interface {
	// GetByUserID returns the user's subscription record, or nil when the
	// user does not exist.
	GetByUserID(ctx context.Context, userID uint) (*Record, error)

	// ApplyReconciliation persists the outcome of a resolution pass.
	// subscription_created_at is set only when the record has none yet.
	ApplyReconciliation(ctx context.Context, userID uint, rec Reconciliation) error

	// MarkCancelled applies the terminal user-requested cancel state. This
	// is the only status write that bypasses the resolver.
	MarkCancelled(ctx context.Context, userID uint, reason vo.CancellationReason, at time.Time) error

	// MarkExpired moves a lapsed record to expired (expiry sweep).
	MarkExpired(ctx context.Context, userID uint, at time.Time) error

	// FindUserIDByProviderTransaction is the slow fallback lookup: a query
	// against the provider-identifier columns. Returns 0 when no user
	// matches.
	FindUserIDByProviderTransaction(ctx context.Context, provider vo.Provider, originalTransactionID string) (uint, error)

	// FindUserIDByAccountToken resolves the per-transaction account token
	// the mobile app stamps on purchases. Returns 0 when no user matches.
	FindUserIDByAccountToken(ctx context.Context, token string) (uint, error)

	// ListLapsed returns non-terminal records whose paid period ended
	// before now, up to limit, for the expiry sweep.
	ListLapsed(ctx context.Context, now time.Time, limit int) ([]*Record, error)

	// ListExpiringSoon returns records whose paid period ends within the
	// window, up to limit, for expiry reminders. Lifetime purchases are
	// excluded.
	ListExpiringSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]*Record, error)
}

// TransactionMappingRepository maintains the transaction-to-user side index.
type TransactionMappingRepository interface {
	// Upsert creates the mapping if it does not exist; replays are no-ops.
	Upsert(ctx context.Context, mapping TransactionMapping) error

	// FindUserID returns the owning user for a transaction, or 0 when the
	// mapping is absent.
	FindUserID(ctx context.Context, provider vo.Provider, transactionID string) (uint, error)
}

// WebhookEventRepository is the dedup ledger for inbound vendor events.
type WebhookEventRepository interface {
	// Record inserts the event, returning ErrDuplicateEvent when the
	// (provider, event ID) pair has been seen before.
	Record(ctx context.Context, event *WebhookEvent) error

	// MarkProcessed stamps the processing outcome for audit.
	MarkProcessed(ctx context.Context, provider vo.Provider, eventID string, processingErr error) error
}
