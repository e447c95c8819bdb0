package subscription

import (
	"time"

	vo "lumina/internal/domain/subscription/valueobjects"
)

// MigrationStamp marks a provider switch. It is written exactly once and
// never overwritten afterward.
type MigrationStamp struct {
	From vo.Provider
	At   time.Time
}

// CancellationStamp marks a transition into the cancelled state together
// with the reason that caused it.
type CancellationStamp struct {
	At     time.Time
	Reason vo.CancellationReason
}

// Reconciliation is the outcome of one resolution pass: only the fields the
// pass owns. The persistence writer turns it into a field-scoped partial
// update so unrelated fields on the user record survive concurrent writes.
type Reconciliation struct {
	Provider           vo.Provider
	Status             vo.Status
	ResolvedBy         string // name of the resolution rule that matched
	Tier               string
	BillingPeriod      vo.BillingPeriod
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	TrialEnd           *time.Time
	RevokedAt          *time.Time
	RevocationReason   *string
	LastVerifiedAt     time.Time

	// Identifiers for the provider that owns this pass. Only the matching
	// provider's columns are written; the others keep their stale values.
	AppleOriginalTransactionID string
	AppleTransactionID         string
	GoogleOrderID              string
	StripeSubscriptionID       string
	StripeCustomerID           string

	Migration    *MigrationStamp
	Cancellation *CancellationStamp
}

// NewReconciliation builds the partial update for a resolution pass over the
// given facts. Tier and billing period are zero unless the caller (the
// client-initiated verification path) supplies them.
func NewReconciliation(facts Facts, now time.Time) Reconciliation {
	status, rule := ResolveWithRule(facts, now)

	rec := Reconciliation{
		Provider:           facts.Provider,
		Status:             status,
		ResolvedBy:         rule,
		CurrentPeriodStart: facts.PurchaseDate,
		CurrentPeriodEnd:   facts.ExpiresDate,
		RevokedAt:          facts.RevocationDate,
		RevocationReason:   facts.RevocationReason,
		LastVerifiedAt:     now,
	}

	if status == vo.StatusTrial && !facts.ExpiresDate.IsZero() {
		end := facts.ExpiresDate
		rec.TrialEnd = &end
	}

	switch facts.Provider {
	case vo.ProviderApple:
		rec.AppleOriginalTransactionID = facts.OriginalTransactionID
		rec.AppleTransactionID = facts.TransactionID
	case vo.ProviderGoogle:
		rec.GoogleOrderID = facts.TransactionID
	case vo.ProviderStripe:
		rec.StripeSubscriptionID = facts.OriginalTransactionID
		rec.StripeCustomerID = facts.CustomerID
	}

	return rec
}

// TransactionMapping maps an opaque provider transaction identifier to the
// owning user so webhook deliveries, which only carry the transaction ID,
// can find the record without scanning users. Create-only, idempotent.
type TransactionMapping struct {
	Provider              vo.Provider
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	UserID                uint
	CreatedAt             time.Time
}

// WebhookEvent is the dedup ledger entry for an inbound vendor notification.
// The (provider, event ID) pair is unique; a second delivery of the same
// event is detected at insert time and skipped while still acknowledged.
type WebhookEvent struct {
	SID             string
	Provider        vo.Provider
	EventID         string
	EventType       string
	Payload         []byte
	ProcessedAt     *time.Time
	ProcessingError string
	CreatedAt       time.Time
}
