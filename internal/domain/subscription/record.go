package subscription

import (
	"time"

	vo "lumina/internal/domain/subscription/valueobjects"
)

// Record is the subscription field group embedded on the user entity. It is
// reconstructed from persistence for reads and invariant checks; writes go
// through field-scoped partial updates (see Reconciliation) so concurrent
// webhook handlers never clobber fields they do not own.
type Record struct {
	userID             uint
	status             vo.Status
	tier               string
	billingPeriod      vo.BillingPeriod
	provider           vo.Provider
	currentPeriodStart time.Time
	currentPeriodEnd   time.Time
	trialEnd           *time.Time

	// Provider-scoped identifiers. Fields of a non-active provider go stale
	// rather than being deleted so history stays inspectable, but they must
	// not be read unless provider matches.
	appleOriginalTransactionID string
	appleTransactionID         string
	googleOrderID              string
	stripeSubscriptionID       string
	stripeCustomerID           string

	migratedFrom       *vo.Provider
	migratedAt         *time.Time
	cancelledAt        *time.Time
	cancellationReason *vo.CancellationReason
	lastVerifiedAt     *time.Time
	createdAt          *time.Time
}

// RecordParams carries every persisted field for reconstruction.
type RecordParams struct {
	UserID                     uint
	Status                     vo.Status
	Tier                       string
	BillingPeriod              vo.BillingPeriod
	Provider                   vo.Provider
	CurrentPeriodStart         time.Time
	CurrentPeriodEnd           time.Time
	TrialEnd                   *time.Time
	AppleOriginalTransactionID string
	AppleTransactionID         string
	GoogleOrderID              string
	StripeSubscriptionID       string
	StripeCustomerID           string
	MigratedFrom               *vo.Provider
	MigratedAt                 *time.Time
	CancelledAt                *time.Time
	CancellationReason         *vo.CancellationReason
	LastVerifiedAt             *time.Time
	CreatedAt                  *time.Time
}

// ReconstructRecord rebuilds a Record from persistence. Zero-value rows
// (user never purchased) reconstruct as a StatusNone record.
func ReconstructRecord(p RecordParams) *Record {
	status := p.Status
	if status == "" {
		status = vo.StatusNone
	}
	provider := p.Provider
	if provider == "" {
		provider = vo.ProviderNone
	}

	return &Record{
		userID:                     p.UserID,
		status:                     status,
		tier:                       p.Tier,
		billingPeriod:              p.BillingPeriod,
		provider:                   provider,
		currentPeriodStart:         p.CurrentPeriodStart,
		currentPeriodEnd:           p.CurrentPeriodEnd,
		trialEnd:                   p.TrialEnd,
		appleOriginalTransactionID: p.AppleOriginalTransactionID,
		appleTransactionID:         p.AppleTransactionID,
		googleOrderID:              p.GoogleOrderID,
		stripeSubscriptionID:       p.StripeSubscriptionID,
		stripeCustomerID:           p.StripeCustomerID,
		migratedFrom:               p.MigratedFrom,
		migratedAt:                 p.MigratedAt,
		cancelledAt:                p.CancelledAt,
		cancellationReason:         p.CancellationReason,
		lastVerifiedAt:             p.LastVerifiedAt,
		createdAt:                  p.CreatedAt,
	}
}

func (r *Record) UserID() uint                    { return r.userID }
func (r *Record) Status() vo.Status               { return r.status }
func (r *Record) Tier() string                    { return r.tier }
func (r *Record) BillingPeriod() vo.BillingPeriod { return r.billingPeriod }
func (r *Record) Provider() vo.Provider           { return r.provider }
func (r *Record) CurrentPeriodStart() time.Time   { return r.currentPeriodStart }
func (r *Record) CurrentPeriodEnd() time.Time     { return r.currentPeriodEnd }
func (r *Record) TrialEnd() *time.Time            { return r.trialEnd }
func (r *Record) MigratedFrom() *vo.Provider      { return r.migratedFrom }
func (r *Record) MigratedAt() *time.Time          { return r.migratedAt }
func (r *Record) CancelledAt() *time.Time         { return r.cancelledAt }
func (r *Record) LastVerifiedAt() *time.Time      { return r.lastVerifiedAt }
func (r *Record) CreatedAt() *time.Time           { return r.createdAt }

func (r *Record) CancellationReason() *vo.CancellationReason { return r.cancellationReason }

// Exists reports whether the user has ever completed a purchase.
func (r *Record) Exists() bool {
	return r.createdAt != nil
}

// StripeSubscriptionID is only meaningful while Stripe owns the record.
func (r *Record) StripeSubscriptionID() (string, error) {
	if r.provider != vo.ProviderStripe {
		return "", ErrProviderMismatch
	}
	return r.stripeSubscriptionID, nil
}

// AppleOriginalTransactionID is only meaningful while Apple owns the record.
func (r *Record) AppleOriginalTransactionID() (string, error) {
	if r.provider != vo.ProviderApple {
		return "", ErrProviderMismatch
	}
	return r.appleOriginalTransactionID, nil
}

// RequiresMigration reports whether recording a verified purchase from
// newProvider must first retire the current provider's subscription: the
// record is owned by a different, non-terminal provider.
func (r *Record) RequiresMigration(newProvider vo.Provider) bool {
	if !r.Exists() {
		return false
	}
	if r.provider == vo.ProviderNone || r.provider == newProvider {
		return false
	}
	return !r.status.IsTerminal()
}

// MigrationAllowed enforces the set-exactly-once rule for migration fields.
func (r *Record) MigrationAllowed() bool {
	return r.migratedFrom == nil && r.migratedAt == nil
}

// HasLapsed reports whether the record's paid period is over, which is what
// the expiry sweep looks for. Cancelled records lapse too: cancellation
// keeps access until the period ends. Lifetime purchases never lapse.
func (r *Record) HasLapsed(now time.Time) bool {
	if r.status == vo.StatusExpired || r.status == vo.StatusNone {
		return false
	}
	if r.billingPeriod == vo.PeriodLifetime {
		return false
	}
	return !r.currentPeriodEnd.IsZero() && !r.currentPeriodEnd.After(now)
}
