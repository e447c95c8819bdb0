package subscription

import (
	"time"

	vo "lumina/internal/domain/subscription/valueobjects"
)

// OfferType classifies the offer a transaction was purchased under.
type OfferType string

const (
	OfferNone         OfferType = "none"
	OfferIntroductory OfferType = "introductory"
	OfferPromotional  OfferType = "promotional"
	OfferCode         OfferType = "offer_code"
)

// Environment distinguishes vendor sandbox transactions from production.
type Environment string

const (
	EnvironmentProduction Environment = "Production"
	EnvironmentSandbox    Environment = "Sandbox"
)

// Facts is the normalized fact set a vendor adapter produces from a signed
// transaction, a fetched subscription object, or a webhook payload. The
// resolver consumes Facts and nothing else, so every provider converges on
// this one shape.
//
// Optional vendor fields are pointers; absence is meaningful (a missing
// revocation date means "not refunded", not "refunded at zero time").
type Facts struct {
	Provider              vo.Provider
	TransactionID         string
	OriginalTransactionID string
	ProductID             string
	PurchaseDate          time.Time
	ExpiresDate           time.Time
	RevocationDate        *time.Time
	RevocationReason      *string
	OfferType             OfferType
	IsUpgraded            bool
	AutoRenewStatus       *bool
	ExpirationIntent      *int64
	InBillingRetryPeriod  bool
	GracePeriodExpiresAt  *time.Time
	Environment           Environment

	// AppAccountToken is the per-transaction account token some vendors
	// attach; when present it is the fastest user-lookup strategy.
	AppAccountToken string

	// CustomerID is the provider-side customer identifier, when the
	// provider has one distinct from the transaction (payment processors do,
	// app stores do not).
	CustomerID string
}

// Revoked reports whether the vendor refunded or revoked the transaction.
func (f Facts) Revoked() bool {
	return f.RevocationDate != nil
}

// AutoRenewDisabled reports whether the user explicitly switched renewal off.
// An absent auto-renew flag is not a disable.
func (f Facts) AutoRenewDisabled() bool {
	return f.AutoRenewStatus != nil && !*f.AutoRenewStatus
}

// WithinPeriod reports whether the paid period still covers now.
// The boundary instant itself is outside the period.
func (f Facts) WithinPeriod(now time.Time) bool {
	return f.ExpiresDate.After(now)
}

// InGracePeriod reports whether a vendor-granted grace window covers now.
func (f Facts) InGracePeriod(now time.Time) bool {
	return f.GracePeriodExpiresAt != nil && f.GracePeriodExpiresAt.After(now)
}

// IsIntroductory reports whether the purchase is an unupgraded introductory
// offer, which the app surfaces as a trial.
func (f Facts) IsIntroductory() bool {
	return f.OfferType == OfferIntroductory && !f.IsUpgraded
}
