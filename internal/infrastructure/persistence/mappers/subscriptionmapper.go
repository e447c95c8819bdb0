package mappers

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToRecord(model *models.UserModel) (*subscription.Record, error)
	ReconciliationColumns(rec subscription.Reconciliation) map[string]interface{}
	CancellationColumns(reason vo.CancellationReason, at time.Time) map[string]interface{}
	ExpiryColumns(at time.Time) map[string]interface{}
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

// ToRecord rebuilds the domain record from the user row's subscription
// field group.
func (m *SubscriptionMapperImpl) ToRecord(model *models.UserModel) (*subscription.Record, error) {
	if model == nil {
		return nil, nil
	}

	s := model.Subscription

	status := vo.Status(s.Status)
	if s.Status == "" {
		status = vo.StatusNone
	}
	if !vo.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", s.Status)
	}

	var migratedFrom *vo.Provider
	if s.MigratedFrom != nil && *s.MigratedFrom != "" {
		p := vo.Provider(*s.MigratedFrom)
		migratedFrom = &p
	}

	var cancelReason *vo.CancellationReason
	if s.CancellationReason != nil && *s.CancellationReason != "" {
		r := vo.CancellationReason(*s.CancellationReason)
		cancelReason = &r
	}

	params := subscription.RecordParams{
		UserID:                     model.ID,
		Status:                     status,
		Tier:                       s.Tier,
		BillingPeriod:              vo.BillingPeriod(s.BillingPeriod),
		Provider:                   vo.Provider(s.Provider),
		TrialEnd:                   s.TrialEnd,
		AppleOriginalTransactionID: s.AppleOriginalTransactionID,
		AppleTransactionID:         s.AppleTransactionID,
		GoogleOrderID:              s.GoogleOrderID,
		StripeSubscriptionID:       s.StripeSubscriptionID,
		StripeCustomerID:           s.StripeCustomerID,
		MigratedFrom:               migratedFrom,
		MigratedAt:                 s.MigratedAt,
		CancelledAt:                s.CancelledAt,
		CancellationReason:         cancelReason,
		LastVerifiedAt:             s.LastVerifiedAt,
		CreatedAt:                  s.CreatedAt,
	}
	if s.CurrentPeriodStart != nil {
		params.CurrentPeriodStart = *s.CurrentPeriodStart
	}
	if s.CurrentPeriodEnd != nil {
		params.CurrentPeriodEnd = *s.CurrentPeriodEnd
	}

	return subscription.ReconstructRecord(params), nil
}

// ReconciliationColumns turns a resolution pass outcome into the
// field-scoped partial update. Only columns the pass owns appear in the
// map; subscription_created_at is set through COALESCE so only the first
// purchase writes it.
func (m *SubscriptionMapperImpl) ReconciliationColumns(rec subscription.Reconciliation) map[string]interface{} {
	columns := map[string]interface{}{
		"subscription_status":           rec.Status.String(),
		"subscription_provider":         rec.Provider.String(),
		"subscription_last_verified_at": rec.LastVerifiedAt,
		"subscription_created_at":       gorm.Expr("COALESCE(subscription_created_at, ?)", rec.LastVerifiedAt),
	}

	if !rec.CurrentPeriodStart.IsZero() {
		columns["subscription_current_period_start"] = rec.CurrentPeriodStart
	}
	if !rec.CurrentPeriodEnd.IsZero() {
		columns["subscription_current_period_end"] = rec.CurrentPeriodEnd
	}
	if rec.Tier != "" {
		columns["subscription_tier"] = rec.Tier
	}
	if rec.BillingPeriod != "" {
		columns["subscription_billing_period"] = rec.BillingPeriod.String()
	}
	if rec.TrialEnd != nil {
		columns["subscription_trial_end"] = *rec.TrialEnd
	} else {
		columns["subscription_trial_end"] = nil
	}
	if rec.RevokedAt != nil {
		columns["subscription_revoked_at"] = *rec.RevokedAt
		if rec.RevocationReason != nil {
			columns["subscription_revocation_reason"] = *rec.RevocationReason
		}
	}

	// Only the owning provider's identifier columns are written; the other
	// providers' columns keep their stale values for audit.
	switch rec.Provider {
	case vo.ProviderApple:
		columns["subscription_apple_original_transaction_id"] = rec.AppleOriginalTransactionID
		columns["subscription_apple_transaction_id"] = rec.AppleTransactionID
	case vo.ProviderGoogle:
		columns["subscription_google_order_id"] = rec.GoogleOrderID
	case vo.ProviderStripe:
		columns["subscription_stripe_subscription_id"] = rec.StripeSubscriptionID
		if rec.StripeCustomerID != "" {
			columns["subscription_stripe_customer_id"] = rec.StripeCustomerID
		}
	}

	if rec.Migration != nil {
		columns["subscription_migrated_from"] = rec.Migration.From.String()
		columns["subscription_migrated_at"] = rec.Migration.At
	}
	if rec.Cancellation != nil {
		columns["subscription_cancelled_at"] = rec.Cancellation.At
		columns["subscription_cancellation_reason"] = rec.Cancellation.Reason.String()
	}

	return columns
}

// CancellationColumns is the terminal user-requested cancel update.
func (m *SubscriptionMapperImpl) CancellationColumns(reason vo.CancellationReason, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"subscription_status":              vo.StatusCancelled.String(),
		"subscription_cancelled_at":        at,
		"subscription_cancellation_reason": reason.String(),
	}
}

// ExpiryColumns is the sweep update for lapsed periods.
func (m *SubscriptionMapperImpl) ExpiryColumns(at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"subscription_status":           vo.StatusExpired.String(),
		"subscription_last_verified_at": at,
	}
}
