package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "lumina/internal/domain/subscription/valueobjects"
)

// --- helpers ---

func activeRecord(t *testing.T, provider vo.Provider) *Record {
	t.Helper()
	now := time.Now().UTC()
	created := now.Add(-60 * 24 * time.Hour)
	return ReconstructRecord(RecordParams{
		UserID:               42,
		Status:               vo.StatusActive,
		Tier:                 "premium",
		BillingPeriod:        vo.PeriodMonthly,
		Provider:             provider,
		CurrentPeriodStart:   now.Add(-15 * 24 * time.Hour),
		CurrentPeriodEnd:     now.Add(15 * 24 * time.Hour),
		StripeSubscriptionID: "sub_9XkTq2LmWw",
		StripeCustomerID:     "cus_Mn4pVrYd",
		CreatedAt:            &created,
	})
}

func TestReconstructRecord_EmptyRowIsNone(t *testing.T) {
	r := ReconstructRecord(RecordParams{UserID: 7})

	assert.Equal(t, vo.StatusNone, r.Status())
	assert.Equal(t, vo.ProviderNone, r.Provider())
	assert.False(t, r.Exists())
}

func TestRecord_ProviderScopedIdentifiers(t *testing.T) {
	r := activeRecord(t, vo.ProviderStripe)

	subID, err := r.StripeSubscriptionID()
	require.NoError(t, err)
	assert.Equal(t, "sub_9XkTq2LmWw", subID)

	// Apple identifiers must not be readable while Stripe owns the record.
	_, err = r.AppleOriginalTransactionID()
	assert.ErrorIs(t, err, ErrProviderMismatch)
}

func TestRecord_RequiresMigration(t *testing.T) {
	r := activeRecord(t, vo.ProviderStripe)

	assert.True(t, r.RequiresMigration(vo.ProviderApple))
	assert.False(t, r.RequiresMigration(vo.ProviderStripe), "same provider is a renewal, not a migration")
}

func TestRecord_TerminalStatusNeverMigrates(t *testing.T) {
	now := time.Now().UTC()
	created := now.Add(-90 * 24 * time.Hour)
	cancelled := now.Add(-5 * 24 * time.Hour)

	r := ReconstructRecord(RecordParams{
		UserID:      42,
		Status:      vo.StatusCancelled,
		Provider:    vo.ProviderStripe,
		CancelledAt: &cancelled,
		CreatedAt:   &created,
	})

	assert.False(t, r.RequiresMigration(vo.ProviderApple))
}

func TestRecord_FirstPurchaseNeverMigrates(t *testing.T) {
	r := ReconstructRecord(RecordParams{UserID: 7})

	assert.False(t, r.RequiresMigration(vo.ProviderApple))
}

func TestRecord_MigrationAllowedExactlyOnce(t *testing.T) {
	r := activeRecord(t, vo.ProviderApple)
	assert.True(t, r.MigrationAllowed())

	from := vo.ProviderStripe
	at := time.Now().UTC()
	migrated := ReconstructRecord(RecordParams{
		UserID:       42,
		Status:       vo.StatusActive,
		Provider:     vo.ProviderApple,
		MigratedFrom: &from,
		MigratedAt:   &at,
		CreatedAt:    &at,
	})
	assert.False(t, migrated.MigrationAllowed())
}

func TestRecord_HasLapsed(t *testing.T) {
	now := time.Now().UTC()

	r := activeRecord(t, vo.ProviderApple)
	assert.False(t, r.HasLapsed(now))

	created := now.Add(-60 * 24 * time.Hour)
	lapsed := ReconstructRecord(RecordParams{
		UserID:           42,
		Status:           vo.StatusActive,
		BillingPeriod:    vo.PeriodMonthly,
		Provider:         vo.ProviderApple,
		CurrentPeriodEnd: now.Add(-time.Hour),
		CreatedAt:        &created,
	})
	assert.True(t, lapsed.HasLapsed(now))

	cancelled := ReconstructRecord(RecordParams{
		UserID:           42,
		Status:           vo.StatusCancelled,
		BillingPeriod:    vo.PeriodMonthly,
		Provider:         vo.ProviderApple,
		CurrentPeriodEnd: now.Add(-time.Hour),
		CreatedAt:        &created,
	})
	assert.True(t, cancelled.HasLapsed(now), "cancelled records lapse when the paid period ends")

	lifetime := ReconstructRecord(RecordParams{
		UserID:           42,
		Status:           vo.StatusActive,
		BillingPeriod:    vo.PeriodLifetime,
		Provider:         vo.ProviderStripe,
		CurrentPeriodEnd: now.Add(-time.Hour),
		CreatedAt:        &created,
	})
	assert.False(t, lifetime.HasLapsed(now), "lifetime purchases never lapse")
}

func TestNewReconciliation_AppleIdentifiers(t *testing.T) {
	now := time.Now().UTC()

	facts := paidFacts(t, now, 10*24*time.Hour)
	rec := NewReconciliation(facts, now)

	assert.Equal(t, vo.ProviderApple, rec.Provider)
	assert.Equal(t, vo.StatusActive, rec.Status)
	assert.Equal(t, "within_period", rec.ResolvedBy)
	assert.Equal(t, facts.OriginalTransactionID, rec.AppleOriginalTransactionID)
	assert.Equal(t, facts.TransactionID, rec.AppleTransactionID)
	assert.Empty(t, rec.StripeSubscriptionID)
	assert.Equal(t, now, rec.LastVerifiedAt)
}

func TestNewReconciliation_TrialCarriesTrialEnd(t *testing.T) {
	now := time.Now().UTC()

	facts := paidFacts(t, now, 5*24*time.Hour)
	facts.OfferType = OfferIntroductory

	rec := NewReconciliation(facts, now)

	require.NotNil(t, rec.TrialEnd)
	assert.Equal(t, facts.ExpiresDate, *rec.TrialEnd)
	assert.Equal(t, vo.StatusTrial, rec.Status)
}

func TestNewReconciliation_RefundCarriesRevocationFields(t *testing.T) {
	now := time.Now().UTC()
	reason := "REFUND"

	facts := paidFacts(t, now, 10*24*time.Hour)
	facts.RevocationDate = timePtr(now.Add(-time.Hour))
	facts.RevocationReason = &reason

	rec := NewReconciliation(facts, now)

	assert.Equal(t, vo.StatusExpired, rec.Status)
	require.NotNil(t, rec.RevokedAt)
	assert.Equal(t, reason, *rec.RevocationReason)
}
