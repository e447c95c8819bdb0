package appstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/logger"
)

func newTestAdapter() *Adapter {
	return NewAdapter(nil, nil, logger.NewLogger())
}

func TestFactsFromPayloads_TransactionOnly(t *testing.T) {
	adapter := newTestAdapter()

	purchase := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	expires := purchase.AddDate(0, 1, 0)

	tx := &TransactionPayload{
		TransactionID:         "2000000123456789",
		OriginalTransactionID: "2000000100000000",
		ProductID:             "premium_monthly",
		PurchaseDate:          purchase.UnixMilli(),
		ExpiresDate:           expires.UnixMilli(),
		AppAccountToken:       "b8e5f3c2-1111-4222-8333-944445555666",
		Environment:           "Production",
	}

	facts := adapter.factsFromPayloads(tx, nil)

	assert.Equal(t, vo.ProviderApple, facts.Provider)
	assert.Equal(t, "2000000123456789", facts.TransactionID)
	assert.Equal(t, "2000000100000000", facts.OriginalTransactionID)
	assert.Equal(t, "premium_monthly", facts.ProductID)
	assert.True(t, facts.PurchaseDate.Equal(purchase))
	assert.True(t, facts.ExpiresDate.Equal(expires))
	assert.Equal(t, subscription.OfferNone, facts.OfferType)
	assert.Nil(t, facts.AutoRenewStatus)
	assert.False(t, facts.InBillingRetryPeriod)
	assert.Equal(t, subscription.EnvironmentProduction, facts.Environment)
	assert.Equal(t, "b8e5f3c2-1111-4222-8333-944445555666", facts.AppAccountToken)
}

func TestFactsFromPayloads_RevocationMapped(t *testing.T) {
	adapter := newTestAdapter()

	revokedAt := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	revokedAtMillis := revokedAt.UnixMilli()
	reason := 1

	tx := &TransactionPayload{
		TransactionID:    "2000000123456789",
		ProductID:        "premium_monthly",
		RevocationDate:   &revokedAtMillis,
		RevocationReason: &reason,
		Environment:      "Production",
	}

	facts := adapter.factsFromPayloads(tx, nil)

	require.NotNil(t, facts.RevocationDate)
	assert.True(t, facts.RevocationDate.Equal(revokedAt))
	require.NotNil(t, facts.RevocationReason)
	assert.Equal(t, "app_issue", *facts.RevocationReason)
	assert.True(t, facts.Revoked())
}

func TestFactsFromPayloads_RenewalInfoMerged(t *testing.T) {
	adapter := newTestAdapter()

	graceEnd := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	graceEndMillis := graceEnd.UnixMilli()
	autoRenewOff := 0
	intent := int64(2)

	tx := &TransactionPayload{
		TransactionID: "2000000123456789",
		ProductID:     "premium_monthly",
		Environment:   "Sandbox",
	}
	renewal := &RenewalInfoPayload{
		AutoRenewStatus:        &autoRenewOff,
		ExpirationIntent:       &intent,
		IsInBillingRetryPeriod: true,
		GracePeriodExpiresDate: &graceEndMillis,
	}

	facts := adapter.factsFromPayloads(tx, renewal)

	require.NotNil(t, facts.AutoRenewStatus)
	assert.False(t, *facts.AutoRenewStatus)
	assert.True(t, facts.AutoRenewDisabled())
	require.NotNil(t, facts.ExpirationIntent)
	assert.Equal(t, int64(2), *facts.ExpirationIntent)
	assert.True(t, facts.InBillingRetryPeriod)
	require.NotNil(t, facts.GracePeriodExpiresAt)
	assert.True(t, facts.GracePeriodExpiresAt.Equal(graceEnd))
	assert.Equal(t, subscription.EnvironmentSandbox, facts.Environment)
}

func TestMapOfferType(t *testing.T) {
	intro, promo, code, unknown := 1, 2, 3, 9

	assert.Equal(t, subscription.OfferNone, mapOfferType(nil))
	assert.Equal(t, subscription.OfferIntroductory, mapOfferType(&intro))
	assert.Equal(t, subscription.OfferPromotional, mapOfferType(&promo))
	assert.Equal(t, subscription.OfferCode, mapOfferType(&code))
	assert.Equal(t, subscription.OfferNone, mapOfferType(&unknown))
}

func TestDecodeNotification_RejectsNonEnvelope(t *testing.T) {
	adapter := newTestAdapter()

	_, err := adapter.DecodeNotification([]byte(`{"foo":"bar"}`))
	assert.ErrorIs(t, err, subscription.ErrVerificationFailed)

	_, err = adapter.DecodeNotification([]byte(`not json`))
	assert.ErrorIs(t, err, subscription.ErrVerificationFailed)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, isNumeric("2000000123456789"))
	assert.False(t, isNumeric(""))
	assert.False(t, isNumeric("abc123"))
	assert.False(t, isNumeric("123.456"))
}
