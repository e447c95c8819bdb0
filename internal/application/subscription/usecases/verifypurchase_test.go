package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/application/subscription/testutil"
	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
)

func appleFacts(t *testing.T, expiresIn time.Duration) subscription.Facts {
	t.Helper()
	now := time.Now().UTC()
	return subscription.Facts{
		Provider:              vo.ProviderApple,
		TransactionID:         "2000000987654321",
		OriginalTransactionID: "2000000123456789",
		ProductID:             "premium_monthly",
		PurchaseDate:          now.Add(-time.Hour),
		ExpiresDate:           now.Add(expiresIn),
		Environment:           subscription.EnvironmentProduction,
	}
}

func seedRecord(t *testing.T, repo *testutil.MockSubscriptionRepository, userID uint, params subscription.RecordParams) {
	t.Helper()
	params.UserID = userID
	if params.CreatedAt == nil {
		created := time.Now().UTC().Add(-30 * 24 * time.Hour)
		params.CreatedAt = &created
	}
	repo.AddRecord(subscription.ReconstructRecord(params))
}

func newVerifyPurchaseFixture() (*VerifyPurchaseUseCase, *testutil.MockSubscriptionRepository, *testutil.MockTransactionMappingRepository, *testutil.MockReceiptVerifier, *testutil.MockPaymentGateway, *testutil.MockEntitlementCache) {
	subRepo := testutil.NewMockSubscriptionRepository()
	mappingRepo := testutil.NewMockTransactionMappingRepository()
	verifier := &testutil.MockReceiptVerifier{}
	gateway := &testutil.MockPaymentGateway{}
	cache := testutil.NewMockEntitlementCache()
	log := testutil.NewMockLogger()

	migrate := NewMigrateProviderUseCase(gateway, log)
	uc := NewVerifyPurchaseUseCase(verifier, gateway, subRepo, mappingRepo, migrate, cache, log)
	return uc, subRepo, mappingRepo, verifier, gateway, cache
}

func TestVerifyPurchase_ApplePaidPeriod(t *testing.T) {
	uc, subRepo, mappingRepo, verifier, _, cache := newVerifyPurchaseFixture()

	verifier.Facts = appleFacts(t, 30*24*time.Hour)
	seedRecord(t, subRepo, 1, subscription.RecordParams{})

	result, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		ProductID:     "premium_monthly",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Subscription)

	assert.Equal(t, "active", result.Subscription.Status)
	assert.Equal(t, "apple", result.Subscription.Provider)
	assert.Equal(t, DefaultTier, result.Subscription.Tier)
	assert.Equal(t, "monthly", result.Subscription.BillingPeriod)
	assert.True(t, result.Subscription.CanUseService)
	assert.False(t, result.Migrated)

	require.Len(t, mappingRepo.Upserts, 1)
	assert.Equal(t, uint(1), mappingRepo.Upserts[0].UserID)
	assert.Equal(t, "2000000123456789", mappingRepo.Upserts[0].OriginalTransactionID)

	status, ok := cache.Status(1)
	require.True(t, ok)
	assert.Equal(t, vo.StatusActive, status)
}

func TestVerifyPurchase_IntroductoryOfferYieldsTrial(t *testing.T) {
	uc, subRepo, _, verifier, _, _ := newVerifyPurchaseFixture()

	facts := appleFacts(t, 7*24*time.Hour)
	facts.OfferType = subscription.OfferIntroductory
	verifier.Facts = facts
	seedRecord(t, subRepo, 1, subscription.RecordParams{})

	result, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	require.NoError(t, err)

	assert.Equal(t, "trial", result.Subscription.Status)
	require.NotNil(t, result.Subscription.TrialEnd)
}

func TestVerifyPurchase_StripeToAppleMigration(t *testing.T) {
	uc, subRepo, _, verifier, gateway, _ := newVerifyPurchaseFixture()

	verifier.Facts = appleFacts(t, 30*24*time.Hour)
	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_legacy123",
		BillingPeriod:        vo.PeriodMonthly,
	})

	result, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "annual",
	})
	require.NoError(t, err)

	assert.True(t, result.Migrated)
	assert.Equal(t, "apple", result.Subscription.Provider)
	assert.Equal(t, "stripe", result.Subscription.MigratedFrom)

	require.Len(t, gateway.Cancelled, 1)
	assert.Equal(t, "sub_legacy123", gateway.Cancelled[0])

	record, err := subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.ProviderApple, record.Provider())
	assert.NotEqual(t, vo.ProviderStripe, record.Provider(), "stripe must never be left owning the record")
	require.NotNil(t, record.MigratedFrom())
	assert.Equal(t, vo.ProviderStripe, *record.MigratedFrom())
}

func TestVerifyPurchase_SecondSwitchStillRetiresOldProvider(t *testing.T) {
	uc, subRepo, _, verifier, gateway, _ := newVerifyPurchaseFixture()

	// User migrated apple→stripe in the past; Stripe is live again and the
	// user now verifies another Apple purchase. The Stripe subscription must
	// be cancelled even though the migration fields are already stamped.
	verifier.Facts = appleFacts(t, 30*24*time.Hour)
	firstFrom := vo.ProviderApple
	firstAt := time.Now().UTC().Add(-90 * 24 * time.Hour)
	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_second456",
		BillingPeriod:        vo.PeriodMonthly,
		MigratedFrom:         &firstFrom,
		MigratedAt:           &firstAt,
	})

	result, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	require.NoError(t, err)

	assert.True(t, result.Migrated)
	require.Len(t, gateway.Cancelled, 1, "the live stripe subscription must be retired")
	assert.Equal(t, "sub_second456", gateway.Cancelled[0])

	record, err := subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.ProviderApple, record.Provider())

	// The first switch's stamp is never overwritten.
	require.NotNil(t, record.MigratedFrom())
	assert.Equal(t, vo.ProviderApple, *record.MigratedFrom())
	require.NotNil(t, record.MigratedAt())
	assert.WithinDuration(t, firstAt, *record.MigratedAt(), time.Second)

	require.NotNil(t, record.CancellationReason())
	assert.Equal(t, vo.CancelReasonMigration, *record.CancellationReason())
}

func TestVerifyPurchase_MigrationRecordsCancellationReason(t *testing.T) {
	uc, subRepo, _, verifier, _, _ := newVerifyPurchaseFixture()

	verifier.Facts = appleFacts(t, 30*24*time.Hour)
	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_legacy123",
	})

	_, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	require.NoError(t, err)

	require.Len(t, subRepo.Reconciliations, 1)
	rec := subRepo.Reconciliations[0].Rec
	require.NotNil(t, rec.Cancellation)
	assert.Equal(t, vo.CancelReasonMigration, rec.Cancellation.Reason)
}

func TestVerifyPurchase_MigrationProceedsWhenCancelFails(t *testing.T) {
	uc, subRepo, _, verifier, gateway, _ := newVerifyPurchaseFixture()

	verifier.Facts = appleFacts(t, 30*24*time.Hour)
	gateway.CancelErr = subscription.ErrVendorUnavailable
	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_legacy123",
	})

	result, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	require.NoError(t, err, "a failed remote cancellation must not block the purchase")
	assert.True(t, result.Migrated)
	assert.Equal(t, "apple", result.Subscription.Provider)
}

func TestVerifyPurchase_TransactionOwnedByOtherUser(t *testing.T) {
	uc, subRepo, mappingRepo, verifier, _, _ := newVerifyPurchaseFixture()

	verifier.Facts = appleFacts(t, 30*24*time.Hour)
	seedRecord(t, subRepo, 1, subscription.RecordParams{})

	err := mappingRepo.Upsert(context.Background(), subscription.TransactionMapping{
		Provider:              vo.ProviderApple,
		TransactionID:         "2000000123456789",
		OriginalTransactionID: "2000000123456789",
		UserID:                99,
	})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	assert.ErrorIs(t, err, subscription.ErrCallerNotOwner)

	record, getErr := subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, getErr)
	assert.Equal(t, vo.StatusNone, record.Status(), "rejected verification must not touch state")
}

func TestVerifyPurchase_UnknownBillingPeriod(t *testing.T) {
	uc, _, _, _, _, _ := newVerifyPurchaseFixture()

	_, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "biweekly",
	})
	assert.ErrorIs(t, err, subscription.ErrUnknownProduct)
}

func TestVerifyPurchase_UnknownUser(t *testing.T) {
	uc, _, _, verifier, _, _ := newVerifyPurchaseFixture()
	verifier.Facts = appleFacts(t, 30*24*time.Hour)

	_, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        7,
		Receipt:       "signed-receipt",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	assert.ErrorIs(t, err, subscription.ErrUserNotFound)
}

func TestVerifyPurchase_VerificationFailure(t *testing.T) {
	uc, subRepo, _, verifier, _, _ := newVerifyPurchaseFixture()

	verifier.Err = subscription.ErrVerificationFailed
	seedRecord(t, subRepo, 1, subscription.RecordParams{})

	_, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "garbage",
		Platform:      "ios",
		BillingPeriod: "monthly",
	})
	assert.ErrorIs(t, err, subscription.ErrVerificationFailed)
}

func TestVerifyPurchase_StripePlatformUsesGateway(t *testing.T) {
	uc, subRepo, _, _, gateway, _ := newVerifyPurchaseFixture()

	now := time.Now().UTC()
	gateway.Facts = subscription.Facts{
		Provider:              vo.ProviderStripe,
		TransactionID:         "sub_abc",
		OriginalTransactionID: "sub_abc",
		CustomerID:            "cus_abc",
		ExpiresDate:           now.Add(30 * 24 * time.Hour),
	}
	seedRecord(t, subRepo, 1, subscription.RecordParams{})

	result, err := uc.Execute(context.Background(), VerifyPurchaseRequest{
		UserID:        1,
		Receipt:       "sub_abc",
		Platform:      "stripe",
		BillingPeriod: "monthly",
	})
	require.NoError(t, err)

	assert.Equal(t, "stripe", result.Subscription.Provider)
	require.Len(t, gateway.FetchedIDs, 1)
	assert.Equal(t, "sub_abc", gateway.FetchedIDs[0])
}
