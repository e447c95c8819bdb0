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

func newCancelFixture() (*CancelSubscriptionUseCase, *testutil.MockSubscriptionRepository, *testutil.MockPaymentGateway, *testutil.MockEntitlementCache) {
	subRepo := testutil.NewMockSubscriptionRepository()
	gateway := &testutil.MockPaymentGateway{}
	cache := testutil.NewMockEntitlementCache()
	uc := NewCancelSubscriptionUseCase(gateway, subRepo, cache, testutil.NewMockLogger())
	return uc, subRepo, gateway, cache
}

func TestCancelSubscription_StripeCancelsRemote(t *testing.T) {
	uc, subRepo, gateway, cache := newCancelFixture()

	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_abc",
		CurrentPeriodEnd:     time.Now().UTC().Add(10 * 24 * time.Hour),
	})

	dto, err := uc.Execute(context.Background(), 1, vo.CancelReasonUserRequest)
	require.NoError(t, err)

	require.Len(t, gateway.Cancelled, 1)
	assert.Equal(t, "sub_abc", gateway.Cancelled[0])

	assert.Equal(t, "cancelled", dto.Status)
	assert.True(t, dto.CanUseService, "access runs until the paid period ends")

	require.Len(t, subRepo.Cancellations, 1)
	assert.Equal(t, vo.CancelReasonUserRequest, subRepo.Cancellations[0].Reason)
	assert.Contains(t, cache.Invalidated, uint(1))
}

func TestCancelSubscription_AppleMarksLocallyOnly(t *testing.T) {
	uc, subRepo, gateway, _ := newCancelFixture()

	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: "2000000123456789",
	})

	dto, err := uc.Execute(context.Background(), 1, vo.CancelReasonUserRequest)
	require.NoError(t, err)

	assert.Empty(t, gateway.Cancelled, "app store subscriptions cannot be cancelled server side")
	assert.Equal(t, "cancelled", dto.Status)
}

func TestCancelSubscription_RemoteFailureStillCancelsLocally(t *testing.T) {
	uc, subRepo, gateway, _ := newCancelFixture()

	gateway.CancelErr = subscription.ErrVendorUnavailable
	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_abc",
	})

	dto, err := uc.Execute(context.Background(), 1, vo.CancelReasonAccountDeletion)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", dto.Status)
	require.Len(t, subRepo.Cancellations, 1)
}

func TestCancelSubscription_TerminalIsNoOp(t *testing.T) {
	uc, subRepo, gateway, _ := newCancelFixture()

	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:   vo.StatusExpired,
		Provider: vo.ProviderApple,
	})

	dto, err := uc.Execute(context.Background(), 1, vo.CancelReasonUserRequest)
	require.NoError(t, err)

	assert.Equal(t, "expired", dto.Status)
	assert.Empty(t, gateway.Cancelled)
	assert.Empty(t, subRepo.Cancellations)
}

func TestCancelSubscription_UnknownUser(t *testing.T) {
	uc, _, _, _ := newCancelFixture()

	_, err := uc.Execute(context.Background(), 404, vo.CancelReasonUserRequest)
	assert.ErrorIs(t, err, subscription.ErrUserNotFound)
}

func TestCancelSubscription_ReloadFailureStillReturnsState(t *testing.T) {
	uc, subRepo, _, _ := newCancelFixture()

	seedRecord(t, subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_abc",
		CurrentPeriodEnd:     time.Now().UTC().Add(10 * 24 * time.Hour),
	})
	subRepo.GetErrorAfter = 1 // initial load succeeds, reload fails

	dto, err := uc.Execute(context.Background(), 1, vo.CancelReasonUserRequest)
	require.NoError(t, err)
	require.NotNil(t, dto, "the durable cancellation must still be reported")

	assert.Equal(t, "cancelled", dto.Status)
	assert.True(t, dto.CanUseService)
	require.Len(t, subRepo.Cancellations, 1)
}
