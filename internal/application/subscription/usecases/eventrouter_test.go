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

type routerFixture struct {
	uc            *EventRouterUseCase
	subRepo       *testutil.MockSubscriptionRepository
	mappingRepo   *testutil.MockTransactionMappingRepository
	eventRepo     *testutil.MockWebhookEventRepository
	appleDecoder  *testutil.MockAppStoreDecoder
	stripeDecoder *testutil.MockStripeDecoder
	gateway       *testutil.MockPaymentGateway
	cache         *testutil.MockEntitlementCache
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		subRepo:       testutil.NewMockSubscriptionRepository(),
		mappingRepo:   testutil.NewMockTransactionMappingRepository(),
		eventRepo:     testutil.NewMockWebhookEventRepository(),
		appleDecoder:  &testutil.MockAppStoreDecoder{},
		stripeDecoder: &testutil.MockStripeDecoder{},
		gateway:       &testutil.MockPaymentGateway{},
		cache:         testutil.NewMockEntitlementCache(),
	}
	log := testutil.NewMockLogger()
	lookup := NewUserLookup(f.subRepo, f.mappingRepo, log)
	f.uc = NewEventRouterUseCase(
		f.appleDecoder, f.stripeDecoder, f.gateway,
		f.subRepo, f.mappingRepo, f.eventRepo, lookup, f.cache, log,
	)
	return f
}

func appleEvent(t *testing.T, eventType, eventID string, facts *subscription.Facts) *subscription.ProviderEvent {
	t.Helper()
	return &subscription.ProviderEvent{
		Provider:  vo.ProviderApple,
		EventID:   eventID,
		EventType: eventType,
		Facts:     facts,
		Payload:   []byte(`{"signedPayload":"..."}`),
	}
}

func TestEventRouter_RenewalAppliesReconciliation(t *testing.T) {
	f := newRouterFixture()

	facts := appleFacts(t, 30*24*time.Hour)
	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})
	f.appleDecoder.Event = appleEvent(t, "DID_RENEW", "evt-1", &facts)

	err := f.uc.HandleAppStoreNotification(context.Background(), []byte("body"))
	require.NoError(t, err)

	require.Len(t, f.subRepo.Reconciliations, 1)
	assert.Equal(t, uint(1), f.subRepo.Reconciliations[0].UserID)
	assert.Equal(t, vo.StatusActive, f.subRepo.Reconciliations[0].Rec.Status)

	assert.Contains(t, f.cache.Invalidated, uint(1))

	require.Len(t, f.eventRepo.Processed, 1)
	assert.NoError(t, f.eventRepo.Processed[0].Err)
}

func TestEventRouter_DuplicateDeliverySkipped(t *testing.T) {
	f := newRouterFixture()

	facts := appleFacts(t, 30*24*time.Hour)
	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})
	f.appleDecoder.Event = appleEvent(t, "DID_RENEW", "evt-dup", &facts)

	require.NoError(t, f.uc.HandleAppStoreNotification(context.Background(), []byte("body")))
	require.NoError(t, f.uc.HandleAppStoreNotification(context.Background(), []byte("body")))

	assert.Len(t, f.subRepo.Reconciliations, 1, "duplicate delivery must not reapply")
}

func TestEventRouter_OrphanEventDropped(t *testing.T) {
	f := newRouterFixture()

	facts := appleFacts(t, 30*24*time.Hour)
	f.appleDecoder.Event = appleEvent(t, "DID_RENEW", "evt-orphan", &facts)

	err := f.uc.HandleAppStoreNotification(context.Background(), []byte("body"))
	assert.NoError(t, err, "orphan events are dropped, not escalated")
	assert.Empty(t, f.subRepo.Reconciliations)
}

func TestEventRouter_TestNotificationIgnored(t *testing.T) {
	f := newRouterFixture()

	f.appleDecoder.Event = appleEvent(t, "TEST", "evt-test", nil)

	err := f.uc.HandleAppStoreNotification(context.Background(), []byte("body"))
	assert.NoError(t, err)
	assert.Empty(t, f.subRepo.Reconciliations)
	assert.Empty(t, f.eventRepo.Processed)
}

func TestEventRouter_RevocationExpires(t *testing.T) {
	f := newRouterFixture()

	facts := appleFacts(t, 30*24*time.Hour)
	revokedAt := time.Now().UTC().Add(-time.Minute)
	reason := "app_issue"
	facts.RevocationDate = &revokedAt
	facts.RevocationReason = &reason

	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})
	f.appleDecoder.Event = appleEvent(t, "REFUND", "evt-refund", &facts)

	require.NoError(t, f.uc.HandleAppStoreNotification(context.Background(), []byte("body")))

	record, err := f.subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusExpired, record.Status(), "revocation beats a future expiry date")
}

func TestEventRouter_RenewalStatusChange_FlipsActiveToCancelled(t *testing.T) {
	f := newRouterFixture()

	facts := appleFacts(t, 30*24*time.Hour)
	off := false
	facts.AutoRenewStatus = &off

	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})
	f.appleDecoder.Event = appleEvent(t, "DID_CHANGE_RENEWAL_STATUS", "evt-rs1", &facts)

	require.NoError(t, f.uc.HandleAppStoreNotification(context.Background(), []byte("body")))

	record, err := f.subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCancelled, record.Status())
	assert.True(t, record.Status().CanUseService(), "cancelled keeps access until the period ends")
}

func TestEventRouter_RenewalStatusChange_NeverRegressesTrial(t *testing.T) {
	f := newRouterFixture()

	facts := appleFacts(t, 7*24*time.Hour)
	off := false
	facts.AutoRenewStatus = &off

	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusTrial,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})
	f.appleDecoder.Event = appleEvent(t, "DID_CHANGE_RENEWAL_STATUS", "evt-rs2", &facts)

	require.NoError(t, f.uc.HandleAppStoreNotification(context.Background(), []byte("body")))

	record, err := f.subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusTrial, record.Status(), "renewal toggle must not move a trial record")
	assert.Empty(t, f.subRepo.Reconciliations)
}

func TestEventRouter_RenewalStatusChange_IgnoredWhenResolvedExpired(t *testing.T) {
	f := newRouterFixture()

	// Auto-renew off over an already lapsed period resolves to expired.
	// The renewal-status handler owns only the active<->cancelled flip.
	facts := appleFacts(t, -time.Hour)
	off := false
	facts.AutoRenewStatus = &off

	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})
	f.appleDecoder.Event = appleEvent(t, "DID_CHANGE_RENEWAL_STATUS", "evt-rs3", &facts)

	require.NoError(t, f.uc.HandleAppStoreNotification(context.Background(), []byte("body")))

	record, err := f.subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, record.Status())
	assert.Empty(t, f.subRepo.Reconciliations)
}

func TestEventRouter_StripeInvoiceFailureRefetches(t *testing.T) {
	f := newRouterFixture()

	now := time.Now().UTC()
	f.gateway.Facts = subscription.Facts{
		Provider:              vo.ProviderStripe,
		TransactionID:         "sub_abc",
		OriginalTransactionID: "sub_abc",
		ExpiresDate:           now.Add(3 * 24 * time.Hour),
		InBillingRetryPeriod:  true,
	}
	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_abc",
	})
	f.stripeDecoder.Event = &subscription.ProviderEvent{
		Provider:        vo.ProviderStripe,
		EventID:         "evt_inv1",
		EventType:       "invoice.payment_failed",
		SubscriptionRef: "sub_abc",
		Payload:         []byte("{}"),
	}

	require.NoError(t, f.uc.HandleStripeEvent(context.Background(), []byte("{}"), "sig"))

	require.Len(t, f.gateway.FetchedIDs, 1)
	assert.Equal(t, "sub_abc", f.gateway.FetchedIDs[0])

	record, err := f.subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusActive, record.Status(), "billing retry keeps the subscription active")
	require.Len(t, f.subRepo.Reconciliations, 1)
	assert.Equal(t, "billing_retry", f.subRepo.Reconciliations[0].Rec.ResolvedBy)
}

func TestEventRouter_StripeSubscriptionDeleted(t *testing.T) {
	f := newRouterFixture()

	now := time.Now().UTC()
	facts := subscription.Facts{
		Provider:              vo.ProviderStripe,
		TransactionID:         "sub_abc",
		OriginalTransactionID: "sub_abc",
		ExpiresDate:           now.Add(-time.Hour),
	}
	seedRecord(t, f.subRepo, 1, subscription.RecordParams{
		Status:               vo.StatusActive,
		Provider:             vo.ProviderStripe,
		StripeSubscriptionID: "sub_abc",
	})
	f.stripeDecoder.Event = &subscription.ProviderEvent{
		Provider:        vo.ProviderStripe,
		EventID:         "evt_del1",
		EventType:       "customer.subscription.deleted",
		SubscriptionRef: "sub_abc",
		Facts:           &facts,
		Payload:         []byte("{}"),
	}

	require.NoError(t, f.uc.HandleStripeEvent(context.Background(), []byte("{}"), "sig"))

	record, err := f.subRepo.GetByUserID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusExpired, record.Status())
	assert.Empty(t, f.gateway.FetchedIDs, "facts carried on the event need no refetch")
}

func TestEventRouter_DecoderFailureSurfaces(t *testing.T) {
	f := newRouterFixture()
	f.appleDecoder.Err = subscription.ErrVerificationFailed

	err := f.uc.HandleAppStoreNotification(context.Background(), []byte("garbage"))
	assert.ErrorIs(t, err, subscription.ErrVerificationFailed)
}
