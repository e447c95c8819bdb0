package stripegw

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
)

func buildSubscription(status stripe.SubscriptionStatus) *stripe.Subscription {
	periodStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	return &stripe.Subscription{
		ID:        "sub_1QtTest",
		Status:    status,
		StartDate: periodStart.Unix(),
		Livemode:  true,
		Customer:  &stripe.Customer{ID: "cus_Test"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					CurrentPeriodStart: periodStart.Unix(),
					CurrentPeriodEnd:   periodEnd.Unix(),
					Price: &stripe.Price{
						ID:      "price_premium_monthly",
						Product: &stripe.Product{ID: "prod_premium"},
					},
				},
			},
		},
	}
}

func TestFactsFromSubscription_Active(t *testing.T) {
	facts := FactsFromSubscription(buildSubscription(stripe.SubscriptionStatusActive))

	assert.Equal(t, vo.ProviderStripe, facts.Provider)
	assert.Equal(t, "sub_1QtTest", facts.OriginalTransactionID)
	assert.Equal(t, "cus_Test", facts.CustomerID)
	assert.Equal(t, "prod_premium", facts.ProductID)
	assert.Equal(t, subscription.EnvironmentProduction, facts.Environment)
	require.NotNil(t, facts.AutoRenewStatus)
	assert.True(t, *facts.AutoRenewStatus)
	assert.False(t, facts.InBillingRetryPeriod)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), facts.ExpiresDate)
}

func TestFactsFromSubscription_TrialingMapsToIntroductory(t *testing.T) {
	sub := buildSubscription(stripe.SubscriptionStatusTrialing)
	trialEnd := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	sub.TrialEnd = trialEnd.Unix()

	facts := FactsFromSubscription(sub)

	assert.Equal(t, subscription.OfferIntroductory, facts.OfferType)
	assert.True(t, facts.IsIntroductory())
	assert.True(t, facts.ExpiresDate.Equal(trialEnd))
}

func TestFactsFromSubscription_CancelAtPeriodEndDisablesRenewal(t *testing.T) {
	sub := buildSubscription(stripe.SubscriptionStatusActive)
	sub.CancelAtPeriodEnd = true

	facts := FactsFromSubscription(sub)

	require.NotNil(t, facts.AutoRenewStatus)
	assert.False(t, *facts.AutoRenewStatus)
	assert.True(t, facts.AutoRenewDisabled())
}

func TestFactsFromSubscription_PastDueIsBillingRetry(t *testing.T) {
	facts := FactsFromSubscription(buildSubscription(stripe.SubscriptionStatusPastDue))

	assert.True(t, facts.InBillingRetryPeriod)
}

func TestSubscriptionIDFromInvoice(t *testing.T) {
	id, err := subscriptionIDFromInvoice([]byte(`{"subscription":"sub_123"}`))
	require.NoError(t, err)
	assert.Equal(t, "sub_123", id)

	id, err = subscriptionIDFromInvoice([]byte(`{"parent":{"subscription_details":{"subscription":"sub_456"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "sub_456", id)
}
