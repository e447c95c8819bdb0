package stripegw

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/config"
	"lumina/internal/shared/logger"
)

// Gateway wraps the Stripe API for subscription reads and remote
// cancellation during provider migration.
type Gateway struct {
	client *stripe.Client
	logger logger.Interface
}

func NewGateway(cfg *config.StripeConfig, log logger.Interface) *Gateway {
	return &Gateway{
		client: stripe.NewClient(cfg.APIKey),
		logger: log.With("component", "stripe.gateway"),
	}
}

// FetchSubscription retrieves a subscription and normalizes it into facts.
func (g *Gateway) FetchSubscription(ctx context.Context, subscriptionID string) (subscription.Facts, error) {
	params := &stripe.SubscriptionRetrieveParams{
		Expand: []*string{
			stripe.String("customer"),
			stripe.String("items.data.price.product"),
		},
	}

	sub, err := g.client.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err != nil {
		g.logger.Errorw("failed to fetch stripe subscription", "subscription_id", subscriptionID, "error", err)
		return subscription.Facts{}, fmt.Errorf("%w: %v", subscription.ErrVendorUnavailable, err)
	}

	return FactsFromSubscription(sub), nil
}

// CancelSubscription cancels a subscription immediately. Used when the user
// switches to an app store provider so they are not double billed.
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := g.client.V1Subscriptions.Cancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		g.logger.Errorw("failed to cancel stripe subscription", "subscription_id", subscriptionID, "error", err)
		return fmt.Errorf("failed to cancel stripe subscription: %w", err)
	}

	g.logger.Infow("stripe subscription cancelled remotely", "subscription_id", subscriptionID)
	return nil
}

// FactsFromSubscription maps a Stripe subscription object onto the
// normalized fact set the resolver consumes.
func FactsFromSubscription(sub *stripe.Subscription) subscription.Facts {
	facts := subscription.Facts{
		Provider:              vo.ProviderStripe,
		TransactionID:         sub.ID,
		OriginalTransactionID: sub.ID,
		PurchaseDate:          biztime.FromUnixMillis(sub.StartDate * 1000),
		Environment:           environmentFor(sub),
	}

	if sub.Customer != nil {
		facts.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			facts.ProductID = item.Price.ID
			if item.Price.Product != nil {
				facts.ProductID = item.Price.Product.ID
			}
		}
		if item.CurrentPeriodEnd != 0 {
			facts.ExpiresDate = biztime.FromUnixMillis(item.CurrentPeriodEnd * 1000)
		}
		if item.CurrentPeriodStart != 0 {
			facts.PurchaseDate = biztime.FromUnixMillis(item.CurrentPeriodStart * 1000)
		}
	}

	// Trialing shows up to the app as a trial, same as an introductory
	// offer on the app store side.
	if sub.Status == stripe.SubscriptionStatusTrialing {
		facts.OfferType = subscription.OfferIntroductory
		if sub.TrialEnd != 0 {
			facts.ExpiresDate = biztime.FromUnixMillis(sub.TrialEnd * 1000)
		}
	}

	autoRenew := !sub.CancelAtPeriodEnd && sub.Status != stripe.SubscriptionStatusCanceled
	facts.AutoRenewStatus = &autoRenew

	if sub.Status == stripe.SubscriptionStatusPastDue {
		facts.InBillingRetryPeriod = true
	}

	return facts
}

func environmentFor(sub *stripe.Subscription) subscription.Environment {
	if sub.Livemode {
		return subscription.EnvironmentProduction
	}
	return subscription.EnvironmentSandbox
}
