package stripegw

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/config"
	"lumina/internal/shared/logger"
)

// Event types this service reacts to. Everything else is acknowledged and
// ignored.
const (
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// WebhookDecoder verifies Stripe webhook signatures and normalizes the
// deliveries this service handles into provider events.
type WebhookDecoder struct {
	secret string
	logger logger.Interface
}

func NewWebhookDecoder(cfg *config.StripeConfig, log logger.Interface) *WebhookDecoder {
	return &WebhookDecoder{
		secret: cfg.WebhookSecret,
		logger: log.With("component", "stripe.webhook"),
	}
}

// Decode verifies the signature header and returns the normalized event.
// Signature failures surface as ErrVerificationFailed. Subscription events
// carry full facts; invoice events only reference the subscription, so the
// router refetches it for fresh state.
func (d *WebhookDecoder) Decode(payload []byte, signatureHeader string) (*subscription.ProviderEvent, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, d.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", subscription.ErrVerificationFailed, err)
	}

	event := &subscription.ProviderEvent{
		Provider:  vo.ProviderStripe,
		EventID:   stripeEvent.ID,
		EventType: string(stripeEvent.Type),
		Payload:   payload,
	}

	switch event.EventType {
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(stripeEvent.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription object: %w", err)
		}
		facts := FactsFromSubscription(&sub)
		event.Facts = &facts
		event.SubscriptionRef = sub.ID

	case EventInvoicePaymentFailed:
		subscriptionID, err := subscriptionIDFromInvoice(stripeEvent.Data.Raw)
		if err != nil {
			return nil, err
		}
		event.SubscriptionRef = subscriptionID
	}

	return event, nil
}

// subscriptionIDFromInvoice digs the subscription reference out of an
// invoice payload. Newer API versions nest it under parent details, older
// ones carry it at the top level.
func subscriptionIDFromInvoice(raw []byte) (string, error) {
	var invoice struct {
		Subscription string `json:"subscription"`
		Parent       struct {
			SubscriptionDetails struct {
				Subscription string `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
	}
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return "", fmt.Errorf("failed to decode invoice object: %w", err)
	}

	if invoice.Subscription != "" {
		return invoice.Subscription, nil
	}
	return invoice.Parent.SubscriptionDetails.Subscription, nil
}
