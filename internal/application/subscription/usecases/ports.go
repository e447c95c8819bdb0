package usecases

import (
	"context"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
)

// ReceiptVerifier verifies a client-submitted app store receipt and returns
// the normalized facts of the latest transaction.
type ReceiptVerifier interface {
	VerifyReceipt(ctx context.Context, receipt string) (subscription.Facts, error)
}

// PaymentGateway reads and cancels payment-processor subscriptions.
type PaymentGateway interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (subscription.Facts, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// AppStoreEventDecoder verifies and decodes an app store server notification
// body into a provider event.
type AppStoreEventDecoder interface {
	DecodeNotification(body []byte) (*subscription.ProviderEvent, error)
}

// StripeEventDecoder verifies a webhook signature and decodes the delivery
// into a provider event.
type StripeEventDecoder interface {
	Decode(payload []byte, signatureHeader string) (*subscription.ProviderEvent, error)
}

// EntitlementCache mirrors the resolved status for fast entitlement checks.
// Cache failures are never fatal to the flow that writes through it.
type EntitlementCache interface {
	GetStatus(ctx context.Context, userID uint) (vo.Status, bool, error)
	SetStatus(ctx context.Context, userID uint, status vo.Status) error
	Invalidate(ctx context.Context, userID uint) error
}
