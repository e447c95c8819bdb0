package usecases

import (
	"context"
	"errors"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

// Notification types that need special routing. Everything else goes through
// the default full-reconciliation path, which is safe because resolution is
// idempotent over the facts.
const (
	appStoreRenewalStatusChanged = "DID_CHANGE_RENEWAL_STATUS"
	appStoreTestNotification     = "TEST"
)

// EventRouterUseCase is the asynchronous, vendor-initiated path: decode and
// verify the delivery, dedup it, resolve the owning user, and apply the
// minimal state mutation for the event. Callers always acknowledge the
// vendor regardless of the returned error; the error only drives logging
// and the processing ledger.
type EventRouterUseCase struct {
	appleDecoder     AppStoreEventDecoder
	stripeDecoder    StripeEventDecoder
	paymentGateway   PaymentGateway
	subscriptionRepo subscription.Repository
	mappingRepo      subscription.TransactionMappingRepository
	webhookEventRepo subscription.WebhookEventRepository
	lookup           *UserLookup
	cache            EntitlementCache
	logger           logger.Interface
}

func NewEventRouterUseCase(
	appleDecoder AppStoreEventDecoder,
	stripeDecoder StripeEventDecoder,
	paymentGateway PaymentGateway,
	subscriptionRepo subscription.Repository,
	mappingRepo subscription.TransactionMappingRepository,
	webhookEventRepo subscription.WebhookEventRepository,
	lookup *UserLookup,
	cache EntitlementCache,
	logger logger.Interface,
) *EventRouterUseCase {
	return &EventRouterUseCase{
		appleDecoder:     appleDecoder,
		stripeDecoder:    stripeDecoder,
		paymentGateway:   paymentGateway,
		subscriptionRepo: subscriptionRepo,
		mappingRepo:      mappingRepo,
		webhookEventRepo: webhookEventRepo,
		lookup:           lookup,
		cache:            cache,
		logger:           logger,
	}
}

// HandleAppStoreNotification processes one App Store Server Notifications V2
// delivery.
func (uc *EventRouterUseCase) HandleAppStoreNotification(ctx context.Context, body []byte) error {
	event, err := uc.appleDecoder.DecodeNotification(body)
	if err != nil {
		return err
	}

	if event.EventType == appStoreTestNotification {
		uc.logger.Infow("app store test notification received")
		return nil
	}

	return uc.process(ctx, event)
}

// HandleStripeEvent processes one Stripe webhook delivery.
func (uc *EventRouterUseCase) HandleStripeEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := uc.stripeDecoder.Decode(payload, signatureHeader)
	if err != nil {
		return err
	}

	// Invoice events only reference the subscription; fetch it so the
	// reconciliation runs over current state rather than the event snapshot.
	if event.Facts == nil && event.SubscriptionRef != "" {
		facts, err := uc.paymentGateway.FetchSubscription(ctx, event.SubscriptionRef)
		if err != nil {
			return err
		}
		event.Facts = &facts
	}

	return uc.process(ctx, event)
}

func (uc *EventRouterUseCase) process(ctx context.Context, event *subscription.ProviderEvent) error {
	if event.Facts == nil {
		uc.logger.Infow("event carries no subscription state, ignoring",
			"provider", event.Provider.String(),
			"event_type", event.EventType,
		)
		return nil
	}

	if err := uc.recordDelivery(ctx, event); err != nil {
		if errors.Is(err, subscription.ErrDuplicateEvent) {
			uc.logger.Infow("duplicate delivery skipped",
				"provider", event.Provider.String(),
				"event_id", event.EventID,
			)
			return nil
		}
		// A failed ledger write is not fatal: reprocessing is idempotent,
		// losing the event is not.
		uc.logger.Warnw("failed to record webhook delivery, processing anyway",
			"provider", event.Provider.String(),
			"event_id", event.EventID,
			"error", err,
		)
	}

	userID, strategy, err := uc.lookup.Resolve(ctx, *event.Facts)
	if err != nil {
		uc.markProcessed(ctx, event, err)
		return err
	}
	if userID == 0 {
		uc.logger.Warnw("no user for event, dropping",
			"provider", event.Provider.String(),
			"event_type", event.EventType,
			"transaction_id", event.Facts.OriginalTransactionID,
			"error", subscription.ErrUserNotFound,
		)
		uc.markProcessed(ctx, event, nil)
		return nil
	}

	procErr := uc.dispatch(ctx, userID, event)
	uc.markProcessed(ctx, event, procErr)

	if procErr == nil {
		uc.logger.Infow("event processed",
			"provider", event.Provider.String(),
			"event_type", event.EventType,
			"user_id", userID,
			"lookup_strategy", strategy,
		)
	}

	return procErr
}

func (uc *EventRouterUseCase) dispatch(ctx context.Context, userID uint, event *subscription.ProviderEvent) error {
	if event.EventType == appStoreRenewalStatusChanged {
		return uc.applyRenewalStatusChange(ctx, userID, *event.Facts)
	}
	return uc.applyFacts(ctx, userID, *event.Facts)
}

// applyRenewalStatusChange only flips between active and cancelled. A trial
// or terminal record is left alone: toggling auto-renew must not grant or
// revoke access on its own.
func (uc *EventRouterUseCase) applyRenewalStatusChange(ctx context.Context, userID uint, facts subscription.Facts) error {
	record, err := uc.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return subscription.ErrUserNotFound
	}

	current := record.Status()
	if current != vo.StatusActive && current != vo.StatusCancelled {
		uc.logger.Infow("renewal status change does not apply to current status, skipping",
			"user_id", userID, "status", current.String())
		return nil
	}

	rec := subscription.NewReconciliation(facts, biztime.NowUTC())
	if rec.Status != vo.StatusActive && rec.Status != vo.StatusCancelled {
		uc.logger.Infow("renewal status change resolved outside active/cancelled, skipping",
			"user_id", userID, "resolved", rec.Status.String(), "rule", rec.ResolvedBy)
		return nil
	}

	return uc.persist(ctx, userID, rec, facts)
}

// applyFacts runs the default full reconciliation for an event.
func (uc *EventRouterUseCase) applyFacts(ctx context.Context, userID uint, facts subscription.Facts) error {
	rec := subscription.NewReconciliation(facts, biztime.NowUTC())
	return uc.persist(ctx, userID, rec, facts)
}

func (uc *EventRouterUseCase) persist(ctx context.Context, userID uint, rec subscription.Reconciliation, facts subscription.Facts) error {
	if err := uc.subscriptionRepo.ApplyReconciliation(ctx, userID, rec); err != nil {
		return err
	}

	if err := uc.mappingRepo.Upsert(ctx, subscription.TransactionMapping{
		Provider:              facts.Provider,
		TransactionID:         facts.TransactionID,
		OriginalTransactionID: facts.OriginalTransactionID,
		ProductID:             facts.ProductID,
		UserID:                userID,
	}); err != nil {
		uc.logger.Warnw("failed to upsert transaction mapping", "user_id", userID, "error", err)
	}

	if err := uc.cache.Invalidate(ctx, userID); err != nil {
		uc.logger.Warnw("failed to invalidate entitlement cache", "user_id", userID, "error", err)
	}

	return nil
}

func (uc *EventRouterUseCase) recordDelivery(ctx context.Context, event *subscription.ProviderEvent) error {
	return uc.webhookEventRepo.Record(ctx, &subscription.WebhookEvent{
		Provider:  event.Provider,
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   event.Payload,
	})
}

func (uc *EventRouterUseCase) markProcessed(ctx context.Context, event *subscription.ProviderEvent, procErr error) {
	if err := uc.webhookEventRepo.MarkProcessed(ctx, event.Provider, event.EventID, procErr); err != nil {
		uc.logger.Warnw("failed to mark event processed",
			"provider", event.Provider.String(),
			"event_id", event.EventID,
			"error", err,
		)
	}
}
