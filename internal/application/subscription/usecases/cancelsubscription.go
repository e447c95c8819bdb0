package usecases

import (
	"context"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

// CancelSubscriptionUseCase handles a user-requested cancellation. Access
// keeps running until the paid period ends; only the expiry sweep or a
// vendor event moves the record to expired.
type CancelSubscriptionUseCase struct {
	paymentGateway   PaymentGateway
	subscriptionRepo subscription.Repository
	cache            EntitlementCache
	logger           logger.Interface
}

func NewCancelSubscriptionUseCase(
	paymentGateway PaymentGateway,
	subscriptionRepo subscription.Repository,
	cache EntitlementCache,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		paymentGateway:   paymentGateway,
		subscriptionRepo: subscriptionRepo,
		cache:            cache,
		logger:           logger,
	}
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, userID uint, reason vo.CancellationReason) (*SubscriptionDTO, error) {
	record, err := uc.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, subscription.ErrUserNotFound
	}

	if record.Status().IsTerminal() {
		return DTOFromRecord(record), nil
	}

	if record.Provider().SupportsRemoteCancel() {
		subscriptionID, err := record.StripeSubscriptionID()
		if err == nil && subscriptionID != "" {
			if err := uc.paymentGateway.CancelSubscription(ctx, subscriptionID); err != nil {
				// The local record still moves to cancelled; the remote
				// subscription needs manual follow-up.
				uc.logger.Errorw("remote cancellation failed",
					"user_id", userID,
					"subscription_id", subscriptionID,
					"error", err,
				)
			}
		}
	}

	now := biztime.NowUTC()
	if err := uc.subscriptionRepo.MarkCancelled(ctx, userID, reason, now); err != nil {
		return nil, err
	}

	if err := uc.cache.Invalidate(ctx, userID); err != nil {
		uc.logger.Warnw("failed to invalidate entitlement cache", "user_id", userID, "error", err)
	}

	updated, err := uc.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil || updated == nil {
		// The write is durable; answer from the pre-cancel record with the
		// status flipped.
		uc.logger.Warnw("failed to reload record after cancellation", "user_id", userID, "error", err)
		dto := DTOFromRecord(record)
		dto.Status = vo.StatusCancelled.String()
		dto.CanUseService = vo.StatusCancelled.CanUseService()
		return dto, nil
	}

	return DTOFromRecord(updated), nil
}
