package usecases

import (
	"context"

	"lumina/internal/domain/subscription"
	"lumina/internal/shared/logger"
)

// GetSubscriptionUseCase serves the read path: the full record projection
// for the API, and a cached status check for feature gating.
type GetSubscriptionUseCase struct {
	subscriptionRepo subscription.Repository
	cache            EntitlementCache
	logger           logger.Interface
}

func NewGetSubscriptionUseCase(
	subscriptionRepo subscription.Repository,
	cache EntitlementCache,
	logger logger.Interface,
) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		cache:            cache,
		logger:           logger,
	}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, userID uint) (*SubscriptionDTO, error) {
	record, err := uc.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, subscription.ErrUserNotFound
	}

	if err := uc.cache.SetStatus(ctx, userID, record.Status()); err != nil {
		uc.logger.Warnw("failed to refresh entitlement cache", "user_id", userID, "error", err)
	}

	return DTOFromRecord(record), nil
}

// CanUseService answers the feature gate. The cache is consulted first; on
// a miss the record is loaded and the cache refilled. Cache failures fall
// through to the database, never to a denial.
func (uc *GetSubscriptionUseCase) CanUseService(ctx context.Context, userID uint) (bool, error) {
	status, found, err := uc.cache.GetStatus(ctx, userID)
	if err != nil {
		uc.logger.Warnw("entitlement cache read failed", "user_id", userID, "error", err)
	}
	if found {
		return status.CanUseService(), nil
	}

	record, err := uc.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, subscription.ErrUserNotFound
	}

	if err := uc.cache.SetStatus(ctx, userID, record.Status()); err != nil {
		uc.logger.Warnw("failed to refresh entitlement cache", "user_id", userID, "error", err)
	}

	return record.Status().CanUseService(), nil
}
