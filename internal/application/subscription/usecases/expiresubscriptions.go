package usecases

import (
	"context"

	"lumina/internal/domain/subscription"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

const defaultExpiryBatchSize = 100

// ExpireSubscriptionsUseCase is the sweep behind the scheduler: records
// whose paid period lapsed without a terminal vendor event are moved to
// expired. Per-record failures are logged and skipped so one bad row cannot
// stall the batch.
type ExpireSubscriptionsUseCase struct {
	subscriptionRepo subscription.Repository
	cache            EntitlementCache
	logger           logger.Interface
}

func NewExpireSubscriptionsUseCase(
	subscriptionRepo subscription.Repository,
	cache EntitlementCache,
	logger logger.Interface,
) *ExpireSubscriptionsUseCase {
	return &ExpireSubscriptionsUseCase{
		subscriptionRepo: subscriptionRepo,
		cache:            cache,
		logger:           logger,
	}
}

// Execute runs one sweep and returns the users whose records were expired.
func (uc *ExpireSubscriptionsUseCase) Execute(ctx context.Context) ([]uint, error) {
	now := biztime.NowUTC()

	records, err := uc.subscriptionRepo.ListLapsed(ctx, now, defaultExpiryBatchSize)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	expired := make([]uint, 0, len(records))
	for _, record := range records {
		if !record.HasLapsed(now) {
			continue
		}

		if err := uc.subscriptionRepo.MarkExpired(ctx, record.UserID(), now); err != nil {
			uc.logger.Errorw("failed to expire lapsed subscription",
				"user_id", record.UserID(), "error", err)
			continue
		}

		if err := uc.cache.Invalidate(ctx, record.UserID()); err != nil {
			uc.logger.Warnw("failed to invalidate entitlement cache",
				"user_id", record.UserID(), "error", err)
		}

		expired = append(expired, record.UserID())
	}

	uc.logger.Infow("expiry sweep finished",
		"scanned", len(records), "expired", len(expired))

	return expired, nil
}
