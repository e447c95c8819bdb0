package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/infrastructure/persistence/mappers"
	"lumina/internal/infrastructure/persistence/models"
	"lumina/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) GetByUserID(ctx context.Context, userID uint) (*subscription.Record, error) {
	var model models.UserModel

	if err := r.db.WithContext(ctx).First(&model, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get user for subscription read", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get subscription record: %w", err)
	}

	record, err := r.mapper.ToRecord(&model)
	if err != nil {
		r.logger.Errorw("failed to map subscription record", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to map subscription record: %w", err)
	}

	return record, nil
}

func (r *SubscriptionRepositoryImpl) ApplyReconciliation(ctx context.Context, userID uint, rec subscription.Reconciliation) error {
	columns := r.mapper.ReconciliationColumns(rec)

	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(columns)
	if result.Error != nil {
		r.logger.Errorw("failed to apply reconciliation", "user_id", userID, "error", result.Error)
		return fmt.Errorf("%w: %v", subscription.ErrPersistenceFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrRecordNotFound
	}

	r.logger.Infow("subscription reconciled",
		"user_id", userID,
		"provider", rec.Provider.String(),
		"status", rec.Status.String(),
		"rule", rec.ResolvedBy,
	)
	return nil
}

func (r *SubscriptionRepositoryImpl) MarkCancelled(ctx context.Context, userID uint, reason vo.CancellationReason, at time.Time) error {
	columns := r.mapper.CancellationColumns(reason, at)

	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(columns)
	if result.Error != nil {
		r.logger.Errorw("failed to mark subscription cancelled", "user_id", userID, "error", result.Error)
		return fmt.Errorf("%w: %v", subscription.ErrPersistenceFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrRecordNotFound
	}

	return nil
}

func (r *SubscriptionRepositoryImpl) MarkExpired(ctx context.Context, userID uint, at time.Time) error {
	columns := r.mapper.ExpiryColumns(at)

	result := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(columns)
	if result.Error != nil {
		r.logger.Errorw("failed to mark subscription expired", "user_id", userID, "error", result.Error)
		return fmt.Errorf("%w: %v", subscription.ErrPersistenceFailed, result.Error)
	}
	if result.RowsAffected == 0 {
		return subscription.ErrRecordNotFound
	}

	return nil
}

// FindUserIDByProviderTransaction is the slow-path lookup against the
// provider identifier columns, used when the transaction mapping is absent.
func (r *SubscriptionRepositoryImpl) FindUserIDByProviderTransaction(ctx context.Context, provider vo.Provider, originalTransactionID string) (uint, error) {
	if originalTransactionID == "" {
		return 0, nil
	}

	var column string
	switch provider {
	case vo.ProviderApple:
		column = "subscription_apple_original_transaction_id"
	case vo.ProviderGoogle:
		column = "subscription_google_order_id"
	case vo.ProviderStripe:
		column = "subscription_stripe_subscription_id"
	default:
		return 0, nil
	}

	var model models.UserModel
	err := r.db.WithContext(ctx).
		Select("id").
		Where(fmt.Sprintf("%s = ?", column), originalTransactionID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		r.logger.Errorw("failed to query user by provider transaction",
			"provider", provider.String(), "transaction_id", originalTransactionID, "error", err)
		return 0, fmt.Errorf("failed to query user by provider transaction: %w", err)
	}

	return model.ID, nil
}

func (r *SubscriptionRepositoryImpl) FindUserIDByAccountToken(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, nil
	}

	var model models.UserModel
	err := r.db.WithContext(ctx).
		Select("id").
		Where("account_token = ?", token).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		r.logger.Errorw("failed to query user by account token", "error", err)
		return 0, fmt.Errorf("failed to query user by account token: %w", err)
	}

	return model.ID, nil
}

func (r *SubscriptionRepositoryImpl) ListLapsed(ctx context.Context, now time.Time, limit int) ([]*subscription.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	var userModels []*models.UserModel
	err := r.db.WithContext(ctx).
		Where("subscription_status IN ?", []string{
			vo.StatusActive.String(), vo.StatusTrial.String(), vo.StatusGracePeriod.String(), vo.StatusCancelled.String(),
		}).
		Where("subscription_billing_period <> ?", vo.PeriodLifetime.String()).
		Where("subscription_current_period_end IS NOT NULL AND subscription_current_period_end <= ?", now).
		Limit(limit).
		Find(&userModels).Error
	if err != nil {
		r.logger.Errorw("failed to list lapsed subscriptions", "error", err)
		return nil, fmt.Errorf("failed to list lapsed subscriptions: %w", err)
	}

	records := make([]*subscription.Record, 0, len(userModels))
	for _, model := range userModels {
		record, err := r.mapper.ToRecord(model)
		if err != nil {
			r.logger.Errorw("failed to map lapsed subscription", "user_id", model.ID, "error", err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func (r *SubscriptionRepositoryImpl) ListExpiringSoon(ctx context.Context, now time.Time, within time.Duration, limit int) ([]*subscription.Record, error) {
	if limit <= 0 {
		limit = 100
	}

	var userModels []*models.UserModel
	err := r.db.WithContext(ctx).
		Where("subscription_status IN ?", []string{
			vo.StatusActive.String(), vo.StatusTrial.String(), vo.StatusCancelled.String(),
		}).
		Where("subscription_billing_period <> ?", vo.PeriodLifetime.String()).
		Where("subscription_current_period_end > ? AND subscription_current_period_end <= ?", now, now.Add(within)).
		Limit(limit).
		Find(&userModels).Error
	if err != nil {
		r.logger.Errorw("failed to list expiring subscriptions", "error", err)
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}

	records := make([]*subscription.Record, 0, len(userModels))
	for _, model := range userModels {
		record, err := r.mapper.ToRecord(model)
		if err != nil {
			r.logger.Errorw("failed to map expiring subscription", "user_id", model.ID, "error", err)
			continue
		}
		records = append(records, record)
	}

	return records, nil
}
