package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/infrastructure/persistence/models"
	"lumina/internal/shared/logger"
)

type TransactionMappingRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewTransactionMappingRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.TransactionMappingRepository {
	return &TransactionMappingRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Upsert records a provider transaction to user association. Replays of the
// same transaction are ignored so verification retries stay idempotent.
func (r *TransactionMappingRepositoryImpl) Upsert(ctx context.Context, mapping subscription.TransactionMapping) error {
	model := &models.TransactionMappingModel{
		UserID:                mapping.UserID,
		Provider:              mapping.Provider.String(),
		TransactionID:         mapping.TransactionID,
		OriginalTransactionID: mapping.OriginalTransactionID,
		ProductID:             mapping.ProductID,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert transaction mapping",
			"user_id", mapping.UserID,
			"provider", mapping.Provider.String(),
			"transaction_id", mapping.TransactionID,
			"error", err,
		)
		return fmt.Errorf("failed to upsert transaction mapping: %w", err)
	}

	return nil
}

func (r *TransactionMappingRepositoryImpl) FindUserID(ctx context.Context, provider vo.Provider, transactionID string) (uint, error) {
	if transactionID == "" {
		return 0, nil
	}

	var model models.TransactionMappingModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND (transaction_id = ? OR original_transaction_id = ?)",
			provider.String(), transactionID, transactionID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		r.logger.Errorw("failed to find user by transaction mapping",
			"provider", provider.String(), "transaction_id", transactionID, "error", err)
		return 0, fmt.Errorf("failed to find user by transaction mapping: %w", err)
	}

	return model.UserID, nil
}
