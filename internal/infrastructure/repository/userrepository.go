package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lumina/internal/domain/user"
	"lumina/internal/infrastructure/persistence/models"
	"lumina/internal/shared/logger"
)

type UserRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserRepository(db *gorm.DB, logger logger.Interface) user.Repository {
	return &UserRepositoryImpl{db: db, logger: logger}
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uint) (*user.User, error) {
	var model models.UserModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUser(&model), nil
}

func (r *UserRepositoryImpl) ListDigestCandidates(ctx context.Context, limit, offset int) ([]*user.User, error) {
	if limit <= 0 {
		limit = 100
	}

	var userModels []*models.UserModel
	err := r.db.WithContext(ctx).
		Where("email_unsubscribed = ?", false).
		Where("email <> ''").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&userModels).Error
	if err != nil {
		r.logger.Errorw("failed to list digest candidates", "error", err)
		return nil, fmt.Errorf("failed to list digest candidates: %w", err)
	}

	users := make([]*user.User, 0, len(userModels))
	for _, model := range userModels {
		users = append(users, toUser(model))
	}

	return users, nil
}

func toUser(model *models.UserModel) *user.User {
	return user.ReconstructUser(user.UserParams{
		ID:                model.ID,
		SID:               model.SID,
		Email:             model.Email,
		DisplayName:       model.DisplayName,
		EmailUnsubscribed: model.EmailUnsubscribed,
		AccountToken:      model.AccountToken,
		LastActivityAt:    model.LastActivityAt,
		CreatedAt:         model.CreatedAt,
	})
}
