package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"lumina/internal/domain/notification"
	"lumina/internal/infrastructure/persistence/models"
	"lumina/internal/shared/id"
	"lumina/internal/shared/logger"
)

type NotificationLogRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewNotificationLogRepository(
	db *gorm.DB,
	logger logger.Interface,
) notification.LogRepository {
	return &NotificationLogRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *NotificationLogRepositoryImpl) DeliveryState(ctx context.Context, userID uint, kind string) (notification.DeliveryState, error) {
	var state notification.DeliveryState

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.NotificationLogModel{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Count(&count).Error
	if err != nil {
		r.logger.Errorw("failed to count notification log",
			"user_id", userID, "kind", kind, "error", err)
		return state, fmt.Errorf("failed to count notification log: %w", err)
	}
	state.Count = int(count)

	if count == 0 {
		return state, nil
	}

	var last models.NotificationLogModel
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		Order("sent_at DESC").
		First(&last).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return state, nil
		}
		r.logger.Errorw("failed to load last notification",
			"user_id", userID, "kind", kind, "error", err)
		return state, fmt.Errorf("failed to load last notification: %w", err)
	}

	sentAt := last.SentAt
	state.LastSentAt = &sentAt
	return state, nil
}

func (r *NotificationLogRepositoryImpl) Record(ctx context.Context, entry *notification.LogEntry) error {
	sid, err := id.GenerateWithPrefix(id.PrefixNotification, id.DefaultLength)
	if err != nil {
		return fmt.Errorf("failed to generate notification id: %w", err)
	}

	model := &models.NotificationLogModel{
		SID:     sid,
		UserID:  entry.UserID,
		Channel: entry.Channel,
		Kind:    entry.Kind,
		Subject: entry.Subject,
		SentAt:  entry.SentAt,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to record notification",
			"user_id", entry.UserID, "kind", entry.Kind, "error", err)
		return fmt.Errorf("failed to record notification: %w", err)
	}

	return nil
}
