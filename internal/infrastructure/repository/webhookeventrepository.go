package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/infrastructure/persistence/models"
	sharedErrors "lumina/internal/shared/errors"
	"lumina/internal/shared/id"
	"lumina/internal/shared/logger"
)

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewWebhookEventRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Record persists the incoming event before any handling happens. The unique
// (provider, event_id) index is the dedup ledger: a replayed delivery trips
// the constraint and comes back as ErrDuplicateEvent.
func (r *WebhookEventRepositoryImpl) Record(ctx context.Context, event *subscription.WebhookEvent) error {
	sid, err := id.GenerateWithPrefix(id.PrefixWebhookEvent, id.DefaultLength)
	if err != nil {
		return fmt.Errorf("failed to generate webhook event id: %w", err)
	}

	model := &models.WebhookEventModel{
		SID:       sid,
		Provider:  event.Provider.String(),
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   event.Payload,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if sharedErrors.IsDuplicateError(err) {
			return subscription.ErrDuplicateEvent
		}
		r.logger.Errorw("failed to record webhook event",
			"provider", event.Provider.String(), "event_id", event.EventID, "error", err)
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	return nil
}

func (r *WebhookEventRepositoryImpl) MarkProcessed(ctx context.Context, provider vo.Provider, eventID string, processingErr error) error {
	columns := map[string]interface{}{
		"processed_at": time.Now().UTC(),
	}
	if processingErr != nil {
		columns["processing_error"] = processingErr.Error()
	}

	err := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("provider = ? AND event_id = ?", provider.String(), eventID).
		Updates(columns).Error
	if err != nil {
		r.logger.Errorw("failed to mark webhook event processed",
			"provider", provider.String(), "event_id", eventID, "error", err)
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}

	return nil
}
