package usecases

import (
	"context"
	"strconv"
	"time"

	"lumina/internal/domain/notification"
	"lumina/internal/domain/user"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

// SendPurchaseNoticesUseCase mails the transactional notices after a
// verified purchase: the confirmation, and the migration notice when the
// purchase switched billing providers. Everything here is best effort; the
// purchase is already durable.
type SendPurchaseNoticesUseCase struct {
	userRepo user.Repository
	logRepo  notification.LogRepository
	emailer  EmailSender
	tracker  EventTracker
	logger   logger.Interface
}

func NewSendPurchaseNoticesUseCase(
	userRepo user.Repository,
	logRepo notification.LogRepository,
	emailer EmailSender,
	tracker EventTracker,
	log logger.Interface,
) *SendPurchaseNoticesUseCase {
	return &SendPurchaseNoticesUseCase{
		userRepo: userRepo,
		logRepo:  logRepo,
		emailer:  emailer,
		tracker:  tracker,
		logger:   log,
	}
}

// Execute sends the confirmation for productName, plus a migration notice
// when migratedFrom names the retired provider.
func (uc *SendPurchaseNoticesUseCase) Execute(ctx context.Context, userID uint, productName, migratedFrom string) {
	u, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		uc.logger.Warnw("failed to load user for purchase notices", "user_id", userID, "error", err)
		return
	}
	if u.EmailUnsubscribed() || u.Email() == "" {
		return
	}

	now := biztime.NowUTC()

	if err := uc.emailer.SendPurchaseConfirmationEmail(u.Email(), u.DisplayName(), productName); err != nil {
		uc.logger.Errorw("failed to send purchase confirmation", "user_id", userID, "error", err)
	} else {
		uc.record(ctx, userID, notification.KindPurchaseConfirmation, productName, now)
	}

	if migratedFrom != "" {
		if err := uc.emailer.SendMigrationNoticeEmail(u.Email(), u.DisplayName(), migratedFrom); err != nil {
			uc.logger.Errorw("failed to send migration notice", "user_id", userID, "error", err)
		} else {
			uc.record(ctx, userID, notification.KindMigrationNotice, migratedFrom, now)
		}
	}
}

func (uc *SendPurchaseNoticesUseCase) record(ctx context.Context, userID uint, kind, subject string, now time.Time) {
	if err := uc.logRepo.Record(ctx, &notification.LogEntry{
		UserID:  userID,
		Channel: notification.ChannelEmail,
		Kind:    kind,
		Subject: subject,
		SentAt:  now,
	}); err != nil {
		uc.logger.Errorw("failed to record notice delivery", "user_id", userID, "kind", kind, "error", err)
	}

	uc.tracker.Track(ctx, strconv.FormatUint(uint64(userID), 10), "notification_sent", map[string]interface{}{
		"kind":    kind,
		"channel": notification.ChannelEmail,
	})
}
