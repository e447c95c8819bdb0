package usecases

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lumina/internal/domain/notification"
	"lumina/internal/domain/subscription"
	"lumina/internal/domain/user"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

const defaultReminderDays = 3

// SendExpiryReminderUseCase mails users whose paid period ends soon. One
// reminder per billing period: a reminder already sent after the current
// period started suppresses the next.
type SendExpiryReminderUseCase struct {
	subscriptionRepo subscription.Repository
	userRepo         user.Repository
	logRepo          notification.LogRepository
	emailer          EmailSender
	tracker          EventTracker
	reminderDays     int
	logger           logger.Interface
}

func NewSendExpiryReminderUseCase(
	subscriptionRepo subscription.Repository,
	userRepo user.Repository,
	logRepo notification.LogRepository,
	emailer EmailSender,
	tracker EventTracker,
	reminderDays int,
	log logger.Interface,
) *SendExpiryReminderUseCase {
	if reminderDays <= 0 {
		reminderDays = defaultReminderDays
	}

	return &SendExpiryReminderUseCase{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		logRepo:          logRepo,
		emailer:          emailer,
		tracker:          tracker,
		reminderDays:     reminderDays,
		logger:           log,
	}
}

// Execute runs one reminder sweep and returns how many reminders went out.
func (uc *SendExpiryReminderUseCase) Execute(ctx context.Context) (int, error) {
	now := biztime.NowUTC()
	window := time.Duration(uc.reminderDays) * 24 * time.Hour

	records, err := uc.subscriptionRepo.ListExpiringSoon(ctx, now, window, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}

	sent := 0
	for _, record := range records {
		if uc.remind(ctx, record, now) {
			sent++
		}
	}

	if sent > 0 {
		uc.logger.Infow("expiry reminders sent", "count", sent)
	}
	return sent, nil
}

func (uc *SendExpiryReminderUseCase) remind(ctx context.Context, record *subscription.Record, now time.Time) bool {
	u, err := uc.userRepo.GetByID(ctx, record.UserID())
	if err != nil || u == nil {
		uc.logger.Warnw("failed to load user for expiry reminder", "user_id", record.UserID(), "error", err)
		return false
	}
	if u.EmailUnsubscribed() || u.Email() == "" {
		return false
	}

	state, err := uc.logRepo.DeliveryState(ctx, u.ID(), notification.KindExpiryReminder)
	if err != nil {
		uc.logger.Errorw("failed to load reminder state", "user_id", u.ID(), "error", err)
		return false
	}
	if state.LastSentAt != nil && state.LastSentAt.After(record.CurrentPeriodStart()) {
		// Already reminded during this billing period.
		return false
	}

	daysLeft := int(record.CurrentPeriodEnd().Sub(now).Hours()/24) + 1

	if err := uc.emailer.SendExpiryReminderEmail(u.Email(), u.DisplayName(), daysLeft); err != nil {
		uc.logger.Errorw("failed to send expiry reminder", "user_id", u.ID(), "error", err)
		return false
	}

	if err := uc.logRepo.Record(ctx, &notification.LogEntry{
		UserID:  u.ID(),
		Channel: notification.ChannelEmail,
		Kind:    notification.KindExpiryReminder,
		Subject: fmt.Sprintf("subscription expires in %d days", daysLeft),
		SentAt:  now,
	}); err != nil {
		uc.logger.Errorw("failed to record expiry reminder", "user_id", u.ID(), "error", err)
	}

	uc.tracker.Track(ctx, strconv.FormatUint(uint64(u.ID()), 10), "notification_sent", map[string]interface{}{
		"kind":      notification.KindExpiryReminder,
		"channel":   notification.ChannelEmail,
		"days_left": daysLeft,
	})

	return true
}
