package usecases

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lumina/internal/domain/notification"
	"lumina/internal/domain/user"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/budget"
	"lumina/internal/shared/logger"
)

const digestPageSize = 200

// digestSystemPrompt steers content generation per category. The model gets
// the category and user context and returns subject plus markdown body.
var digestSystemPrompts = map[notification.Category]string{
	notification.CategoryEmailOnly: "You write a short, warm onboarding email nudging a user who signed up " +
		"but has not opened the app yet. Mention one concrete thing they can do first.",
	notification.CategoryNewUser: "You write a short email for a user in their first two weeks. " +
		"Highlight one feature they have not tried and keep it under 120 words.",
	notification.CategoryActive: "You write a short digest email for a regular user. " +
		"Keep it friendly and under 120 words.",
	notification.CategoryInactive: "You write a short re-engagement email for a user who has not opened " +
		"the app in a while. No guilt-tripping; one clear reason to come back.",
}

// SendDigestUseCase runs the periodic digest sweep: bucket every mailable
// user, apply the category's progressive schedule against the delivery log,
// generate content and send. Per-user failures are logged and skipped.
type SendDigestUseCase struct {
	userRepo  user.Repository
	logRepo   notification.LogRepository
	generator ContentGenerator
	emailer   EmailSender
	tracker   EventTracker
	windows   notification.Windows
	logger    logger.Interface
}

func NewSendDigestUseCase(
	userRepo user.Repository,
	logRepo notification.LogRepository,
	generator ContentGenerator,
	emailer EmailSender,
	tracker EventTracker,
	windows notification.Windows,
	log logger.Interface,
) *SendDigestUseCase {
	if windows.NewUserDays == 0 {
		windows.NewUserDays = notification.DefaultWindows.NewUserDays
	}
	if windows.InactiveAfterDays == 0 {
		windows.InactiveAfterDays = notification.DefaultWindows.InactiveAfterDays
	}

	return &SendDigestUseCase{
		userRepo:  userRepo,
		logRepo:   logRepo,
		generator: generator,
		emailer:   emailer,
		tracker:   tracker,
		windows:   windows,
		logger:    log,
	}
}

// Execute runs one sweep and returns how many digests went out. The monitor
// bounds the run: once the budget is nearly spent the sweep stops early and
// the next run picks up the remaining users.
func (uc *SendDigestUseCase) Execute(ctx context.Context, monitor *budget.Monitor) (int, error) {
	now := biztime.NowUTC()
	sent := 0
	offset := 0

	for {
		users, err := uc.userRepo.ListDigestCandidates(ctx, digestPageSize, offset)
		if err != nil {
			return sent, fmt.Errorf("failed to list digest candidates: %w", err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			if monitor != nil && monitor.Check("digest_send") {
				uc.logger.Warnw("digest sweep stopped early, budget nearly spent",
					"sent", sent, "offset", offset)
				return sent, nil
			}

			if uc.processUser(ctx, u, now) {
				sent++
			}
		}

		if len(users) < digestPageSize {
			break
		}
		offset += digestPageSize
	}

	uc.logger.Infow("digest sweep finished", "sent", sent)
	return sent, nil
}

func (uc *SendDigestUseCase) processUser(ctx context.Context, u *user.User, now time.Time) bool {
	category, ok := notification.DetermineCategory(u, uc.windows, now)
	if !ok {
		return false
	}

	state, err := uc.logRepo.DeliveryState(ctx, u.ID(), notification.KindDigest)
	if err != nil {
		uc.logger.Errorw("failed to load delivery state", "user_id", u.ID(), "error", err)
		return false
	}

	if !notification.ShouldNotify(state, category, u.CreatedAt(), now) {
		return false
	}

	content, err := uc.generator.GenerateNotificationContent(ctx, digestSystemPrompts[category], userContext(u, category))
	if err != nil {
		uc.logger.Errorw("failed to generate digest content",
			"user_id", u.ID(), "category", string(category), "error", err)
		return false
	}

	if err := uc.emailer.SendMarkdownEmail(u.Email(), content.Subject, content.Body); err != nil {
		uc.logger.Errorw("failed to send digest email",
			"user_id", u.ID(), "category", string(category), "error", err)
		return false
	}

	if err := uc.logRepo.Record(ctx, &notification.LogEntry{
		UserID:  u.ID(),
		Channel: notification.ChannelEmail,
		Kind:    notification.KindDigest,
		Subject: content.Subject,
		SentAt:  now,
	}); err != nil {
		// The email went out; a missing log entry only shortens the next
		// interval.
		uc.logger.Errorw("failed to record digest delivery", "user_id", u.ID(), "error", err)
	}

	uc.tracker.Track(ctx, strconv.FormatUint(uint64(u.ID()), 10), "notification_sent", map[string]interface{}{
		"kind":     notification.KindDigest,
		"channel":  notification.ChannelEmail,
		"category": string(category),
	})

	return true
}

func userContext(u *user.User, category notification.Category) string {
	name := u.DisplayName()
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("User display name: %s\nCategory: %s\nRegistered: %s",
		name, category, u.CreatedAt().Format("2006-01-02"))
}
