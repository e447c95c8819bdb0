package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notiftestutil "lumina/internal/application/notification/testutil"
	subtestutil "lumina/internal/application/subscription/testutil"
	"lumina/internal/domain/notification"
	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/domain/user"
)

type reminderFixture struct {
	uc       *SendExpiryReminderUseCase
	subRepo  *subtestutil.MockSubscriptionRepository
	userRepo *notiftestutil.MockUserRepository
	logRepo  *notiftestutil.MockLogRepository
	emailer  *notiftestutil.MockEmailSender
	tracker  *notiftestutil.MockEventTracker
}

func newReminderFixture() *reminderFixture {
	f := &reminderFixture{
		subRepo:  subtestutil.NewMockSubscriptionRepository(),
		userRepo: notiftestutil.NewMockUserRepository(),
		logRepo:  notiftestutil.NewMockLogRepository(),
		emailer:  &notiftestutil.MockEmailSender{},
		tracker:  &notiftestutil.MockEventTracker{},
	}
	f.uc = NewSendExpiryReminderUseCase(
		f.subRepo, f.userRepo, f.logRepo, f.emailer, f.tracker,
		3, notiftestutil.NewMockLogger(),
	)
	return f
}

func (f *reminderFixture) seed(t *testing.T, userID uint, endsIn time.Duration, unsubscribed bool) {
	t.Helper()
	now := time.Now().UTC()
	created := now.Add(-90 * 24 * time.Hour)

	f.subRepo.AddRecord(subscription.ReconstructRecord(subscription.RecordParams{
		UserID:             userID,
		Status:             vo.StatusCancelled,
		BillingPeriod:      vo.PeriodMonthly,
		Provider:           vo.ProviderApple,
		CurrentPeriodStart: now.Add(-30 * 24 * time.Hour),
		CurrentPeriodEnd:   now.Add(endsIn),
		CreatedAt:          &created,
	}))
	f.userRepo.AddUser(user.ReconstructUser(user.UserParams{
		ID:                userID,
		Email:             "u@example.com",
		EmailUnsubscribed: unsubscribed,
		CreatedAt:         created,
	}))
}

func TestSendExpiryReminder_SendsWithinWindow(t *testing.T) {
	f := newReminderFixture()
	f.seed(t, 1, 2*24*time.Hour, false)

	sent, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, f.emailer.Sent, 1)
	assert.Equal(t, "expiry_reminder", f.emailer.Sent[0].Kind)
	require.Len(t, f.logRepo.Entries, 1)
	assert.Equal(t, notification.KindExpiryReminder, f.logRepo.Entries[0].Kind)
}

func TestSendExpiryReminder_OutsideWindowSkipped(t *testing.T) {
	f := newReminderFixture()
	f.seed(t, 1, 10*24*time.Hour, false)

	sent, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestSendExpiryReminder_OncePerPeriod(t *testing.T) {
	f := newReminderFixture()
	f.seed(t, 1, 2*24*time.Hour, false)

	first, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first)

	second, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second, "one reminder per billing period")
	assert.Len(t, f.emailer.Sent, 1)
}

func TestSendExpiryReminder_UnsubscribedSkipped(t *testing.T) {
	f := newReminderFixture()
	f.seed(t, 1, 2*24*time.Hour, true)

	sent, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, f.emailer.Sent)
}
