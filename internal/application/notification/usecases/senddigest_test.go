package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/application/notification/testutil"
	"lumina/internal/domain/notification"
	"lumina/internal/domain/user"
)

type digestFixture struct {
	uc        *SendDigestUseCase
	userRepo  *testutil.MockUserRepository
	logRepo   *testutil.MockLogRepository
	generator *testutil.MockContentGenerator
	emailer   *testutil.MockEmailSender
	tracker   *testutil.MockEventTracker
}

func newDigestFixture() *digestFixture {
	f := &digestFixture{
		userRepo:  testutil.NewMockUserRepository(),
		logRepo:   testutil.NewMockLogRepository(),
		generator: &testutil.MockContentGenerator{Content: notification.Content{Subject: "Hello", Body: "**hi**"}},
		emailer:   &testutil.MockEmailSender{},
		tracker:   &testutil.MockEventTracker{},
	}
	f.uc = NewSendDigestUseCase(
		f.userRepo, f.logRepo, f.generator, f.emailer, f.tracker,
		notification.DefaultWindows, testutil.NewMockLogger(),
	)
	return f
}

func addUser(f *digestFixture, id uint, email string, createdAgo time.Duration, lastActivityAgo *time.Duration) {
	now := time.Now().UTC()
	params := user.UserParams{
		ID:        id,
		Email:     email,
		CreatedAt: now.Add(-createdAgo),
	}
	if lastActivityAgo != nil {
		at := now.Add(-*lastActivityAgo)
		params.LastActivityAt = &at
	}
	f.userRepo.AddUser(user.ReconstructUser(params))
}

func TestSendDigest_SendsToEligibleUser(t *testing.T) {
	f := newDigestFixture()
	activity := 24 * time.Hour
	addUser(f, 1, "a@example.com", 60*24*time.Hour, &activity)

	sent, err := f.uc.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, f.emailer.Sent, 1)
	assert.Equal(t, "a@example.com", f.emailer.Sent[0].To)
	assert.Equal(t, "Hello", f.emailer.Sent[0].Subject)

	require.Len(t, f.logRepo.Entries, 1)
	assert.Equal(t, notification.KindDigest, f.logRepo.Entries[0].Kind)

	require.Len(t, f.tracker.Events, 1)
	assert.Equal(t, "notification_sent", f.tracker.Events[0].EventType)
}

func TestSendDigest_ScheduleSuppressesRecentSend(t *testing.T) {
	f := newDigestFixture()
	activity := 24 * time.Hour
	addUser(f, 1, "a@example.com", 60*24*time.Hour, &activity)

	require.NoError(t, f.logRepo.Record(context.Background(), &notification.LogEntry{
		UserID: 1,
		Kind:   notification.KindDigest,
		SentAt: time.Now().UTC().Add(-time.Hour),
	}))

	sent, err := f.uc.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sent, "a digest sent an hour ago blocks the next for six hours")
	assert.Empty(t, f.emailer.Sent)
}

func TestSendDigest_BrandNewAccountWaits(t *testing.T) {
	f := newDigestFixture()
	addUser(f, 1, "a@example.com", 30*time.Minute, nil)

	sent, err := f.uc.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sent, "the first message waits an hour after registration")
}

func TestSendDigest_GenerationFailureSkipsUser(t *testing.T) {
	f := newDigestFixture()
	f.generator.Err = errors.New("model unavailable")
	activity := 24 * time.Hour
	addUser(f, 1, "a@example.com", 60*24*time.Hour, &activity)
	addUser(f, 2, "b@example.com", 60*24*time.Hour, &activity)

	sent, err := f.uc.Execute(context.Background(), nil)
	require.NoError(t, err, "per-user failures never fail the sweep")
	assert.Zero(t, sent)
	assert.Empty(t, f.logRepo.Entries)
}

func TestSendDigest_CategoryPicksPrompt(t *testing.T) {
	f := newDigestFixture()
	// Never opened the app: email-only category.
	addUser(f, 1, "a@example.com", 60*24*time.Hour, nil)

	_, err := f.uc.Execute(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, f.generator.Prompts, 1)
	assert.Equal(t, digestSystemPrompts[notification.CategoryEmailOnly], f.generator.Prompts[0])
}
