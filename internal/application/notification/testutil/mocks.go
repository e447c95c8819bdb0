// Package testutil provides mock implementations for testing the
// notification application layer.
package testutil

import (
	"context"
	"sync"

	"lumina/internal/domain/notification"
	"lumina/internal/domain/user"
	"lumina/internal/shared/logger"
)

// MockLogger is a no-op logger.Interface for tests.
type MockLogger struct{}

func NewMockLogger() *MockLogger { return &MockLogger{} }

func (m *MockLogger) Debug(msg string, args ...any)                   {}
func (m *MockLogger) Info(msg string, args ...any)                    {}
func (m *MockLogger) Warn(msg string, args ...any)                    {}
func (m *MockLogger) Error(msg string, args ...any)                   {}
func (m *MockLogger) Fatal(msg string, args ...any)                   {}
func (m *MockLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (m *MockLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (m *MockLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (m *MockLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (m *MockLogger) Fatalw(msg string, keysAndValues ...interface{}) {}
func (m *MockLogger) With(args ...any) logger.Interface               { return m }
func (m *MockLogger) Named(name string) logger.Interface              { return m }

// MockUserRepository is an in-memory implementation of user.Repository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users []*user.User

	GetError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) AddUser(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, u)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, u := range m.users {
		if u.ID() == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *MockUserRepository) ListDigestCandidates(ctx context.Context, limit, offset int) ([]*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []*user.User
	for _, u := range m.users {
		if !u.EmailUnsubscribed() && u.Email() != "" {
			candidates = append(candidates, u)
		}
	}

	if offset >= len(candidates) {
		return nil, nil
	}
	end := offset + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[offset:end], nil
}

// MockLogRepository is an in-memory delivery log.
type MockLogRepository struct {
	mu      sync.RWMutex
	Entries []notification.LogEntry

	StateError  error
	RecordError error
}

func NewMockLogRepository() *MockLogRepository {
	return &MockLogRepository{}
}

func (m *MockLogRepository) DeliveryState(ctx context.Context, userID uint, kind string) (notification.DeliveryState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.StateError != nil {
		return notification.DeliveryState{}, m.StateError
	}

	var state notification.DeliveryState
	for i := range m.Entries {
		entry := m.Entries[i]
		if entry.UserID != userID || entry.Kind != kind {
			continue
		}
		state.Count++
		if state.LastSentAt == nil || entry.SentAt.After(*state.LastSentAt) {
			sentAt := entry.SentAt
			state.LastSentAt = &sentAt
		}
	}
	return state, nil
}

func (m *MockLogRepository) Record(ctx context.Context, entry *notification.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RecordError != nil {
		return m.RecordError
	}
	m.Entries = append(m.Entries, *entry)
	return nil
}

// MockContentGenerator returns canned content.
type MockContentGenerator struct {
	Content notification.Content
	Err     error

	Prompts []string
}

func (m *MockContentGenerator) GenerateNotificationContent(ctx context.Context, systemPrompt, userContext string) (*notification.Content, error) {
	m.Prompts = append(m.Prompts, systemPrompt)
	if m.Err != nil {
		return nil, m.Err
	}
	content := m.Content
	return &content, nil
}

// SentEmail records one EmailSender call.
type SentEmail struct {
	To      string
	Subject string
	Body    string
	Kind    string
}

// MockEmailSender records every send.
type MockEmailSender struct {
	mu    sync.Mutex
	Sent  []SentEmail
	Error error
}

func (m *MockEmailSender) record(email SentEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Error != nil {
		return m.Error
	}
	m.Sent = append(m.Sent, email)
	return nil
}

func (m *MockEmailSender) SendMarkdownEmail(to, subject, bodyMarkdown string) error {
	return m.record(SentEmail{To: to, Subject: subject, Body: bodyMarkdown, Kind: "markdown"})
}

func (m *MockEmailSender) SendExpiryReminderEmail(to, displayName string, daysLeft int) error {
	return m.record(SentEmail{To: to, Kind: "expiry_reminder"})
}

func (m *MockEmailSender) SendPurchaseConfirmationEmail(to, displayName, productName string) error {
	return m.record(SentEmail{To: to, Subject: productName, Kind: "purchase_confirmation"})
}

func (m *MockEmailSender) SendMigrationNoticeEmail(to, displayName, oldProvider string) error {
	return m.record(SentEmail{To: to, Subject: oldProvider, Kind: "migration_notice"})
}

// TrackedEvent records one analytics call.
type TrackedEvent struct {
	UserID     string
	EventType  string
	Properties map[string]interface{}
}

// MockEventTracker records every tracked event.
type MockEventTracker struct {
	mu     sync.Mutex
	Events []TrackedEvent
	Reject bool
}

func (m *MockEventTracker) Track(ctx context.Context, userID, eventType string, properties map[string]interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, TrackedEvent{UserID: userID, EventType: eventType, Properties: properties})
	return !m.Reject
}
