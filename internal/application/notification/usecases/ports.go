package usecases

import (
	"context"

	"lumina/internal/domain/notification"
)

// ContentGenerator produces a personalized subject and markdown body from a
// system prompt and a user context block.
type ContentGenerator interface {
	GenerateNotificationContent(ctx context.Context, systemPrompt, userContext string) (*notification.Content, error)
}

// EmailSender delivers rendered email. Markdown bodies are converted and
// sanitized by the implementation.
type EmailSender interface {
	SendMarkdownEmail(to, subject, bodyMarkdown string) error
	SendExpiryReminderEmail(to, displayName string, daysLeft int) error
	SendPurchaseConfirmationEmail(to, displayName, productName string) error
	SendMigrationNoticeEmail(to, displayName, oldProvider string) error
}

// EventTracker reports delivery events to the analytics backend. It returns
// whether the event was accepted; it never fails the caller.
type EventTracker interface {
	Track(ctx context.Context, userID, eventType string, properties map[string]interface{}) bool
}
