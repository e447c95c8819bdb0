package notification

import (
	"context"
	"time"
)

// LogEntry is one delivered message.
type LogEntry struct {
	UserID  uint
	Channel string
	Kind    string
	Subject string
	SentAt  time.Time
}

// LogRepository is the append-only delivery log the schedule runs on.
type LogRepository interface {
	// DeliveryState returns the send count and most recent send of one
	// kind to one user. A user with no sends yields a zero state.
	DeliveryState(ctx context.Context, userID uint, kind string) (DeliveryState, error)

	// Record appends a delivery.
	Record(ctx context.Context, entry *LogEntry) error
}
