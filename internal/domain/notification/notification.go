package notification

import (
	"time"

	"lumina/internal/domain/user"
)

// Category buckets a user for outbound messaging. Each category carries its
// own progressive send schedule: early messages come quickly, later ones
// back off.
type Category string

const (
	// CategoryEmailOnly covers accounts that registered but never opened
	// the app.
	CategoryEmailOnly Category = "email_only_user"
	CategoryNewUser   Category = "new_user_email"
	CategoryActive    Category = "active_user_email"
	CategoryInactive  Category = "inactive_user_email"
)

// Kind names what a message is about, for the delivery log.
const (
	KindDigest               = "digest"
	KindExpiryReminder       = "expiry_reminder"
	KindPurchaseConfirmation = "purchase_confirmation"
	KindMigrationNotice      = "migration_notice"
)

// ChannelEmail is the only delivery channel this service operates.
const ChannelEmail = "email"

// CategoryIntervals is the progressive schedule per category: entry N is the
// wait before message N+1. Counts past the end of the schedule reuse the
// last entry.
var CategoryIntervals = map[Category][]time.Duration{
	CategoryEmailOnly: {
		1 * time.Hour,
		6 * time.Hour,
		24 * time.Hour,
		48 * time.Hour,
		7 * 24 * time.Hour,
	},
	CategoryNewUser: {
		1 * time.Hour,
		6 * time.Hour,
		24 * time.Hour,
		48 * time.Hour,
		7 * 24 * time.Hour,
	},
	CategoryActive: {
		1 * time.Hour,
		6 * time.Hour,
		24 * time.Hour,
		48 * time.Hour,
		7 * 24 * time.Hour,
	},
	// Inactive users get a slower cadence.
	CategoryInactive: {
		1 * time.Hour,
		24 * time.Hour,
		48 * time.Hour,
		7 * 24 * time.Hour,
		14 * 24 * time.Hour,
	},
}

// Windows are the activity cutoffs category selection runs on.
type Windows struct {
	// NewUserDays is how long after registration an account counts as new.
	NewUserDays int
	// InactiveAfterDays is how long without app activity before an account
	// counts as inactive.
	InactiveAfterDays int
}

// DefaultWindows matches the production schedule.
var DefaultWindows = Windows{
	NewUserDays:       14,
	InactiveAfterDays: 10,
}

// DetermineCategory buckets a user, or reports false when no channel is
// available (unsubscribed or no address on file).
func DetermineCategory(u *user.User, windows Windows, now time.Time) (Category, bool) {
	if u.EmailUnsubscribed() || u.Email() == "" {
		return "", false
	}

	if u.LastActivityAt() == nil {
		return CategoryEmailOnly, true
	}

	inactiveCutoff := now.Add(-time.Duration(windows.InactiveAfterDays) * 24 * time.Hour)
	if !u.ActiveWithin(inactiveCutoff) {
		return CategoryInactive, true
	}

	newCutoff := now.Add(-time.Duration(windows.NewUserDays) * 24 * time.Hour)
	if u.IsNewSince(newCutoff) {
		return CategoryNewUser, true
	}

	return CategoryActive, true
}

// DeliveryState is what the log knows about past sends of one kind to one
// user.
type DeliveryState struct {
	Count      int
	LastSentAt *time.Time
}

// ShouldNotify applies the category's progressive schedule: the first
// message waits out the first interval after registration, every later one
// waits out the interval indexed by how many have been sent.
func ShouldNotify(state DeliveryState, category Category, registeredAt, now time.Time) bool {
	intervals, ok := CategoryIntervals[category]
	if !ok || len(intervals) == 0 {
		return false
	}

	if state.Count == 0 {
		return now.Sub(registeredAt) >= intervals[0]
	}

	if state.LastSentAt == nil {
		// Count without a timestamp is a data inconsistency; hold off
		// rather than spam.
		return false
	}

	idx := state.Count
	if idx > len(intervals)-1 {
		idx = len(intervals) - 1
	}
	return now.Sub(*state.LastSentAt) >= intervals[idx]
}

// Content is a generated message ready for rendering. Body is markdown.
type Content struct {
	Subject string
	Body    string
}
