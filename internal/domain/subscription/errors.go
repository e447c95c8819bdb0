package subscription

import "errors"

var (
	// ErrVerificationFailed means the receipt or signed payload did not
	// verify under any known environment. No state may be touched.
	ErrVerificationFailed = errors.New("receipt verification failed")

	// ErrVendorUnavailable is a transient vendor API failure that survived
	// the bounded retry budget.
	ErrVendorUnavailable = errors.New("vendor API unavailable")

	// ErrUserNotFound means no user could be resolved for a vendor event.
	// Webhook handlers log and drop it rather than escalating.
	ErrUserNotFound = errors.New("no user found for transaction")

	// ErrMigrationCancellationFailed means the old provider's subscription
	// could not be cancelled during migration. Logged, never blocking.
	ErrMigrationCancellationFailed = errors.New("failed to cancel previous provider subscription")

	ErrRecordNotFound     = errors.New("subscription record not found")
	ErrProviderMismatch   = errors.New("record is owned by a different provider")
	ErrInvalidFacts       = errors.New("invalid vendor facts")
	ErrDuplicateEvent     = errors.New("webhook event already processed")
	ErrPersistenceFailed  = errors.New("failed to persist subscription state")
	ErrUnknownProduct     = errors.New("unknown product identifier")
	ErrCallerNotOwner     = errors.New("caller does not own this subscription")
	ErrMigrationCompleted = errors.New("migration fields are set exactly once")
)
