package usecases

import (
	"context"
	"time"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/logger"
)

// MigrateProviderUseCase retires the previous billing provider when a user
// verifies a purchase from a new one. The retirement is best effort: a
// failed remote cancellation is logged and never blocks recording the new
// purchase, since double billing is recoverable and a lost purchase is not.
type MigrateProviderUseCase struct {
	paymentGateway PaymentGateway
	logger         logger.Interface
}

func NewMigrateProviderUseCase(
	paymentGateway PaymentGateway,
	logger logger.Interface,
) *MigrateProviderUseCase {
	return &MigrateProviderUseCase{
		paymentGateway: paymentGateway,
		logger:         logger,
	}
}

// MigrationOutcome is what retiring the previous provider produced. Stamp is
// nil on every switch after the first; Cancellation is always set so the
// reconciliation records why the old subscription went away.
type MigrationOutcome struct {
	Stamp        *subscription.MigrationStamp
	Cancellation *subscription.CancellationStamp
}

// Execute retires the current provider's subscription when newProvider
// differs, and returns the stamps to record. Nil when no migration applies.
// The old provider is retired on every switch; only the first switch writes
// the migration fields.
func (uc *MigrateProviderUseCase) Execute(ctx context.Context, record *subscription.Record, newProvider vo.Provider, now time.Time) *MigrationOutcome {
	if record == nil || !record.RequiresMigration(newProvider) {
		return nil
	}

	oldProvider := record.Provider()

	if oldProvider.SupportsRemoteCancel() {
		uc.cancelRemote(ctx, record)
	} else {
		// App store subscriptions cannot be cancelled server side; the local
		// record moves to the new provider and the old store subscription
		// runs out on its own.
		uc.logger.Infow("old provider does not support remote cancel, marking locally only",
			"user_id", record.UserID(),
			"from", oldProvider.String(),
		)
	}

	outcome := &MigrationOutcome{
		Cancellation: &subscription.CancellationStamp{At: now, Reason: vo.CancelReasonMigration},
	}

	if record.MigrationAllowed() {
		outcome.Stamp = &subscription.MigrationStamp{From: oldProvider, At: now}
	} else {
		uc.logger.Debugw("migration fields already stamped, retiring old provider without restamping",
			"user_id", record.UserID(),
			"from", oldProvider.String(),
			"to", newProvider.String(),
		)
	}

	return outcome
}

func (uc *MigrateProviderUseCase) cancelRemote(ctx context.Context, record *subscription.Record) {
	subscriptionID, err := record.StripeSubscriptionID()
	if err != nil || subscriptionID == "" {
		uc.logger.Warnw("no subscription id for remote cancellation",
			"user_id", record.UserID(), "error", err)
		return
	}

	if err := uc.paymentGateway.CancelSubscription(ctx, subscriptionID); err != nil {
		uc.logger.Errorw("remote cancellation failed, continuing with migration",
			"user_id", record.UserID(),
			"subscription_id", subscriptionID,
			"error", subscription.ErrMigrationCancellationFailed,
			"cause", err,
		)
		return
	}

	uc.logger.Infow("previous provider subscription cancelled",
		"user_id", record.UserID(),
		"subscription_id", subscriptionID,
	)
}
