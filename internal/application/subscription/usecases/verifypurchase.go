package usecases

import (
	"context"
	"fmt"
	"time"

	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
	"lumina/internal/shared/biztime"
	"lumina/internal/shared/logger"
)

// DefaultTier is the only tier currently sold. The field exists so future
// tiers slot in without schema changes.
const DefaultTier = "premium"

type VerifyPurchaseRequest struct {
	UserID        uint
	Receipt       string
	ProductID     string
	Platform      string
	Tier          string
	BillingPeriod string
}

// SubscriptionDTO is the client-facing projection of the record.
type SubscriptionDTO struct {
	Status             string     `json:"status"`
	Tier               string     `json:"tier,omitempty"`
	BillingPeriod      string     `json:"billing_period,omitempty"`
	Provider           string     `json:"provider"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	CanUseService      bool       `json:"can_use_service"`
	MigratedFrom       string     `json:"migrated_from,omitempty"`
}

type VerifyPurchaseResult struct {
	Subscription *SubscriptionDTO
	Migrated     bool
}

// VerifyPurchaseUseCase is the synchronous, client-initiated verification
// path: verify the receipt with the vendor, run the provider migration check,
// resolve status, and persist the reconciliation.
type VerifyPurchaseUseCase struct {
	receiptVerifier  ReceiptVerifier
	paymentGateway   PaymentGateway
	subscriptionRepo subscription.Repository
	mappingRepo      subscription.TransactionMappingRepository
	migrateProvider  *MigrateProviderUseCase
	cache            EntitlementCache
	logger           logger.Interface
}

func NewVerifyPurchaseUseCase(
	receiptVerifier ReceiptVerifier,
	paymentGateway PaymentGateway,
	subscriptionRepo subscription.Repository,
	mappingRepo subscription.TransactionMappingRepository,
	migrateProvider *MigrateProviderUseCase,
	cache EntitlementCache,
	logger logger.Interface,
) *VerifyPurchaseUseCase {
	return &VerifyPurchaseUseCase{
		receiptVerifier:  receiptVerifier,
		paymentGateway:   paymentGateway,
		subscriptionRepo: subscriptionRepo,
		mappingRepo:      mappingRepo,
		migrateProvider:  migrateProvider,
		cache:            cache,
		logger:           logger,
	}
}

func (uc *VerifyPurchaseUseCase) Execute(ctx context.Context, req VerifyPurchaseRequest) (*VerifyPurchaseResult, error) {
	billingPeriod, ok := vo.ParseBillingPeriod(req.BillingPeriod)
	if !ok {
		return nil, fmt.Errorf("%w: %s", subscription.ErrUnknownProduct, req.BillingPeriod)
	}
	tier := req.Tier
	if tier == "" {
		tier = DefaultTier
	}

	facts, err := uc.verifyWithVendor(ctx, req)
	if err != nil {
		return nil, err
	}

	// A transaction already owned by another account is rejected before any
	// state is touched.
	mappedUserID, err := uc.mappingRepo.FindUserID(ctx, facts.Provider, facts.OriginalTransactionID)
	if err != nil {
		return nil, err
	}
	if mappedUserID != 0 && mappedUserID != req.UserID {
		uc.logger.Warnw("transaction already mapped to another user",
			"user_id", req.UserID,
			"owner_id", mappedUserID,
			"provider", facts.Provider.String(),
		)
		return nil, subscription.ErrCallerNotOwner
	}

	record, err := uc.subscriptionRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, subscription.ErrUserNotFound
	}

	now := biztime.NowUTC()

	outcome := uc.migrateProvider.Execute(ctx, record, facts.Provider, now)

	rec := subscription.NewReconciliation(facts, now)
	rec.Tier = tier
	rec.BillingPeriod = billingPeriod
	if outcome != nil {
		rec.Migration = outcome.Stamp
		rec.Cancellation = outcome.Cancellation
	}

	if err := uc.subscriptionRepo.ApplyReconciliation(ctx, req.UserID, rec); err != nil {
		return nil, err
	}

	if err := uc.mappingRepo.Upsert(ctx, subscription.TransactionMapping{
		Provider:              facts.Provider,
		TransactionID:         facts.TransactionID,
		OriginalTransactionID: facts.OriginalTransactionID,
		ProductID:             facts.ProductID,
		UserID:                req.UserID,
	}); err != nil {
		// The reconciliation is already durable; a missing mapping only
		// degrades webhook lookup to the slower strategies.
		uc.logger.Errorw("failed to record transaction mapping",
			"user_id", req.UserID, "error", err)
	}

	if err := uc.cache.SetStatus(ctx, req.UserID, rec.Status); err != nil {
		uc.logger.Warnw("failed to refresh entitlement cache", "user_id", req.UserID, "error", err)
	}

	updated, err := uc.subscriptionRepo.GetByUserID(ctx, req.UserID)
	if err != nil || updated == nil {
		// Fall back to the reconciliation we just wrote.
		uc.logger.Warnw("failed to reload record after reconciliation", "user_id", req.UserID, "error", err)
		return &VerifyPurchaseResult{
			Subscription: dtoFromReconciliation(rec),
			Migrated:     outcome != nil,
		}, nil
	}

	return &VerifyPurchaseResult{
		Subscription: DTOFromRecord(updated),
		Migrated:     outcome != nil,
	}, nil
}

// verifyWithVendor picks the adapter for the platform the client named.
func (uc *VerifyPurchaseUseCase) verifyWithVendor(ctx context.Context, req VerifyPurchaseRequest) (subscription.Facts, error) {
	provider, ok := vo.ParseProvider(req.Platform)
	if !ok {
		return subscription.Facts{}, fmt.Errorf("%w: unsupported platform %s", subscription.ErrVerificationFailed, req.Platform)
	}

	switch provider {
	case vo.ProviderApple:
		return uc.receiptVerifier.VerifyReceipt(ctx, req.Receipt)
	case vo.ProviderStripe:
		return uc.paymentGateway.FetchSubscription(ctx, req.Receipt)
	default:
		return subscription.Facts{}, fmt.Errorf("%w: unsupported platform %s", subscription.ErrVerificationFailed, req.Platform)
	}
}

// DTOFromRecord projects a record for API responses.
func DTOFromRecord(record *subscription.Record) *SubscriptionDTO {
	dto := &SubscriptionDTO{
		Status:        record.Status().String(),
		Tier:          record.Tier(),
		BillingPeriod: record.BillingPeriod().String(),
		Provider:      record.Provider().String(),
		TrialEnd:      record.TrialEnd(),
		CanUseService: record.Status().CanUseService(),
	}

	if start := record.CurrentPeriodStart(); !start.IsZero() {
		dto.CurrentPeriodStart = &start
	}
	if end := record.CurrentPeriodEnd(); !end.IsZero() {
		dto.CurrentPeriodEnd = &end
	}
	if from := record.MigratedFrom(); from != nil {
		dto.MigratedFrom = from.String()
	}

	return dto
}

func dtoFromReconciliation(rec subscription.Reconciliation) *SubscriptionDTO {
	dto := &SubscriptionDTO{
		Status:        rec.Status.String(),
		Tier:          rec.Tier,
		BillingPeriod: rec.BillingPeriod.String(),
		Provider:      rec.Provider.String(),
		TrialEnd:      rec.TrialEnd,
		CanUseService: rec.Status.CanUseService(),
	}
	if !rec.CurrentPeriodStart.IsZero() {
		start := rec.CurrentPeriodStart
		dto.CurrentPeriodStart = &start
	}
	if !rec.CurrentPeriodEnd.IsZero() {
		end := rec.CurrentPeriodEnd
		dto.CurrentPeriodEnd = &end
	}
	if rec.Migration != nil {
		dto.MigratedFrom = rec.Migration.From.String()
	}
	return dto
}
