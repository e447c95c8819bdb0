package usecases

import (
	"context"
	"fmt"

	"lumina/internal/domain/subscription"
	"lumina/internal/shared/logger"
)

// lookupStrategy is one way of resolving the owning user for a set of facts.
// Strategies are tried in order and the first hit wins.
type lookupStrategy struct {
	Name string
	Find func(ctx context.Context, facts subscription.Facts) (uint, error)
}

// UserLookup resolves which user a vendor event belongs to. The chain runs
// cheapest-first: the embedded account token when the vendor supplied one,
// then the transaction mapping table, then a direct query against the
// provider identifier columns.
type UserLookup struct {
	strategies []lookupStrategy
	logger     logger.Interface
}

func NewUserLookup(
	subscriptionRepo subscription.Repository,
	mappingRepo subscription.TransactionMappingRepository,
	log logger.Interface,
) *UserLookup {
	strategies := []lookupStrategy{
		{
			Name: "account_token",
			Find: func(ctx context.Context, facts subscription.Facts) (uint, error) {
				if facts.AppAccountToken == "" {
					return 0, nil
				}
				return subscriptionRepo.FindUserIDByAccountToken(ctx, facts.AppAccountToken)
			},
		},
		{
			Name: "transaction_mapping",
			Find: func(ctx context.Context, facts subscription.Facts) (uint, error) {
				id := facts.OriginalTransactionID
				if id == "" {
					id = facts.TransactionID
				}
				return mappingRepo.FindUserID(ctx, facts.Provider, id)
			},
		},
		{
			Name: "provider_identifier",
			Find: func(ctx context.Context, facts subscription.Facts) (uint, error) {
				return subscriptionRepo.FindUserIDByProviderTransaction(ctx, facts.Provider, facts.OriginalTransactionID)
			},
		},
	}

	return &UserLookup{
		strategies: strategies,
		logger:     log,
	}
}

// Resolve returns the owning user ID and the name of the strategy that found
// it. A zero user ID with nil error means no strategy matched.
func (l *UserLookup) Resolve(ctx context.Context, facts subscription.Facts) (uint, string, error) {
	for _, strategy := range l.strategies {
		userID, err := strategy.Find(ctx, facts)
		if err != nil {
			return 0, "", fmt.Errorf("user lookup strategy %s failed: %w", strategy.Name, err)
		}
		if userID != 0 {
			l.logger.Debugw("user resolved",
				"strategy", strategy.Name,
				"user_id", userID,
				"provider", facts.Provider.String(),
			)
			return userID, strategy.Name, nil
		}
	}

	return 0, "", nil
}
