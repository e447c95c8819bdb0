package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/application/subscription/testutil"
	"lumina/internal/domain/subscription"
	vo "lumina/internal/domain/subscription/valueobjects"
)

func TestUserLookup_AccountTokenWins(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	mappingRepo := testutil.NewMockTransactionMappingRepository()
	lookup := NewUserLookup(subRepo, mappingRepo, testutil.NewMockLogger())

	subRepo.SetAccountToken("token-abc", 7)
	require.NoError(t, mappingRepo.Upsert(context.Background(), subscription.TransactionMapping{
		Provider:      vo.ProviderApple,
		TransactionID: "txn-1",
		UserID:        8,
	}))

	facts := appleFacts(t, time.Hour)
	facts.AppAccountToken = "token-abc"
	facts.TransactionID = "txn-1"

	userID, strategy, err := lookup.Resolve(context.Background(), facts)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
	assert.Equal(t, "account_token", strategy)
}

func TestUserLookup_FallsBackToMapping(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	mappingRepo := testutil.NewMockTransactionMappingRepository()
	lookup := NewUserLookup(subRepo, mappingRepo, testutil.NewMockLogger())

	facts := appleFacts(t, time.Hour)
	require.NoError(t, mappingRepo.Upsert(context.Background(), subscription.TransactionMapping{
		Provider:              vo.ProviderApple,
		TransactionID:         facts.TransactionID,
		OriginalTransactionID: facts.OriginalTransactionID,
		UserID:                8,
	}))

	userID, strategy, err := lookup.Resolve(context.Background(), facts)
	require.NoError(t, err)
	assert.Equal(t, uint(8), userID)
	assert.Equal(t, "transaction_mapping", strategy)
}

func TestUserLookup_ProviderIdentifierLast(t *testing.T) {
	subRepo := testutil.NewMockSubscriptionRepository()
	mappingRepo := testutil.NewMockTransactionMappingRepository()
	lookup := NewUserLookup(subRepo, mappingRepo, testutil.NewMockLogger())

	facts := appleFacts(t, time.Hour)
	seedRecord(t, subRepo, 9, subscription.RecordParams{
		Status:                     vo.StatusActive,
		Provider:                   vo.ProviderApple,
		AppleOriginalTransactionID: facts.OriginalTransactionID,
	})

	userID, strategy, err := lookup.Resolve(context.Background(), facts)
	require.NoError(t, err)
	assert.Equal(t, uint(9), userID)
	assert.Equal(t, "provider_identifier", strategy)
}

func TestUserLookup_NoMatch(t *testing.T) {
	lookup := NewUserLookup(testutil.NewMockSubscriptionRepository(), testutil.NewMockTransactionMappingRepository(), testutil.NewMockLogger())

	userID, strategy, err := lookup.Resolve(context.Background(), appleFacts(t, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint(0), userID)
	assert.Empty(t, strategy)
}
