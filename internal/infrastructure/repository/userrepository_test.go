package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/infrastructure/persistence/models"
	"lumina/internal/shared/logger"
)

func TestUserRepository_GetByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, logger.NewLogger())
	ctx := context.Background()

	userID := seedUser(t, db, &models.UserModel{
		SID:         "usr_get",
		Email:       "get@example.com",
		DisplayName: "Ada",
	})

	u, err := repo.GetByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "usr_get", u.SID())
	assert.Equal(t, "get@example.com", u.Email())
	assert.Equal(t, "Ada", u.DisplayName())

	u, err = repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_ListDigestCandidates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db, logger.NewLogger())
	ctx := context.Background()

	first := seedUser(t, db, &models.UserModel{
		SID: "usr_a", Email: "a@example.com",
	})
	second := seedUser(t, db, &models.UserModel{
		SID: "usr_b", Email: "b@example.com",
	})
	seedUser(t, db, &models.UserModel{
		SID: "usr_unsub", Email: "unsub@example.com", EmailUnsubscribed: true,
	})

	users, err := repo.ListDigestCandidates(ctx, 0, 0)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, first, users[0].ID())
	assert.Equal(t, second, users[1].ID())

	t.Run("pagination", func(t *testing.T) {
		page, err := repo.ListDigestCandidates(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, second, page[0].ID())
	})
}
