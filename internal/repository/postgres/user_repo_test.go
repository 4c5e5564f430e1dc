package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/repository"
	"github.com/dom/faceoff/internal/repository/postgres"
	"github.com/dom/faceoff/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_Create(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		wantErr error
	}{
		{
			name: "successful creation",
			user: &domain.User{
				ID:           uuid.New(),
				Username:     "alice",
				PasswordHash: "hashedpassword",
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			},
		},
		{
			name: "duplicate username",
			user: &domain.User{
				ID:           uuid.New(),
				Username:     "alice",
				PasswordHash: "hashedpassword2",
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			},
			wantErr: repository.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().WithUsername("bob").Build(t, testDB.DB)

	found, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, 0, found.Score)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_Top(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		testutil.NewUserBuilder().
			WithUsername(string(rune('a'+i)) + "_player").
			WithScore(i % 4).
			Build(t, testDB.DB)
	}

	top, err := repo.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 10)

	for i := 1; i < len(top); i++ {
		prev, cur := top[i-1], top[i]
		assert.GreaterOrEqual(t, prev.Score, cur.Score)
		if prev.Score == cur.Score {
			assert.Less(t, prev.Username, cur.Username)
		}
	}
	assert.Equal(t, 3, top[0].Score)
	assert.Equal(t, "d_player", top[0].Username)

	testDB.Truncate(t)
	top, err = repo.Top(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestUserRepository_Delete(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err := repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, user.ID), repository.ErrNotFound)
}

func TestUserRepository_DeleteAccount(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	matches := postgres.NewMatchRepository(testDB.DB)
	sessions := postgres.NewSessionRepository(testDB.DB)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	bob, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	carol, _ := testutil.NewUserBuilder().Build(t, testDB.DB)

	t.Run("removes user sessions and matches", func(t *testing.T) {
		session := &domain.UserSession{ID: uuid.New(), UserID: alice.ID, ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now()}
		require.NoError(t, sessions.Create(ctx, session))
		testutil.NewMatchBuilder(alice, bob).Build(t, testDB.DB)
		testutil.NewMatchBuilder(carol, alice).Ready().Build(t, testDB.DB)
		kept := testutil.NewMatchBuilder(bob, carol).Build(t, testDB.DB)

		removed, err := repo.DeleteAccount(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		_, err = repo.GetByID(ctx, alice.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = sessions.GetByID(ctx, session.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = matches.GetByID(ctx, kept.ID)
		assert.NoError(t, err)
	})

	t.Run("failed user delete rolls back match removal", func(t *testing.T) {
		match := testutil.NewMatchBuilder(bob, carol).Build(t, testDB.DB)
		require.NoError(t, repo.Delete(ctx, carol.ID))

		_, err := repo.DeleteAccount(ctx, carol.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = matches.GetByID(ctx, match.ID)
		assert.NoError(t, err, "match must survive a rolled back account delete")
	})
}
