package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/repository/postgres"
	"github.com/dom/faceoff/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackRepository_CreateAndList(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewFeedbackRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, testDB.DB)
	now := time.Now()

	old := &domain.Feedback{ID: uuid.New(), UserID: user.ID, Feedback: "old", CreatedAt: now.Add(-48 * time.Hour)}
	recent := &domain.Feedback{ID: uuid.New(), UserID: user.ID, Feedback: "recent", CreatedAt: now}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, recent))

	items, err := repo.List(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "recent", items[0].Feedback)

	all, err := repo.List(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
