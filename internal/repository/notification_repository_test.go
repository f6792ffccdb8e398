package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/testutil"
)

func TestNotificationRepository_ReadFlow(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	u := testutil.SeedUsers(t, db, 3)

	var ids []string
	for _, actor := range u[1:] {
		n := &model.Notification{ID: uuid.New().String(), RecipientID: u[0], ActorID: actor, Verb: model.VerbFollowed}
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.ID)
	}

	cnt, err := repo.CountUnread(ctx, u[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), cnt)

	// 他人的通知不能被标记
	hit, err := repo.MarkRead(ctx, ids[0], u[1])
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = repo.MarkRead(ctx, ids[0], u[0])
	require.NoError(t, err)
	assert.True(t, hit)

	unread, err := repo.ListByRecipient(ctx, u[0], true, 0, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, ids[1], unread[0].ID)

	n, err := repo.MarkAllRead(ctx, u[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := repo.ListByRecipient(ctx, u[0], false, 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, it := range all {
		assert.True(t, it.Read)
	}
}
