package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/relation-feed/internal/testutil"
)

func TestNotificationService_ReadFlow(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	svc := NewNotificationService(f.notes, 100)
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 3)
	target := u[0]
	_, err := f.relations.Follow(ctx, u[1], target)
	require.NoError(t, err)
	_, err = f.relations.Follow(ctx, u[2], target)
	require.NoError(t, err)
	f.flush(t)

	n, err := svc.UnreadCount(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := svc.List(ctx, target, true, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	// 只有接收者本人可以标记已读
	assert.ErrorIs(t, svc.MarkRead(ctx, u[1], list[0].ID), ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, target, list[0].ID))

	unread, err := svc.List(ctx, target, true, 1, 10)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
	all, err := svc.List(ctx, target, false, 1, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	marked, err := svc.MarkAllRead(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
	n, err = svc.UnreadCount(ctx, target)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.List(ctx, target, false, 0, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNotifier_DropsWhenFull(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	n := NewNotifier(f.notes, 1)
	u := testutil.SeedUsers(t, f.db, 2)

	job := testNotification(u[0], u[1])
	assert.True(t, n.Enqueue(job))
	assert.False(t, n.Enqueue(testNotification(u[0], u[1])))
	assert.Equal(t, 1, n.QueueLen())

	stop := n.Start(1)
	require.NoError(t, stop(context.Background()))
	assert.Zero(t, n.QueueLen())

	cnt, err := f.notes.CountUnread(context.Background(), u[1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), cnt)
	select {
	case d := <-n.Metrics():
		assert.Positive(t, int64(d))
	default:
		t.Fatal("expected a delivery latency sample")
	}
}
