package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-rewards/internal/notification"
	apperrors "github.com/spec-kit/ticket-rewards/pkg/util"
)

func TestInboxReadFlow(t *testing.T) {
	f := newFixture(t)
	f.closeTicket(t, 100)

	sender := notification.NewSender(f.store, nil, zap.NewNop())
	for _, job := range f.drain(t) {
		_, err := sender.Deliver(f.ctx, job)
		require.NoError(t, err)
	}

	collab := f.actor(t, f.collab)
	items, err := f.inbox.List(f.ctx, collab)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	for _, n := range items {
		assert.Equal(t, f.collab.ID, n.UserID)
	}

	err = f.inbox.MarkRead(f.ctx, f.actor(t, f.manager), items[0].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "other users cannot ack")

	require.NoError(t, f.inbox.MarkRead(f.ctx, collab, items[0].ID))
	marked, err := f.inbox.MarkAllRead(f.ctx, collab)
	require.NoError(t, err)
	assert.Equal(t, int64(len(items)-1), marked)

	items, err = f.inbox.List(f.ctx, collab)
	require.NoError(t, err)
	for _, n := range items {
		assert.True(t, n.Read)
		assert.NotNil(t, n.ReadAt)
	}
}
