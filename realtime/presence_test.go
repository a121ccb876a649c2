package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPresence(t *testing.T) {
	p := NewLocalPresence()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, p.Online(ctx, OnlineUser{UserID: 2, Name: "b", Since: now.Add(time.Second)}))
	require.NoError(t, p.Online(ctx, OnlineUser{UserID: 1, Name: "a", Since: now}))

	users, err := p.OnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, uint(1), users[0].UserID)

	require.NoError(t, p.Offline(ctx, 1))
	users, _ = p.OnlineUsers(ctx)
	assert.Len(t, users, 1)
}
