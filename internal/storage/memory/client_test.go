package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailchat/internal/storage"
	"github.com/sailchat/internal/storage/memory"
)

func TestSessionRoundTrip(t *testing.T) {
	c := memory.New()
	ctx := context.Background()

	require.NoError(t, c.SetSession(ctx, "tok-1", storage.Session{UserName: "bella", Role: "buyer"}))

	s, err := c.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "bella", s.UserName)
	assert.Equal(t, "buyer", s.Role)

	// Unknown tokens answer with a zero session, not an error.
	s, err = c.GetSession(ctx, "tok-unknown")
	require.NoError(t, err)
	assert.Empty(t, s.UserName)

	require.NoError(t, c.DeleteSession(ctx, "tok-1"))
	s, err = c.GetSession(ctx, "tok-1")
	require.NoError(t, err)
	assert.Empty(t, s.UserName)
}

func TestSubscriptionsCapAndRemoval(t *testing.T) {
	c := memory.New()
	ctx := context.Background()

	require.NoError(t, c.AddSubscription(ctx, "bella", `{"endpoint":"https://push.example/a"}`))
	require.NoError(t, c.AddSubscription(ctx, "bella", `{"endpoint":"https://push.example/b"}`))

	subs, err := c.Subscriptions(ctx, "bella")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	require.NoError(t, c.RemoveSubscription(ctx, "bella", "https://push.example/a"))
	subs, err = c.Subscriptions(ctx, "bella")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Contains(t, subs[0], "push.example/b")

	// Only the last ten subscriptions per user are kept.
	for i := 0; i < 15; i++ {
		require.NoError(t, c.AddSubscription(ctx, "amir", `{"endpoint":"https://push.example/n"}`))
	}
	subs, err = c.Subscriptions(ctx, "amir")
	require.NoError(t, err)
	assert.Len(t, subs, 10)
}
