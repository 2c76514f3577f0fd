package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/model"
)

func TestAuthorizeReadParticipant(t *testing.T) {
	f := newFixture()
	f.addChat("chat-1", buyer, agent1, model.StatusActive, nil)

	c, err := f.svc.AuthorizeRead(context.Background(), buyer, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "chat-1", c.ChatID)
}

func TestAuthorizeReadOwnerOfSailChat(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-1", buyer, agent1, model.StatusActive, strPtr("sail-1"))

	_, err := f.svc.AuthorizeRead(context.Background(), owner, "chat-1")
	require.NoError(t, err)
}

func TestAuthorizeReadDeniesOutsiders(t *testing.T) {
	f := newFixture()
	f.addChat("chat-1", buyer, agent1, model.StatusActive, nil)

	// A stranger and a missing chat look identical from the outside.
	_, err := f.svc.AuthorizeRead(context.Background(), agent2, "chat-1")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)

	_, err = f.svc.AuthorizeRead(context.Background(), buyer, "no-such-chat")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)

	// The owner shortcut only applies to sail chats.
	_, err = f.svc.AuthorizeRead(context.Background(), owner, "chat-1")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)
}

func TestAuthorizeSendActiveChat(t *testing.T) {
	f := newFixture()
	f.addChat("chat-1", buyer, agent1, model.StatusActive, nil)

	_, err := f.svc.AuthorizeSend(context.Background(), buyer, "chat-1")
	assert.NoError(t, err)
	_, err = f.svc.AuthorizeSend(context.Background(), agent1, "chat-1")
	assert.NoError(t, err)
}

func TestAuthorizeSendHiddenSailChat(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailNotified)
	f.addChat("chat-1", buyer, agent1, model.StatusHidden, strPtr("sail-1"))

	// The agent may fire the first reply into a hidden enquiry.
	_, err := f.svc.AuthorizeSend(context.Background(), agent1, "chat-1")
	assert.NoError(t, err)

	// The buyer cannot message a chat they cannot even see.
	_, err = f.svc.AuthorizeSend(context.Background(), buyer, "chat-1")
	var se *chat.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, model.StatusHidden, se.Status)
}

func TestAuthorizeSendClosedStates(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailInProgress)
	f.addChat("chat-ina", buyer, agent1, model.StatusInactive, strPtr("sail-1"))
	f.addChat("chat-hina", buyer, agent2, model.StatusHiddenInactive, strPtr("sail-1"))

	// Even agents cannot post into shelved chats.
	var se *chat.StatusError
	_, err := f.svc.AuthorizeSend(context.Background(), agent1, "chat-ina")
	require.ErrorAs(t, err, &se)

	_, err = f.svc.AuthorizeSend(context.Background(), agent2, "chat-hina")
	require.ErrorAs(t, err, &se)
}

func TestAuthorizeSendNonParticipant(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-1", buyer, agent1, model.StatusActive, strPtr("sail-1"))

	// Owners read sail chats but never write into them.
	_, err := f.svc.AuthorizeSend(context.Background(), owner, "chat-1")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)
}

func TestAuthorizedForSail(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailInProgress)
	a := agent1
	f.store.sailRows["sail-1"].Agent = &a

	ok, err := f.svc.AuthorizedForSail(context.Background(), agent1, "sail-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.AuthorizedForSail(context.Background(), owner, "sail-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.AuthorizedForSail(context.Background(), agent2, "sail-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.AuthorizedForSail(context.Background(), agent1, "no-such-sail")
	require.NoError(t, err)
	assert.False(t, ok)
}
