package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailchat/internal/presence"
)

func testClient(userID, connID string) *Client {
	return &Client{
		userID: userID,
		connID: connID,
		send:   make(chan Outgoing, 8),
		done:   make(chan struct{}),
	}
}

func TestHandleEventMirrorsScreensIntoRegistry(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg, 0)
	c := testClient("bella", "conn-1")
	h.addClient(c)

	h.HandleEvent(c, Incoming{Type: EventInChatScreen})
	assert.Equal(t, []string{"conn-1"}, reg.ChatListViewersOf("bella"))

	h.HandleEvent(c, Incoming{Type: EventOpenChat, ChatID: "chat-1"})
	assert.True(t, reg.IsChatOpen("bella", "conn-1", "chat-1"))
	// The chat screen sits on top of the list screen; list membership stays.
	assert.Equal(t, []string{"conn-1"}, reg.ChatListViewersOf("bella"))

	h.HandleEvent(c, Incoming{Type: EventCloseChat})
	assert.False(t, reg.IsChatOpen("bella", "conn-1", "chat-1"))
	assert.Equal(t, []string{"conn-1"}, reg.ChatListViewersOf("bella"))

	// Leaving the list screen closes any conversation still open with it.
	h.HandleEvent(c, Incoming{Type: EventOpenChat, ChatID: "chat-2"})
	h.HandleEvent(c, Incoming{Type: EventLeaveChatScreen})
	assert.Empty(t, reg.ChatListViewersOf("bella"))
	assert.False(t, reg.IsChatOpen("bella", "conn-1", "chat-2"))
}

func TestHandleEventRejectsMalformedFrames(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg, 0)
	c := testClient("bella", "conn-1")
	h.addClient(c)

	h.HandleEvent(c, Incoming{Type: EventOpenChat})
	select {
	case msg := <-c.send:
		assert.Equal(t, EventError, msg.Type)
	default:
		t.Fatal("expected an error frame")
	}

	h.HandleEvent(c, Incoming{Type: "made-up"})
	select {
	case msg := <-c.send:
		assert.Equal(t, EventError, msg.Type)
	default:
		t.Fatal("expected an error frame")
	}
}

func TestPushTargetsOneConnection(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg, 0)
	c1 := testClient("bella", "conn-1")
	c2 := testClient("bella", "conn-2")
	h.addClient(c1)
	h.addClient(c2)

	h.Push("bella", "conn-2", Outgoing{Type: EventNewMessage, Payload: "hi"})
	assert.Empty(t, c1.send)
	require.Len(t, c2.send, 1)

	// A connection id must belong to the addressed user.
	h.Push("amir", "conn-1", Outgoing{Type: EventNewMessage})
	assert.Empty(t, c1.send)

	// Stale connection ids are a silent no-op.
	h.Push("bella", "conn-gone", Outgoing{Type: EventNewMessage})
}

func TestPushToUserFansOutToAllConnections(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg, 0)
	c1 := testClient("bella", "conn-1")
	c2 := testClient("bella", "conn-2")
	other := testClient("amir", "conn-3")
	h.addClient(c1)
	h.addClient(c2)
	h.addClient(other)

	h.PushToUser("bella", Outgoing{Type: EventNewNotification, Payload: "ping"})
	assert.Len(t, c1.send, 1)
	assert.Len(t, c2.send, 1)
	assert.Empty(t, other.send)
}

func TestRemoveClientClearsPresence(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg, 0)
	c := testClient("bella", "conn-1")
	c.cancel = func() {}
	h.addClient(c)
	h.HandleEvent(c, Incoming{Type: EventOpenChat, ChatID: "chat-1"})

	// Avoid closing a nil *websocket.Conn in this in-memory test.
	c.once.Do(func() {})
	h.removeClient(c)

	assert.False(t, reg.IsChatOpen("bella", "conn-1", "chat-1"))
	assert.Empty(t, reg.ConnectionsOf("bella"))
	h.Push("bella", "conn-1", Outgoing{Type: EventNewMessage})
}
