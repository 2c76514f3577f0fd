package ws

type EventType string

// Client → server screen-tracking events. They drive the presence registry;
// nothing else travels upstream over the socket (messages are posted over
// HTTP).
const (
	EventInChatScreen    EventType = "in-chat-screen"
	EventOpenChat        EventType = "open-chat"
	EventLeaveChatScreen EventType = "leave-chat-screen"
	EventCloseChat       EventType = "close-chat"
)

// Server → client push events.
const (
	EventNewMessage      EventType = "new-message"
	EventChatListUpdate  EventType = "chat-list-update"
	EventNewNotification EventType = "new-notification"
	EventError           EventType = "error"
)

// Incoming is what the client sends to the server.
type Incoming struct {
	Type   EventType `json:"type"`
	ChatID string    `json:"chat_id,omitempty"`
}

// Outgoing is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type Outgoing struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}
