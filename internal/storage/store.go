package storage

import "context"

// Session is what an auth token resolves to.
type Session struct {
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

// SessionPushStore — хранилище сессионных токенов и Web Push подписок.
// Реализации: redis.Client, memory.Client (для -dev без Redis).
//
// Subscriptions are stored as the raw browser JSON; the push sender parses
// them on send so a malformed entry can be dropped instead of poisoning the key.
type SessionPushStore interface {
	SetSession(ctx context.Context, token string, s Session) error
	// GetSession returns a zero Session for an unknown or expired token.
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error

	AddSubscription(ctx context.Context, userName, rawSub string) error
	Subscriptions(ctx context.Context, userName string) ([]string, error)
	RemoveSubscription(ctx context.Context, userName, endpoint string) error

	Close() error
}
