// Package chat implements message fan-out, chat-list broadcasting and
// conversation access control on top of the presence registry. Persistence,
// user/role lookup and mail delivery are collaborators behind narrow
// interfaces so the engine can be exercised without a database.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
	"github.com/sailchat/internal/ws"
)

// ChatStore persists conversations. Save semantics follow the repositories:
// a patch with a ChatID updates that row and rereads it, without one it inserts.
type ChatStore interface {
	GetChat(ctx context.Context, chatID string) (*model.Chat, error)
	FindChatBetween(ctx context.Context, userA, userB string) (*model.Chat, error)
	ChatsBySail(ctx context.Context, sailID string) ([]model.Chat, error)
	ChatsByUser(ctx context.Context, user string) ([]model.Chat, error)
	// ChatsByOwner returns the sail chats running over properties the user owns.
	ChatsByOwner(ctx context.Context, owner string) ([]model.Chat, error)
	InsertChat(ctx context.Context, c *model.Chat) error
	UpdateChat(ctx context.Context, p model.ChatPatch) error
	CountUnread(ctx context.Context, chatID, user string) (int, error)
	// CountChatsWithUnread counts distinct chats holding unread messages for user.
	CountChatsWithUnread(ctx context.Context, user string) (int, error)
}

// MessageStore persists chat messages. MarkMessageRead is the single
// authoritative false→true flip of the read flag.
type MessageStore interface {
	InsertMessage(ctx context.Context, m *model.ChatMessage) error
	MarkMessageRead(ctx context.Context, chatMessageID string) error
	// MarkChatRead flips every unread message addressed to user in the chat.
	MarkChatRead(ctx context.Context, chatID, user string) error
	MessagesByChat(ctx context.Context, chatID string) ([]model.ChatMessage, error)
}

// UserDirectory resolves an identity to profile fields and role name.
type UserDirectory interface {
	GetUser(ctx context.Context, userName string) (*model.User, error)
}

// SailDirectory resolves sails to properties, owners and addresses.
type SailDirectory interface {
	GetSail(ctx context.Context, sailID string) (*model.SailRecord, error)
	OpenSailByPropertyBuyer(ctx context.Context, propertyID, buyer string) (*model.SailRecord, error)
	GetProperty(ctx context.Context, propertyID string) (*model.Property, error)
	PropertyByOwner(ctx context.Context, owner string) (*model.Property, error)
	PropertyByAgent(ctx context.Context, agent string) (*model.Property, error)
	GetAddress(ctx context.Context, addressID string) (*model.Address, error)
	InsertSail(ctx context.Context, s *model.SailRecord) error
	UpdateSail(ctx context.Context, sailID string, agent, agreementID *string, status model.SailStatus) error
}

// AgreementStore persists agent agreements.
type AgreementStore interface {
	GetAgreement(ctx context.Context, id string) (*model.AgentAgreement, error)
	InsertAgreement(ctx context.Context, a *model.AgentAgreement) error
	ResolveAgreement(ctx context.Context, id string, status model.AgreementStatus, at time.Time) error
	AgreementsBySail(ctx context.Context, sailID string) ([]model.AgentAgreement, error)
}

// AttachmentStore resolves document/image ids referenced by message bodies.
type AttachmentStore interface {
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetImage(ctx context.Context, id string) (*model.Image, error)
}

// Presence answers who is connected and what each connection is viewing.
// Implemented by *presence.Registry.
type Presence interface {
	IsChatOpen(user, connID, chatID string) bool
	ConnectionsOf(user string) []string
	ChatListViewersOf(user string) []string
}

// Pusher delivers one event to one live connection. Implemented by *ws.Hub.
// Delivery is fire-and-forget; a dead connection fails harmlessly.
type Pusher interface {
	Push(user, connID string, msg ws.Outgoing)
}

// Mailer sends mail with a custom display name, threading replies against
// threadID when present. Returns the thread id of the sent mail.
type Mailer interface {
	SendWithDisplayName(ctx context.Context, displayName string, to []string, subject, body, threadID string) (string, error)
}

// Config carries the product naming used in fallback mail.
type Config struct {
	// MailFromAddress is the address mail is sent from.
	MailFromAddress string
	// MailFromName is the admin display name ("SailMarket admin").
	MailFromName string
	// AppName appears in "{agent} via {AppName}" display names.
	AppName string
}

type Service struct {
	cfg         Config
	chats       ChatStore
	messages    MessageStore
	users       UserDirectory
	sails       SailDirectory
	agreements  AgreementStore
	attachments AttachmentStore
	presence    Presence
	push        Pusher
	mailer      Mailer
}

func NewService(
	cfg Config,
	chats ChatStore,
	messages MessageStore,
	users UserDirectory,
	sails SailDirectory,
	agreements AgreementStore,
	attachments AttachmentStore,
	presence Presence,
	push Pusher,
	mailer Mailer,
) *Service {
	return &Service{
		cfg:         cfg,
		chats:       chats,
		messages:    messages,
		users:       users,
		sails:       sails,
		agreements:  agreements,
		attachments: attachments,
		presence:    presence,
		push:        push,
		mailer:      mailer,
	}
}

// SaveChat upserts a conversation and broadcasts the updated summary to every
// interested chat-list viewer. Status changes are validated against the
// transition table before the write.
func (s *Service) SaveChat(ctx context.Context, p model.ChatPatch) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.SaveChat", time.Now())()

	var chat *model.Chat
	if p.ChatID != "" {
		current, err := s.chats.GetChat(ctx, p.ChatID)
		if err != nil {
			return nil, fmt.Errorf("save chat %s: %w", p.ChatID, err)
		}
		if p.Status != nil && !current.Status.CanTransition(*p.Status) {
			return nil, fmt.Errorf("save chat %s: %w", p.ChatID,
				&TransitionError{From: current.Status, To: *p.Status})
		}
		if err := s.chats.UpdateChat(ctx, p); err != nil {
			return nil, fmt.Errorf("save chat %s: %w", p.ChatID, err)
		}
		chat, err = s.chats.GetChat(ctx, p.ChatID)
		if err != nil {
			return nil, fmt.Errorf("save chat %s reread: %w", p.ChatID, err)
		}
	} else {
		status := model.StatusActive
		if p.Status != nil {
			status = *p.Status
		}
		if !status.Valid() {
			return nil, fmt.Errorf("save chat: invalid status %d", int(status))
		}
		chat = &model.Chat{
			ChatID: uuid.New().String(),
			User1:  p.User1,
			User2:  p.User2,
			Status: status,
			SailID: p.SailID,
		}
		if p.LastMessageTime != nil {
			chat.LastMessageTime = *p.LastMessageTime
		}
		if err := s.chats.InsertChat(ctx, chat); err != nil {
			return nil, fmt.Errorf("save chat insert: %w", err)
		}
	}

	// Broadcast failures must not fail the save; they are per-target and
	// the next list load repairs any missed update.
	s.broadcastChatList(ctx, chat)
	return chat, nil
}

// InitiateChat finds or creates the direct (no sail) conversation between the
// caller and partner. Direct rooms start Active.
func (s *Service) InitiateChat(ctx context.Context, user, partner string) (*model.Chat, error) {
	chat, err := s.chats.FindChatBetween(ctx, user, partner)
	if err == nil {
		return chat, nil
	}
	if !IsNotFound(err) {
		return nil, fmt.Errorf("initiate chat: %w", err)
	}
	active := model.StatusActive
	return s.SaveChat(ctx, model.ChatPatch{User1: user, User2: partner, Status: &active})
}
