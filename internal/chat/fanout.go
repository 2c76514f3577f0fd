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

// CreateMessage persists a message and runs the delivery pass: pushes to
// every connection that has the chat open, derives the read flag, falls back
// to mail for buyers with no live viewer, and bumps the chat's last-message
// time (which itself broadcasts a chat-list update).
//
// A persistence failure aborts before any side effect. After the message is
// stored, push and mail failures are isolated per target and never surfaced
// to the sender.
func (s *Service) CreateMessage(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error) {
	return s.createMessage(ctx, m, true)
}

func (s *Service) createMessage(ctx context.Context, m *model.ChatMessage, mailFallback bool) (*model.ChatMessage, error) {
	defer logger.DeferLogDuration("chat.CreateMessage", time.Now())()

	chat, err := s.chats.GetChat(ctx, m.ChatID)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if m.ChatMessageID == "" {
		m.ChatMessageID = uuid.New().String()
	}
	if m.Time.IsZero() {
		m.Time = time.Now().UTC()
	}
	if err := s.messages.InsertMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	// Both addresses are scanned: the sender may have the chat open in a
	// second session that also needs the push.
	s.deliverToOpenViewers(ctx, chat, m, m.To, m.From)

	// Mail fallback applies only to sail-linked chats whose recipient is a
	// buyer and whose message no live viewer consumed.
	if mailFallback && chat.SailID != nil && !m.ReadFlag {
		if toUser, err := s.users.GetUser(ctx, m.To); err != nil {
			logger.Errorf("fanout: lookup recipient %s: %v", m.To, err)
		} else if toUser.Role == model.RoleBuyer {
			s.sendChatMail(ctx, chat, m, toUser.EMail)
		}
	}

	// The last-message bump runs regardless of delivery outcomes. It goes
	// through SaveChat so the list broadcaster fires, but it is a chat
	// mutation, not a message event: no fan-out re-entry.
	if _, err := s.SaveChat(ctx, model.ChatPatch{ChatID: m.ChatID, LastMessageTime: &m.Time}); err != nil {
		logger.Errorf("fanout: bump last message time chat=%s: %v", m.ChatID, err)
	}

	// The property owner watches sail rooms read-only; an open viewer gets
	// the push but never triggers the read flip.
	if chat.SailID != nil {
		if owner, err := s.ownerOfSail(ctx, *chat.SailID); err != nil {
			logger.Errorf("fanout: resolve owner for sail %s: %v", *chat.SailID, err)
		} else if owner != m.To && owner != m.From {
			s.deliverToOpenViewers(ctx, chat, m, owner)
		}
	}

	return m, nil
}

// deliverToOpenViewers pushes the message to every connection of the given
// users that currently has the chat open. The first open viewer belonging to
// the recipient flips the read flag, exactly once.
func (s *Service) deliverToOpenViewers(ctx context.Context, chat *model.Chat, m *model.ChatMessage, users ...string) {
	var payload *MessagePayload
	for _, user := range users {
		for _, connID := range s.presence.ConnectionsOf(user) {
			if !s.presence.IsChatOpen(user, connID, m.ChatID) {
				continue
			}
			if user == m.To && !m.ReadFlag {
				if err := s.messages.MarkMessageRead(ctx, m.ChatMessageID); err != nil {
					logger.Errorf("fanout: mark read message=%s: %v", m.ChatMessageID, err)
				} else {
					m.ReadFlag = true
				}
			}
			if payload == nil {
				var err error
				payload, err = s.FormatMessage(ctx, m)
				if err != nil {
					logger.Errorf("fanout: format message=%s: %v", m.ChatMessageID, err)
					return
				}
			} else {
				payload.ReadFlag = m.ReadFlag
			}
			s.push.Push(user, connID, ws.Outgoing{Type: ws.EventNewMessage, Payload: payload})
		}
	}
}

// sendChatMail mails the message to the buyer, threaded on the chat's stored
// mail thread. The thread id returned by the first send is persisted back on
// the chat. Failures are logged and swallowed: the message is already stored
// and delivered where possible.
func (s *Service) sendChatMail(ctx context.Context, chat *model.Chat, m *model.ChatMessage, toEmail string) {
	fromUser, err := s.users.GetUser(ctx, m.From)
	if err != nil {
		logger.Errorf("chat mail: lookup sender %s: %v", m.From, err)
		return
	}
	subject := fmt.Sprintf("You have a new message from %s", fromUser.FullName())
	body := m.MessageBody
	if m.MessageType != model.MessageTypeText {
		body = fmt.Sprintf("The agent, %s, has uploaded a document. Kindly login into the application to view it in the respective chat.", fromUser.FullName())
	}
	displayName := fmt.Sprintf("%s <%s>", s.cfg.MailFromName, s.cfg.MailFromAddress)

	threadID := ""
	if chat.MailThreadID != nil {
		threadID = *chat.MailThreadID
	}
	sentThread, err := s.mailer.SendWithDisplayName(ctx, displayName, []string{toEmail}, subject, body, threadID)
	if err != nil {
		logger.Errorf("chat mail: send chat=%s to=%s: %v", chat.ChatID, m.To, err)
		return
	}
	if threadID == "" && sentThread != "" {
		if _, err := s.SaveChat(ctx, model.ChatPatch{ChatID: chat.ChatID, MailThreadID: &sentThread}); err != nil {
			logger.Errorf("chat mail: store thread id chat=%s: %v", chat.ChatID, err)
		}
	}
}

// ownerOfSail resolves sail → property → owner.
func (s *Service) ownerOfSail(ctx context.Context, sailID string) (string, error) {
	sail, err := s.sails.GetSail(ctx, sailID)
	if err != nil {
		return "", err
	}
	property, err := s.sails.GetProperty(ctx, sail.Property)
	if err != nil {
		return "", err
	}
	return property.Owner, nil
}
