package chat

import (
	"context"
	"time"

	"github.com/sailchat/internal/logger"
)

// History returns the chat's messages in stored order, formatted for the
// client. Fetching as a participant consumes the unread backlog and pushes a
// fresh summary to the reader's open list screens; the owner's read-only view
// touches nothing.
func (s *Service) History(ctx context.Context, user, chatID string) ([]*MessagePayload, error) {
	defer logger.DeferLogDuration("chat.History", time.Now())()

	chat, err := s.AuthorizeRead(ctx, user, chatID)
	if err != nil {
		return nil, err
	}

	if chat.HasParticipant(user) {
		if err := s.messages.MarkChatRead(ctx, chatID, user); err != nil {
			logger.Errorf("history: mark chat read chat=%s user=%s: %v", chatID, user, err)
		} else {
			s.pushSummaryToViewers(ctx, chat, user)
		}
	}

	stored, err := s.messages.MessagesByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	payloads := make([]*MessagePayload, 0, len(stored))
	for i := range stored {
		if chat.HasParticipant(user) {
			// The backlog was just consumed; reflect that without rereading.
			if stored[i].To == user {
				stored[i].ReadFlag = true
			}
		}
		p, err := s.FormatMessage(ctx, &stored[i])
		if err != nil {
			logger.Errorf("history: format message=%s: %v", stored[i].ChatMessageID, err)
			continue
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}
