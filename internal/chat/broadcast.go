package chat

import (
	"context"
	"time"

	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
	"github.com/sailchat/internal/ws"
)

// broadcastChatList pushes a role-shaped summary of the chat to every
// chat-list-viewing connection of every interested user: both participants,
// plus the property owner for sail-linked chats (owners see a read-only view
// of all negotiation threads on their properties).
//
// Cascading mutations (an agreement acceptance touches several sibling chats)
// each trigger their own broadcast; pushes are idempotent UI replacements, so
// no batching or deduplication happens here.
func (s *Service) broadcastChatList(ctx context.Context, chat *model.Chat) {
	defer logger.DeferLogDuration("chat.broadcastChatList", time.Now())()

	for _, user := range []string{chat.User1, chat.User2} {
		s.pushSummaryToViewers(ctx, chat, user)
	}
	if chat.SailID != nil {
		owner, err := s.ownerOfSail(ctx, *chat.SailID)
		if err != nil {
			logger.Errorf("broadcast: resolve owner for sail %s: %v", *chat.SailID, err)
			return
		}
		if owner != chat.User1 && owner != chat.User2 {
			s.pushSummaryToViewers(ctx, chat, owner)
		}
	}
}

// pushSummaryToViewers formats the summary from user's perspective and pushes
// it to each of the user's list-viewing connections. Formatting is skipped
// entirely when the user has no list screen open.
func (s *Service) pushSummaryToViewers(ctx context.Context, chat *model.Chat, user string) {
	viewers := s.presence.ChatListViewersOf(user)
	if len(viewers) == 0 {
		return
	}
	summary, err := s.SummaryFor(ctx, chat, user)
	if err != nil {
		logger.Errorf("broadcast: summary chat=%s user=%s: %v", chat.ChatID, user, err)
		return
	}
	for _, connID := range viewers {
		s.push.Push(user, connID, ws.Outgoing{Type: ws.EventChatListUpdate, Payload: summary})
	}
}
