package chat

import (
	"context"
	"sort"
	"time"

	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

// ListChats builds the user's chat list, newest activity first. Buyers never
// see hidden or hidden-inactive enquiries; agents see every state under its
// agent-facing wording; owners additionally see the sail chats running over
// their properties.
func (s *Service) ListChats(ctx context.Context, user string) ([]*ChatSummary, error) {
	defer logger.DeferLogDuration("chat.ListChats", time.Now())()

	viewer, err := s.users.GetUser(ctx, user)
	if err != nil {
		return nil, err
	}

	chats, err := s.chats.ChatsByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	if viewer.Role == model.RoleOwner {
		watched, err := s.chats.ChatsByOwner(ctx, user)
		if err != nil {
			return nil, err
		}
		chats = append(chats, watched...)
	}

	summaries := make([]*ChatSummary, 0, len(chats))
	for i := range chats {
		c := &chats[i]
		if viewer.Role == model.RoleBuyer &&
			(c.Status == model.StatusHidden || c.Status == model.StatusHiddenInactive) {
			continue
		}
		summary, err := s.SummaryFor(ctx, c, user)
		if err != nil {
			logger.Errorf("list chats: summary chat=%s user=%s: %v", c.ChatID, user, err)
			continue
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTime.After(summaries[j].LastMessageTime)
	})
	return summaries, nil
}

// UnreadChatCount returns how many chats hold at least one unread message for
// the user. Backs the badge on the chat icon.
func (s *Service) UnreadChatCount(ctx context.Context, user string) (int, error) {
	return s.chats.CountChatsWithUnread(ctx, user)
}
