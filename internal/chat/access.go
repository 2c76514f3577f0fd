package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/sailchat/internal/model"
	"github.com/sailchat/internal/repository"
)

// ErrChatUnavailable is returned both when a chat does not exist and when the
// caller has no right to it. The two cases are deliberately indistinguishable
// from the outside so callers cannot probe for chat existence.
var ErrChatUnavailable = errors.New("chat not found or not accessible")

// StatusError rejects an operation because of the chat's current status.
type StatusError struct {
	Status model.ChatStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("messaging is not allowed while the chat is %s", e.Status)
}

// TransitionError rejects a status write not present in the transition table.
type TransitionError struct {
	From, To model.ChatStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("chat status cannot change from %s to %s", e.From, e.To)
}

// IsNotFound reports whether err is the repository's missing-entity sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// AuthorizeRead loads the chat and verifies the user may see it: a
// participant always may; for sail chats the property owner may as well.
func (s *Service) AuthorizeRead(ctx context.Context, user, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrChatUnavailable
		}
		return nil, err
	}
	if chat.HasParticipant(user) {
		return chat, nil
	}
	if chat.SailID != nil {
		owner, err := s.ownerOfSail(ctx, *chat.SailID)
		if err == nil && owner == user {
			return chat, nil
		}
	}
	return nil, ErrChatUnavailable
}

// AuthorizeSend verifies the user may post into the chat right now. Buyers
// and owners require an Active chat. Agents may additionally post into a
// Hidden sail chat (the first reply, which activates it); Hidden-Inactive and
// Inactive always reject — those states are owned by a competing agent's
// accepted agreement.
func (s *Service) AuthorizeSend(ctx context.Context, user, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrChatUnavailable
		}
		return nil, err
	}
	if !chat.HasParticipant(user) {
		return nil, ErrChatUnavailable
	}
	if chat.Status == model.StatusActive {
		return chat, nil
	}
	if chat.Status == model.StatusHidden && chat.SailID != nil {
		sender, err := s.users.GetUser(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("authorize send: %w", err)
		}
		if sender.Role == model.RoleAgent {
			return chat, nil
		}
	}
	return nil, &StatusError{Status: chat.Status}
}

// AuthorizedForSail reports whether user is the sail's assigned agent or the
// owner of the sail's property.
func (s *Service) AuthorizedForSail(ctx context.Context, user, sailID string) (bool, error) {
	sail, err := s.sails.GetSail(ctx, sailID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if sail.Agent != nil && *sail.Agent == user {
		return true, nil
	}
	property, err := s.sails.GetProperty(ctx, sail.Property)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return property.Owner == user, nil
}
