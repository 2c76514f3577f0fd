package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

// ErrEnquiryOpen rejects a repeat interest while the buyer already has a
// sail running on the property.
var ErrEnquiryOpen = errors.New("sail already in progress for this property")

// ExpressInterest opens a sail for the buyer on a property and seeds a hidden
// enquiry chat with each listed agent, carrying the buyer's interest message.
// The chats stay invisible to the buyer until an agent replies. One sail per
// buyer and property at a time: a second interest is rejected until the
// running sail ends rejected or sold.
func (s *Service) ExpressInterest(ctx context.Context, buyer, propertyID string) (*model.SailRecord, error) {
	defer logger.DeferLogDuration("chat.ExpressInterest", time.Now())()

	property, err := s.sails.GetProperty(ctx, propertyID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrChatUnavailable
		}
		return nil, fmt.Errorf("express interest: %w", err)
	}

	if _, err := s.sails.OpenSailByPropertyBuyer(ctx, property.PropertyID, buyer); err == nil {
		return nil, ErrEnquiryOpen
	} else if !IsNotFound(err) {
		return nil, fmt.Errorf("express interest: %w", err)
	}

	sail := &model.SailRecord{
		SailID:     uuid.New().String(),
		Property:   property.PropertyID,
		Buyer:      buyer,
		SailStatus: model.SailNotified,
	}
	if err := s.sails.InsertSail(ctx, sail); err != nil {
		return nil, fmt.Errorf("express interest: %w", err)
	}

	interest := fmt.Sprintf("Hi, I am interested in the property, %s. Kindly revert back with the details.", property.PropertyName)
	hidden := model.StatusHidden
	for _, agent := range []*string{property.Agent1, property.Agent2} {
		if agent == nil {
			continue
		}
		patch := model.ChatPatch{
			User1:  buyer,
			User2:  *agent,
			Status: &hidden,
			SailID: &sail.SailID,
		}
		created, err := s.SaveChat(ctx, patch)
		if err != nil {
			return nil, fmt.Errorf("express interest: seed chat with %s: %w", *agent, err)
		}
		// The interest message gives the enquiry content before the agent
		// ever opens it. No mail fallback: the agent is the recipient.
		m := &model.ChatMessage{
			ChatID:      created.ChatID,
			From:        buyer,
			To:          *agent,
			MessageType: model.MessageTypeText,
			MessageBody: interest,
		}
		if _, err := s.createMessage(ctx, m, false); err != nil {
			return nil, fmt.Errorf("express interest: seed message for %s: %w", *agent, err)
		}
	}
	return sail, nil
}

// Send authorizes, builds and fans out one message from the caller into the
// chat. An agent's first reply to a hidden enquiry additionally surfaces the
// chat, moves the sail to contacted and mails the buyer an introduction in
// place of the usual unread fallback.
func (s *Service) Send(ctx context.Context, from, chatID string, msgType model.MessageType, body string) (*model.ChatMessage, error) {
	chat, err := s.AuthorizeSend(ctx, from, chatID)
	if err != nil {
		return nil, err
	}

	firstReply := chat.Status == model.StatusHidden
	if firstReply {
		if err := s.activateEnquiry(ctx, chat, from); err != nil {
			return nil, fmt.Errorf("send: %w", err)
		}
	}

	m := &model.ChatMessage{
		ChatID:      chat.ChatID,
		From:        from,
		To:          chat.Partner(from),
		MessageType: msgType,
		MessageBody: body,
	}
	return s.createMessage(ctx, m, !firstReply)
}

// activateEnquiry surfaces a hidden enquiry chat after the agent's first
// reply. The status flip is mandatory; the sail bump and the introduction
// mail are best-effort.
func (s *Service) activateEnquiry(ctx context.Context, chat *model.Chat, agent string) error {
	active := model.StatusActive
	updated, err := s.SaveChat(ctx, model.ChatPatch{ChatID: chat.ChatID, Status: &active})
	if err != nil {
		return err
	}
	*chat = *updated

	if chat.SailID == nil {
		return nil
	}
	if err := s.sails.UpdateSail(ctx, *chat.SailID, nil, nil, model.SailContacted); err != nil {
		logger.Errorf("activate enquiry: sail %s: %v", *chat.SailID, err)
	}
	s.sendIntroMail(ctx, chat, agent)
	return nil
}

// sendIntroMail tells the buyer an agent picked up their enquiry. Sent in the
// agent's name so the reply lands with a face on it.
func (s *Service) sendIntroMail(ctx context.Context, chat *model.Chat, agent string) {
	sender, err := s.users.GetUser(ctx, agent)
	if err != nil {
		logger.Errorf("intro mail: lookup agent %s: %v", agent, err)
		return
	}
	buyer, err := s.users.GetUser(ctx, chat.Partner(agent))
	if err != nil {
		logger.Errorf("intro mail: lookup buyer: %v", err)
		return
	}

	propertyName := ""
	if chat.SailID != nil {
		if sail, err := s.sails.GetSail(ctx, *chat.SailID); err == nil {
			if property, err := s.sails.GetProperty(ctx, sail.Property); err == nil {
				propertyName = property.PropertyName
			}
		}
	}

	subject := fmt.Sprintf("Agent contacted you regarding property, %s", propertyName)
	body := fmt.Sprintf("%s has responded to your enquiry. Login into the application to continue the conversation in the respective chat.", sender.FullName())
	displayName := fmt.Sprintf("%s via %s <%s>", sender.FirstName, s.cfg.AppName, s.cfg.MailFromAddress)

	threadID, err := s.mailer.SendWithDisplayName(ctx, displayName, []string{buyer.EMail}, subject, body, "")
	if err != nil {
		logger.Errorf("intro mail: send chat=%s: %v", chat.ChatID, err)
		return
	}
	if chat.MailThreadID == nil && threadID != "" {
		if _, err := s.SaveChat(ctx, model.ChatPatch{ChatID: chat.ChatID, MailThreadID: &threadID}); err != nil {
			logger.Errorf("intro mail: store thread id chat=%s: %v", chat.ChatID, err)
		}
	}
}
