package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/sailchat/internal/logger"
	"github.com/sailchat/internal/model"
)

// Footer rendered under an agreement bubble while it awaits a decision.
const agreementPendingFooter = "View To Accept/Reject"

// DocumentPayload is the resolved document reference inside a message push.
type DocumentPayload struct {
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	DocumentLink string `json:"documentLink"`
}

type ImagePayload struct {
	ImageID   string `json:"imageId"`
	ImageName string `json:"imageName"`
	ImageLink string `json:"imageLink"`
}

// AgreementPayload carries the agreement text plus a footer line. FooterType
// tells the client whether the footer is an actionable link or plain text.
type AgreementPayload struct {
	AgreementID   string `json:"agreementId"`
	AgreementText string `json:"agreementText"`
	Footer        string `json:"footer"`
	FooterType    string `json:"footerType"`
}

// MessagePayload is the new-message frame pushed to open chat screens.
// Exactly one of Text, Document, Image and Agreement is set, matching
// MessageType.
type MessagePayload struct {
	MessageID   string            `json:"messageId"`
	ChatID      string            `json:"chatId"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	MessageType string            `json:"messageType"`
	ReadFlag    bool              `json:"readFlag"`
	Time        time.Time         `json:"time"`
	Text        string            `json:"text,omitempty"`
	Document    *DocumentPayload  `json:"document,omitempty"`
	Image       *ImagePayload     `json:"image,omitempty"`
	Agreement   *AgreementPayload `json:"agreement,omitempty"`
}

// PartnerInfo is the profile slice shown in a chat-list row.
type PartnerInfo struct {
	UserName   string  `json:"userName"`
	Name       string  `json:"name"`
	ProfilePic *string `json:"profilePic,omitempty"`
}

type PropertyInfo struct {
	PropertyID   string `json:"propertyId"`
	PropertyName string `json:"propertyName"`
	Address      string `json:"address,omitempty"`
}

// ChatSummary is the chat-list-update frame. The participant slots are filled
// by role, so clients never have to guess which side of the room they see:
// buyers get the agent slot, agents get the buyer slot, owners watching a
// sail chat get both.
type ChatSummary struct {
	ChatID          string        `json:"chatId"`
	Status          string        `json:"status"`
	AgentState      string        `json:"agentState,omitempty"`
	SailID          *string       `json:"sailId,omitempty"`
	LastMessageTime time.Time     `json:"lastMessageTime"`
	Unread          int           `json:"unread"`
	Buyer           *PartnerInfo  `json:"buyer,omitempty"`
	Agent           *PartnerInfo  `json:"agent,omitempty"`
	Owner           *PartnerInfo  `json:"owner,omitempty"`
	Property        *PropertyInfo `json:"property,omitempty"`
}

// FormatMessage resolves the stored message into its push payload. For
// document, image and agreement messages the body holds the referenced id and
// is expanded through the attachment and agreement stores.
func (s *Service) FormatMessage(ctx context.Context, m *model.ChatMessage) (*MessagePayload, error) {
	p := &MessagePayload{
		MessageID:   m.ChatMessageID,
		ChatID:      m.ChatID,
		From:        m.From,
		To:          m.To,
		MessageType: m.MessageType.String(),
		ReadFlag:    m.ReadFlag,
		Time:        m.Time,
	}
	switch m.MessageType {
	case model.MessageTypeDocument:
		doc, err := s.attachments.GetDocument(ctx, m.MessageBody)
		if err != nil {
			return nil, fmt.Errorf("format document %s: %w", m.MessageBody, err)
		}
		p.Document = &DocumentPayload{
			DocumentID:   doc.DocumentID,
			DocumentName: doc.DocumentName,
			DocumentLink: doc.DocumentLink,
		}
	case model.MessageTypeImage:
		img, err := s.attachments.GetImage(ctx, m.MessageBody)
		if err != nil {
			return nil, fmt.Errorf("format image %s: %w", m.MessageBody, err)
		}
		p.Image = &ImagePayload{
			ImageID:   img.ImageID,
			ImageName: img.ImageName,
			ImageLink: img.ImageLink,
		}
	case model.MessageTypeAgreement:
		agr, err := s.agreements.GetAgreement(ctx, m.MessageBody)
		if err != nil {
			return nil, fmt.Errorf("format agreement %s: %w", m.MessageBody, err)
		}
		ap := &AgreementPayload{
			AgreementID:   agr.AgentAgreementID,
			AgreementText: agr.AgreementText,
		}
		if agr.Status == model.AgreementStatusSent {
			ap.Footer = agreementPendingFooter
			ap.FooterType = "link"
		} else {
			ap.Footer = agr.Status.String()
			ap.FooterType = "text"
		}
		p.Agreement = ap
	default:
		p.Text = m.MessageBody
	}
	return p, nil
}

// SummaryFor shapes the chat for one user's list. The shape depends on the
// viewer's role, not on which column of the chat row they occupy.
func (s *Service) SummaryFor(ctx context.Context, chat *model.Chat, user string) (*ChatSummary, error) {
	viewer, err := s.users.GetUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("summary viewer %s: %w", user, err)
	}

	summary := &ChatSummary{
		ChatID:          chat.ChatID,
		Status:          chat.Status.String(),
		SailID:          chat.SailID,
		LastMessageTime: chat.LastMessageTime,
	}
	if viewer.Role == model.RoleAgent {
		summary.AgentState = chat.Status.AgentState()
	}

	if chat.HasParticipant(user) {
		if unread, err := s.chats.CountUnread(ctx, chat.ChatID, user); err != nil {
			logger.Errorf("summary: unread chat=%s user=%s: %v", chat.ChatID, user, err)
		} else {
			summary.Unread = unread
		}
		if err := s.fillParticipant(ctx, summary, chat.Partner(user)); err != nil {
			return nil, err
		}
	} else {
		// Owner view of a sail chat: both sides of the conversation.
		if err := s.fillParticipant(ctx, summary, chat.User1); err != nil {
			return nil, err
		}
		if err := s.fillParticipant(ctx, summary, chat.User2); err != nil {
			return nil, err
		}
	}

	s.fillProperty(ctx, summary, chat)
	return summary, nil
}

func (s *Service) fillParticipant(ctx context.Context, summary *ChatSummary, userName string) error {
	u, err := s.users.GetUser(ctx, userName)
	if err != nil {
		return fmt.Errorf("summary participant %s: %w", userName, err)
	}
	info := &PartnerInfo{UserName: u.UserName, Name: u.FullName(), ProfilePic: u.ProfilePic}
	switch u.Role {
	case model.RoleAgent:
		summary.Agent = info
	case model.RoleOwner:
		summary.Owner = info
	default:
		summary.Buyer = info
	}
	return nil
}

// fillProperty attaches the listing behind the conversation. Sail chats
// resolve through the sail record; a direct chat falls back to the agent
// participant's listing. Lookup failures leave the slot empty.
func (s *Service) fillProperty(ctx context.Context, summary *ChatSummary, chat *model.Chat) {
	var property *model.Property
	var err error
	switch {
	case chat.SailID != nil:
		var sail *model.SailRecord
		sail, err = s.sails.GetSail(ctx, *chat.SailID)
		if err == nil {
			property, err = s.sails.GetProperty(ctx, sail.Property)
		}
	case summary.Agent != nil:
		property, err = s.sails.PropertyByAgent(ctx, summary.Agent.UserName)
	default:
		return
	}
	if err != nil {
		if !IsNotFound(err) {
			logger.Errorf("summary: property chat=%s: %v", chat.ChatID, err)
		}
		return
	}

	info := &PropertyInfo{PropertyID: property.PropertyID, PropertyName: property.PropertyName}
	if addr, err := s.sails.GetAddress(ctx, property.Address); err == nil {
		info.Address = addr.AddressLine1
		if addr.AddressLine2 != "" {
			info.Address += ", " + addr.AddressLine2
		}
	}
	summary.Property = info
}
