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

// ErrAgreementResolved rejects a second decision on an agreement.
var ErrAgreementResolved = errors.New("agreement already accepted or rejected")

// GenerateAgreement creates an agreement from the agent to the buyer of a
// sail chat and posts it into the conversation as an Agreement message. Only
// the chat's agent participant may generate one, and the chat must be open
// for messaging from the agent's side.
func (s *Service) GenerateAgreement(ctx context.Context, agent, chatID, text string) (*model.AgentAgreement, error) {
	defer logger.DeferLogDuration("chat.GenerateAgreement", time.Now())()

	chat, err := s.AuthorizeSend(ctx, agent, chatID)
	if err != nil {
		return nil, err
	}
	if chat.SailID == nil {
		return nil, ErrChatUnavailable
	}
	sender, err := s.users.GetUser(ctx, agent)
	if err != nil {
		return nil, fmt.Errorf("generate agreement: %w", err)
	}
	if sender.Role != model.RoleAgent {
		return nil, ErrChatUnavailable
	}

	agr := &model.AgentAgreement{
		AgentAgreementID: uuid.New().String(),
		AgreementText:    text,
		Agent:            agent,
		Buyer:            chat.Partner(agent),
		SailID:           *chat.SailID,
		Status:           model.AgreementStatusSent,
		SentTime:         time.Now().UTC(),
	}
	if err := s.agreements.InsertAgreement(ctx, agr); err != nil {
		return nil, fmt.Errorf("generate agreement: %w", err)
	}

	// Sending an agreement counts as a reply: a still-hidden enquiry chat
	// surfaces for the buyer.
	if chat.Status != model.StatusActive {
		active := model.StatusActive
		if _, err := s.SaveChat(ctx, model.ChatPatch{ChatID: chat.ChatID, Status: &active}); err != nil {
			return nil, fmt.Errorf("generate agreement: %w", err)
		}
	}

	msg := &model.ChatMessage{
		ChatID:      chat.ChatID,
		From:        agent,
		To:          agr.Buyer,
		MessageType: model.MessageTypeAgreement,
		MessageBody: agr.AgentAgreementID,
	}
	if _, err := s.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("generate agreement: %w", err)
	}
	return agr, nil
}

// AcceptAgreement records the buyer's acceptance and commits the sail to the
// accepting agent: the sail moves to in-progress with the agent and agreement
// pinned, and every competing chat on the same sail is shelved (hidden rooms
// become hidden-inactive, surfaced rooms become inactive).
func (s *Service) AcceptAgreement(ctx context.Context, buyer, agreementID string) (*model.AgentAgreement, error) {
	defer logger.DeferLogDuration("chat.AcceptAgreement", time.Now())()

	agr, err := s.loadPendingAgreement(ctx, buyer, agreementID)
	if err != nil {
		return nil, err
	}
	if err := s.agreements.ResolveAgreement(ctx, agreementID, model.AgreementStatusAccepted, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("accept agreement %s: %w", agreementID, err)
	}

	siblings, err := s.chats.ChatsBySail(ctx, agr.SailID)
	if err != nil {
		return nil, fmt.Errorf("accept agreement %s: %w", agreementID, err)
	}
	var own *model.Chat
	for i := range siblings {
		sib := &siblings[i]
		if sib.HasParticipant(agr.Agent) {
			own = sib
			continue
		}
		next := model.StatusInactive
		if sib.Status == model.StatusHidden || sib.Status == model.StatusHiddenInactive {
			next = model.StatusHiddenInactive
		}
		s.patchStatus(ctx, sib, next)
	}

	if err := s.sails.UpdateSail(ctx, agr.SailID, &agr.Agent, &agr.AgentAgreementID, model.SailInProgress); err != nil {
		return nil, fmt.Errorf("accept agreement %s: %w", agreementID, err)
	}

	if own != nil {
		msg := &model.ChatMessage{
			ChatID:          own.ChatID,
			From:            buyer,
			To:              agr.Agent,
			MessageType:     model.MessageTypeAgreement,
			MessageBody:     agr.AgentAgreementID,
			AgreementStatus: strPtr(model.AgreementAccepted),
		}
		if _, err := s.CreateMessage(ctx, msg); err != nil {
			logger.Errorf("accept agreement %s: post response: %v", agreementID, err)
		}
	}
	agr.Status = model.AgreementStatusAccepted
	return agr, nil
}

// RejectAgreement records the buyer's rejection and reopens the competition:
// the rejecting agent's chat closes, shelved sibling chats come back (unless
// their agent was itself rejected earlier), and the sail drops back to
// contacted with no committed agent.
func (s *Service) RejectAgreement(ctx context.Context, buyer, agreementID string) (*model.AgentAgreement, error) {
	defer logger.DeferLogDuration("chat.RejectAgreement", time.Now())()

	agr, err := s.loadPendingAgreement(ctx, buyer, agreementID)
	if err != nil {
		return nil, err
	}
	if err := s.agreements.ResolveAgreement(ctx, agreementID, model.AgreementStatusRejected, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("reject agreement %s: %w", agreementID, err)
	}

	rejected, err := s.rejectedAgents(ctx, agr.SailID)
	if err != nil {
		return nil, fmt.Errorf("reject agreement %s: %w", agreementID, err)
	}
	rejected[agr.Agent] = struct{}{}

	siblings, err := s.chats.ChatsBySail(ctx, agr.SailID)
	if err != nil {
		return nil, fmt.Errorf("reject agreement %s: %w", agreementID, err)
	}
	var own *model.Chat
	for i := range siblings {
		sib := &siblings[i]
		if sib.HasParticipant(agr.Agent) {
			own = sib
			continue
		}
		agent := sib.Partner(buyer)
		if _, wasRejected := rejected[agent]; wasRejected {
			continue
		}
		switch sib.Status {
		case model.StatusHiddenInactive:
			s.patchStatus(ctx, sib, model.StatusHidden)
		case model.StatusInactive:
			s.patchStatus(ctx, sib, model.StatusActive)
		}
	}
	if own != nil {
		s.patchStatus(ctx, own, model.StatusInactive)
	}

	if err := s.sails.UpdateSail(ctx, agr.SailID, nil, nil, model.SailContacted); err != nil {
		return nil, fmt.Errorf("reject agreement %s: %w", agreementID, err)
	}

	if own != nil {
		msg := &model.ChatMessage{
			ChatID:          own.ChatID,
			From:            buyer,
			To:              agr.Agent,
			MessageType:     model.MessageTypeAgreement,
			MessageBody:     agr.AgentAgreementID,
			AgreementStatus: strPtr(model.AgreementRejected),
		}
		if _, err := s.CreateMessage(ctx, msg); err != nil {
			logger.Errorf("reject agreement %s: post response: %v", agreementID, err)
		}
	}
	agr.Status = model.AgreementStatusRejected
	return agr, nil
}

// loadPendingAgreement fetches the agreement and checks the caller is its
// buyer and it has not been decided yet.
func (s *Service) loadPendingAgreement(ctx context.Context, buyer, agreementID string) (*model.AgentAgreement, error) {
	agr, err := s.agreements.GetAgreement(ctx, agreementID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrChatUnavailable
		}
		return nil, fmt.Errorf("load agreement %s: %w", agreementID, err)
	}
	if agr.Buyer != buyer {
		return nil, ErrChatUnavailable
	}
	if agr.Status != model.AgreementStatusSent {
		return nil, ErrAgreementResolved
	}
	return agr, nil
}

// rejectedAgents collects agents whose agreement on the sail was rejected.
func (s *Service) rejectedAgents(ctx context.Context, sailID string) (map[string]struct{}, error) {
	all, err := s.agreements.AgreementsBySail(ctx, sailID)
	if err != nil {
		return nil, err
	}
	rejected := make(map[string]struct{})
	for _, a := range all {
		if a.Status == model.AgreementStatusRejected {
			rejected[a.Agent] = struct{}{}
		}
	}
	return rejected, nil
}

// patchStatus writes a single status change through SaveChat so the list
// broadcast fires. Cascade legs are independent: one failed sibling is logged
// and the rest still proceed.
func (s *Service) patchStatus(ctx context.Context, chat *model.Chat, next model.ChatStatus) {
	if chat.Status == next {
		return
	}
	if _, err := s.SaveChat(ctx, model.ChatPatch{ChatID: chat.ChatID, Status: &next}); err != nil {
		logger.Errorf("agreement cascade: chat=%s %s->%s: %v", chat.ChatID, chat.Status, next, err)
	}
}

func strPtr(s string) *string { return &s }
