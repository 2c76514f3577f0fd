package chat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailchat/internal/chat"
	"github.com/sailchat/internal/model"
	"github.com/sailchat/internal/ws"
)

func TestGenerateAgreementSurfacesHiddenChat(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailNotified)
	f.addChat("chat-1", buyer, agent1, model.StatusHidden, strPtr("sail-1"))

	agr, err := f.svc.GenerateAgreement(context.Background(), agent1, "chat-1", "exclusive terms")
	require.NoError(t, err)
	assert.Equal(t, agent1, agr.Agent)
	assert.Equal(t, buyer, agr.Buyer)
	assert.Equal(t, "sail-1", agr.SailID)
	assert.Equal(t, model.AgreementStatusSent, agr.Status)

	// Sending an agreement counts as a reply: the chat surfaces.
	c, err := f.store.GetChat(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, c.Status)

	// The agreement travels as a chat message carrying its id.
	stored, err := f.store.MessagesByChat(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.MessageTypeAgreement, stored[0].MessageType)
	assert.Equal(t, agr.AgentAgreementID, stored[0].MessageBody)
}

func TestGenerateAgreementPendingFooter(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-1", buyer, agent1, model.StatusActive, strPtr("sail-1"))

	f.registry.Connect(buyer, "b-1")
	f.registry.OpenChat(buyer, "b-1", "chat-1")

	_, err := f.svc.GenerateAgreement(context.Background(), agent1, "chat-1", "terms")
	require.NoError(t, err)

	frames := f.pusher.framesOf(buyer, ws.EventNewMessage)
	require.Len(t, frames, 1)
	payload := frames[0].Msg.Payload.(*chat.MessagePayload)
	require.NotNil(t, payload.Agreement)
	assert.Equal(t, "terms", payload.Agreement.AgreementText)
	assert.Equal(t, "View To Accept/Reject", payload.Agreement.Footer)
	assert.Equal(t, "link", payload.Agreement.FooterType)
}

func TestGenerateAgreementOnlyAgentsOnSailChats(t *testing.T) {
	f := newFixture()
	f.addChat("direct", buyer, agent1, model.StatusActive, nil)
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-1", buyer, agent1, model.StatusActive, strPtr("sail-1"))

	_, err := f.svc.GenerateAgreement(context.Background(), agent1, "direct", "terms")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)

	_, err = f.svc.GenerateAgreement(context.Background(), buyer, "chat-1", "terms")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)
}

func TestAcceptAgreementCommitsSailAndShelvesSiblings(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addChat("chat-a2", buyer, agent2, model.StatusHidden, strPtr("sail-1"))
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	agr, err := f.svc.AcceptAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusAccepted, agr.Status)

	stored, err := f.store.GetAgreement(context.Background(), "ag-1")
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusAccepted, stored.Status)
	assert.NotNil(t, stored.ResolutionTime)

	// The winning chat stays open, the competing hidden enquiry is shelved.
	own, _ := f.store.GetChat(context.Background(), "chat-a1")
	assert.Equal(t, model.StatusActive, own.Status)
	sibling, _ := f.store.GetChat(context.Background(), "chat-a2")
	assert.Equal(t, model.StatusHiddenInactive, sibling.Status)

	sail, err := f.store.GetSail(context.Background(), "sail-1")
	require.NoError(t, err)
	assert.Equal(t, model.SailInProgress, sail.SailStatus)
	require.NotNil(t, sail.Agent)
	assert.Equal(t, agent1, *sail.Agent)
	require.NotNil(t, sail.AgentAgreementID)
	assert.Equal(t, "ag-1", *sail.AgentAgreementID)

	// The decision lands in the winning chat as a resolved agreement message.
	msgs, err := f.store.MessagesByChat(context.Background(), "chat-a1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, buyer, msgs[0].From)
	assert.Equal(t, agent1, msgs[0].To)
	require.NotNil(t, msgs[0].AgreementStatus)
	assert.Equal(t, model.AgreementAccepted, *msgs[0].AgreementStatus)
}

func TestAcceptAgreementShelvesSurfacedSibling(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addChat("chat-a2", buyer, agent2, model.StatusActive, strPtr("sail-1"))
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	_, err := f.svc.AcceptAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)

	sibling, _ := f.store.GetChat(context.Background(), "chat-a2")
	assert.Equal(t, model.StatusInactive, sibling.Status)
}

func TestAcceptAgreementBroadcastsEachSiblingMutationToOwner(t *testing.T) {
	f := newFixture()
	f.store.userRows["avery"] = &model.User{UserName: "avery", FirstName: "Avery", LastName: "Cole", EMail: "avery@example.com", Role: model.RoleAgent}
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addChat("chat-a2", buyer, agent2, model.StatusHidden, strPtr("sail-1"))
	f.addChat("chat-a3", buyer, "avery", model.StatusActive, strPtr("sail-1"))
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	f.registry.Connect(owner, "o-list")
	f.registry.EnterChatList(owner, "o-list")

	_, err := f.svc.AcceptAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)

	// Each chat mutation broadcasts on its own: two sibling shelves plus the
	// activity bump from the decision message in the winning chat.
	frames := f.pusher.framesOf(owner, ws.EventChatListUpdate)
	require.Len(t, frames, 3)
	byChat := map[string]string{}
	for _, fr := range frames {
		assert.Equal(t, "o-list", fr.ConnID)
		s := summaryOf(t, fr)
		byChat[s.ChatID] = s.Status
	}
	assert.Equal(t, "Hidden-Inactive", byChat["chat-a2"])
	assert.Equal(t, "Inactive", byChat["chat-a3"])
	assert.Contains(t, byChat, "chat-a1")
}

func TestRejectAgreementReopensCompetition(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailInProgress)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addChat("chat-a2", buyer, agent2, model.StatusHiddenInactive, strPtr("sail-1"))
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	agr, err := f.svc.RejectAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusRejected, agr.Status)

	// The rejected agent's chat closes, the shelved competitor comes back.
	own, _ := f.store.GetChat(context.Background(), "chat-a1")
	assert.Equal(t, model.StatusInactive, own.Status)
	sibling, _ := f.store.GetChat(context.Background(), "chat-a2")
	assert.Equal(t, model.StatusHidden, sibling.Status)

	sail, err := f.store.GetSail(context.Background(), "sail-1")
	require.NoError(t, err)
	assert.Equal(t, model.SailContacted, sail.SailStatus)
	assert.Nil(t, sail.Agent)
	assert.Nil(t, sail.AgentAgreementID)

	msgs, err := f.store.MessagesByChat(context.Background(), "chat-a1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].AgreementStatus)
	assert.Equal(t, model.AgreementRejected, *msgs[0].AgreementStatus)
}

func TestRejectAgreementSkipsPreviouslyRejectedAgents(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailInProgress)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addChat("chat-a2", buyer, agent2, model.StatusInactive, strPtr("sail-1"))
	f.addAgreement("ag-old", agent2, "sail-1", model.AgreementStatusRejected)
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	_, err := f.svc.RejectAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)

	// agent2 was already turned down; their chat does not reopen.
	sibling, _ := f.store.GetChat(context.Background(), "chat-a2")
	assert.Equal(t, model.StatusInactive, sibling.Status)
}

func TestAgreementDecisionsAreFinal(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	_, err := f.svc.AcceptAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)

	_, err = f.svc.AcceptAgreement(context.Background(), buyer, "ag-1")
	assert.ErrorIs(t, err, chat.ErrAgreementResolved)
	_, err = f.svc.RejectAgreement(context.Background(), buyer, "ag-1")
	assert.ErrorIs(t, err, chat.ErrAgreementResolved)
}

func TestAgreementDecisionsBelongToTheBuyer(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	_, err := f.svc.AcceptAgreement(context.Background(), agent2, "ag-1")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)
	_, err = f.svc.AcceptAgreement(context.Background(), buyer, "no-such-agreement")
	assert.ErrorIs(t, err, chat.ErrChatUnavailable)
}

func TestResolvedAgreementFooterShowsDecision(t *testing.T) {
	f := newFixture()
	f.addSail("sail-1", model.SailContacted)
	f.addChat("chat-a1", buyer, agent1, model.StatusActive, strPtr("sail-1"))
	agr := f.addAgreement("ag-1", agent1, "sail-1", model.AgreementStatusSent)

	_, err := f.svc.AcceptAgreement(context.Background(), buyer, "ag-1")
	require.NoError(t, err)

	payload, err := f.svc.FormatMessage(context.Background(), &model.ChatMessage{
		ChatMessageID: "m-1", ChatID: "chat-a1",
		From: agent1, To: buyer,
		MessageType: model.MessageTypeAgreement, MessageBody: agr.AgentAgreementID,
	})
	require.NoError(t, err)
	require.NotNil(t, payload.Agreement)
	assert.Equal(t, "Accepted", payload.Agreement.Footer)
	assert.Equal(t, "text", payload.Agreement.FooterType)
}
