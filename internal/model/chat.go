package model

import (
	"fmt"
	"time"
)

// ChatStatus is the lifecycle state of a conversation. The numeric values are
// stored as-is in the chats table and referenced by the agreement workflow.
type ChatStatus int

const (
	// StatusHidden: created from expressed interest; invisible to the buyer
	// until the agent responds, visible to the agent as a new enquiry.
	StatusHidden ChatStatus = iota
	// StatusHiddenInactive: hidden for the buyer and inactive for the agent
	// (a competing agent's agreement was accepted before this chat surfaced).
	StatusHiddenInactive
	// StatusInactive: visible but closed for new messages.
	StatusInactive
	// StatusActive: open conversation, messaging allowed.
	StatusActive
)

var chatStatusNames = [...]string{"Hidden", "Hidden-Inactive", "Inactive", "Active"}

// agentChatStates is the wording of each status from the agent's perspective.
var agentChatStates = [...]string{"New Enquiry", "Deprioritized", "Inactive", "Discussion"}

func (s ChatStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ChatStatus(%d)", int(s))
	}
	return chatStatusNames[s]
}

// AgentState returns the agent-facing wording for the status.
func (s ChatStatus) AgentState() string {
	if !s.Valid() {
		return ""
	}
	return agentChatStates[s]
}

// Valid reports whether s is one of the four defined states.
func (s ChatStatus) Valid() bool {
	return s >= StatusHidden && s <= StatusActive
}

// chatTransitions is the status machine driven by the agreement workflow and
// the agent's first reply. Self-transitions are always permitted (status
// rewrites during cascades are idempotent).
var chatTransitions = map[ChatStatus][]ChatStatus{
	StatusHidden:         {StatusActive, StatusHiddenInactive},
	StatusHiddenInactive: {StatusHidden, StatusInactive},
	StatusInactive:       {StatusActive},
	StatusActive:         {StatusInactive},
}

// CanTransition reports whether moving from s to next is a defined transition.
func (s ChatStatus) CanTransition(next ChatStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, t := range chatTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Chat is a conversation between two identities. SailID is set only for
// buyer-agent chats spawned from expressed interest; owner-agent rooms carry
// no sail. MailThreadID correlates the mail-fallback thread.
type Chat struct {
	ChatID          string     `json:"chat_id"`
	User1           string     `json:"user1"`
	User2           string     `json:"user2"`
	Status          ChatStatus `json:"status"`
	SailID          *string    `json:"sail_id,omitempty"`
	MailThreadID    *string    `json:"mail_thread_id,omitempty"`
	LastMessageTime time.Time  `json:"last_message_time"`
}

// HasParticipant reports whether user is one of the two chat parties.
func (c *Chat) HasParticipant(user string) bool {
	return user == c.User1 || user == c.User2
}

// Partner returns the other party of the chat relative to user.
func (c *Chat) Partner(user string) string {
	if c.User1 == user {
		return c.User2
	}
	return c.User1
}

// ChatPatch is a partial chat update applied by the chat save path. Nil fields
// are left untouched; a patch with an empty ChatID inserts a new chat.
type ChatPatch struct {
	ChatID          string
	User1           string
	User2           string
	Status          *ChatStatus
	SailID          *string
	MailThreadID    *string
	LastMessageTime *time.Time
}
