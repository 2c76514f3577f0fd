package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sailchat/internal/model"
)

func TestChatStatusTransitions(t *testing.T) {
	allowed := map[model.ChatStatus][]model.ChatStatus{
		model.StatusHidden:         {model.StatusActive, model.StatusHiddenInactive},
		model.StatusHiddenInactive: {model.StatusHidden, model.StatusInactive},
		model.StatusInactive:       {model.StatusActive},
		model.StatusActive:         {model.StatusInactive},
	}
	all := []model.ChatStatus{
		model.StatusHidden, model.StatusHiddenInactive,
		model.StatusInactive, model.StatusActive,
	}

	for _, from := range all {
		for _, to := range all {
			want := from == to
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestChatStatusRejectsUndefinedValues(t *testing.T) {
	assert.False(t, model.ChatStatus(-1).Valid())
	assert.False(t, model.ChatStatus(4).Valid())
	assert.False(t, model.StatusActive.CanTransition(model.ChatStatus(7)))
	assert.False(t, model.ChatStatus(7).CanTransition(model.StatusActive))
}

func TestChatStatusWording(t *testing.T) {
	assert.Equal(t, "Hidden", model.StatusHidden.String())
	assert.Equal(t, "Hidden-Inactive", model.StatusHiddenInactive.String())
	assert.Equal(t, "New Enquiry", model.StatusHidden.AgentState())
	assert.Equal(t, "Deprioritized", model.StatusHiddenInactive.AgentState())
	assert.Equal(t, "Discussion", model.StatusActive.AgentState())
}

func TestChatParticipants(t *testing.T) {
	c := &model.Chat{ChatID: "c1", User1: "ann", User2: "ben"}
	assert.True(t, c.HasParticipant("ann"))
	assert.False(t, c.HasParticipant("eve"))
	assert.Equal(t, "ben", c.Partner("ann"))
	assert.Equal(t, "ann", c.Partner("ben"))
}
