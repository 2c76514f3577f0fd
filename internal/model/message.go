package model

import (
	"strings"
	"time"
)

// MessageType determines how MessageBody is interpreted: raw text, or a
// foreign id into the documents/images/agent_agreements tables.
type MessageType int

const (
	MessageTypeText MessageType = iota
	MessageTypeDocument
	MessageTypeImage
	MessageTypeAgreement
)

var messageTypeNames = [...]string{"Text", "Document", "Image", "Agreement"}

func (t MessageType) String() string {
	if t < MessageTypeText || t > MessageTypeAgreement {
		return ""
	}
	return messageTypeNames[t]
}

// ParseMessageType maps a case-insensitive type word to its MessageType.
// Unknown or empty input falls back to Text, matching the send endpoints.
func ParseMessageType(s string) MessageType {
	for i, name := range messageTypeNames {
		if strings.EqualFold(s, name) {
			return MessageType(i)
		}
	}
	return MessageTypeText
}

// Agreement response annotations carried on Agreement-typed messages.
const (
	AgreementAccepted = "Accepted"
	AgreementRejected = "Rejected"
)

// ChatMessage is one message inside a chat. Immutable after creation except
// for ReadFlag (false to true only) and AgreementStatus.
type ChatMessage struct {
	ChatMessageID   string      `json:"chat_message_id"`
	ChatID          string      `json:"chat_id"`
	From            string      `json:"from"`
	To              string      `json:"to"`
	MessageType     MessageType `json:"message_type"`
	MessageBody     string      `json:"message_body"`
	ReadFlag        bool        `json:"read_flag"`
	AgreementStatus *string     `json:"agreement_status,omitempty"`
	Time            time.Time   `json:"time"`
}
