package model

import "time"

// AgreementStatus of an agent agreement.
type AgreementStatus int

const (
	AgreementStatusSent AgreementStatus = iota
	AgreementStatusAccepted
	AgreementStatusRejected
)

var agreementStatusNames = [...]string{"Sent", AgreementAccepted, AgreementRejected}

func (s AgreementStatus) String() string {
	if s < AgreementStatusSent || s > AgreementStatusRejected {
		return ""
	}
	return agreementStatusNames[s]
}

// AgentAgreement is the document an agent sends a buyer inside a sail chat.
// Agreement-typed chat messages carry the AgentAgreementID in MessageBody.
type AgentAgreement struct {
	AgentAgreementID string          `json:"agent_agreement_id"`
	AgreementText    string          `json:"agreement_text"`
	Agent            string          `json:"agent"`
	Buyer            string          `json:"buyer"`
	SailID           string          `json:"sail_id"`
	Status           AgreementStatus `json:"status"`
	SentTime         time.Time       `json:"sent_time"`
	ResolutionTime   *time.Time      `json:"resolution_time,omitempty"`
}
