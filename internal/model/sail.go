package model

// SailStatus tracks a purchase negotiation (sail) end to end.
type SailStatus int

const (
	SailNotified SailStatus = iota
	SailContacted
	SailInProgress
	SailRejected
	SailSold
)

// SailRecord links a buyer to a property under negotiation. Agent and
// AgentAgreementID are set when the buyer accepts an agent's agreement and
// cleared again on rejection.
type SailRecord struct {
	SailID           string     `json:"sail_id"`
	Property         string     `json:"property"`
	Buyer            string     `json:"buyer"`
	Agent            *string    `json:"agent,omitempty"`
	AgentAgreementID *string    `json:"agent_agreement_id,omitempty"`
	SailStatus       SailStatus `json:"sail_status"`
}

type Property struct {
	PropertyID   string  `json:"property_id"`
	PropertyName string  `json:"property_name"`
	Owner        string  `json:"owner"`
	Address      string  `json:"address"`
	Agent1       *string `json:"agent1,omitempty"`
	Agent2       *string `json:"agent2,omitempty"`
}

type Address struct {
	AddressID    string `json:"address_id"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
}
