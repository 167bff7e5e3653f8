package report

import "github.com/ashureev/honeypot/internal/domain"

// Payload is the JSON body posted to the report endpoint.
type Payload struct {
	SessionID              string                    `json:"sessionId"`
	ScamDetected           bool                      `json:"scamDetected"`
	TotalMessagesExchanged int                       `json:"totalMessagesExchanged"`
	ExtractedIntelligence  domain.IntelligenceRecord `json:"extractedIntelligence"`
	AgentNotes             string                    `json:"agentNotes"`
}

// NewPayload builds the report body from a session snapshot.
func NewPayload(s domain.SessionState) Payload {
	return Payload{
		SessionID:              s.SessionID,
		ScamDetected:           s.Flagged,
		TotalMessagesExchanged: s.MessageCount,
		ExtractedIntelligence:  s.Intelligence.Clone(),
		AgentNotes:             s.NotesSummary(),
	}
}
