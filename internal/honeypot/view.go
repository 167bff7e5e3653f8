package honeypot

import (
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

// SessionView is the JSON shape of a session for inspection and events.
type SessionView struct {
	SessionID             string                    `json:"sessionId"`
	CreatedAt             time.Time                 `json:"createdAt"`
	LastSeenAt            time.Time                 `json:"lastSeenAt"`
	MessageCount          int                       `json:"totalMessagesExchanged"`
	ScamDetected          bool                      `json:"scamDetected"`
	Confidence            float64                   `json:"confidence"`
	ExtractedIntelligence domain.IntelligenceRecord `json:"extractedIntelligence"`
	AgentNotes            string                    `json:"agentNotes"`
	ReportSent            bool                      `json:"reportSent"`
}

// NewSessionView renders st.
func NewSessionView(st domain.SessionState) SessionView {
	return SessionView{
		SessionID:             st.SessionID,
		CreatedAt:             st.CreatedAt,
		LastSeenAt:            st.LastSeenAt,
		MessageCount:          st.MessageCount,
		ScamDetected:          st.Flagged,
		Confidence:            st.Confidence,
		ExtractedIntelligence: st.Intelligence,
		AgentNotes:            st.NotesSummary(),
		ReportSent:            st.ReportSent,
	}
}
