package domain

// Sender values carried by inbound messages.
const (
	SenderScammer = "scammer"
	SenderUser    = "user"
)

// Message is a single conversation turn.
type Message struct {
	Sender    string `json:"sender" validate:"required,oneof=scammer user"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Metadata is optional context about the conversation channel.
type Metadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// HoneypotRequest is the inbound request body.
type HoneypotRequest struct {
	SessionID           string    `json:"sessionId" validate:"required,max=256"`
	Message             Message   `json:"message"`
	ConversationHistory []Message `json:"conversationHistory" validate:"dive"`
	Metadata            *Metadata `json:"metadata,omitempty"`
}

// HistoryTexts returns the text of every history message in order.
func (r HoneypotRequest) HistoryTexts() []string {
	out := make([]string, 0, len(r.ConversationHistory))
	for _, m := range r.ConversationHistory {
		out = append(out, m.Text)
	}
	return out
}

// EngagementMetrics describes how long a conversation has been engaged.
type EngagementMetrics struct {
	EngagementDurationSeconds int `json:"engagementDurationSeconds"`
	TotalMessagesExchanged    int `json:"totalMessagesExchanged"`
}

// HoneypotResponse is returned for every accepted message.
type HoneypotResponse struct {
	Status                string             `json:"status"`
	ScamDetected          bool               `json:"scamDetected"`
	AgentResponse         *string            `json:"agentResponse"`
	EngagementMetrics     EngagementMetrics  `json:"engagementMetrics"`
	ExtractedIntelligence IntelligenceRecord `json:"extractedIntelligence"`
	AgentNotes            string             `json:"agentNotes"`
}

// AnalysisResult is returned by the stateless analyze endpoint.
type AnalysisResult struct {
	IsScam                bool               `json:"is_scam"`
	Confidence            float64            `json:"confidence"`
	Reasons               []string           `json:"reasons"`
	ExtractedIntelligence IntelligenceRecord `json:"extracted_intelligence"`
}
