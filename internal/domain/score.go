package domain

// FlagThreshold is the confidence at or above which a message is flagged.
const FlagThreshold = 0.3

// ScoreResult is the outcome of scoring a single message.
type ScoreResult struct {
	Flagged    bool     `json:"is_scam"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}
