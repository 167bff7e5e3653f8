package domain

import (
	"encoding/json"
	"time"
)

// Report delivery states recorded in the ledger.
const (
	ReportPending   = "pending"
	ReportDelivered = "delivered"
	ReportFailed    = "failed"
)

// ReportRecord is one dispatched report and its delivery outcome.
type ReportRecord struct {
	ReportID  string          `json:"reportId"`
	SessionID string          `json:"sessionId"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"lastError,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
