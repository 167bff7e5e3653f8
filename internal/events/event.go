// Package events fans out session and report events to WebSocket listeners.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeSessionUpdated   = "session.updated"
	TypeReportDispatched = "report.dispatched"
	TypeReportDelivered  = "report.delivered"
	TypeReportFailed     = "report.failed"
)

// Event is one entry in the live feed.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	ReportID  string    `json:"reportId,omitempty"`
	Time      time.Time `json:"time"`
	Data      any       `json:"data,omitempty"`
}

// New builds an event stamped with a fresh ID and the current time.
func New(typ, sessionID string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SessionID: sessionID,
		Time:      time.Now().UTC(),
		Data:      data,
	}
}

// Publisher accepts events. Implementations must not block the caller.
type Publisher interface {
	Publish(ev Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
