package domain

import (
	"strings"
	"time"
)

// DefaultNotesSummary is reported when a session has no observation notes yet.
const DefaultNotesSummary = "Scam engagement in progress"

// SessionState holds the accumulated evidence for one conversation.
// Mutating methods are not synchronized; the session store serializes them
// per key.
type SessionState struct {
	SessionID    string
	CreatedAt    time.Time
	LastSeenAt   time.Time
	MessageCount int
	Flagged      bool
	Confidence   float64
	Intelligence IntelligenceRecord
	Notes        StringSet
	ReportSent   bool
}

// NewSessionState returns a zeroed session created at now.
func NewSessionState(sessionID string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:  sessionID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
}

// RecordMessage counts one inbound message.
func (s *SessionState) RecordMessage(now time.Time) {
	s.MessageCount++
	s.LastSeenAt = now
}

// MergeIntelligence unions rec into the accumulated record.
func (s *SessionState) MergeIntelligence(rec IntelligenceRecord) int {
	return s.Intelligence.Merge(rec)
}

// UpgradeFlag marks the session flagged, raises confidence to the running
// maximum and appends unseen reasons to the notes.
func (s *SessionState) UpgradeFlag(confidence float64, reasons []string) {
	s.Flagged = true
	if confidence > s.Confidence {
		s.Confidence = confidence
	}
	s.AddNotes(reasons...)
}

// AddNotes appends non-empty notes that are not already present.
func (s *SessionState) AddNotes(notes ...string) {
	for _, n := range notes {
		if n == "" {
			continue
		}
		s.Notes.Add(n)
	}
}

// MarkReportSent latches ReportSent. It reports whether this call performed
// the false to true transition.
func (s *SessionState) MarkReportSent() bool {
	if s.ReportSent {
		return false
	}
	s.ReportSent = true
	return true
}

// NotesSummary joins the notes with "; ".
func (s *SessionState) NotesSummary() string {
	if s.Notes.Len() == 0 {
		return DefaultNotesSummary
	}
	return strings.Join(s.Notes.Values(), "; ")
}

// DurationSeconds returns whole seconds elapsed since creation.
func (s *SessionState) DurationSeconds(now time.Time) int {
	d := now.Sub(s.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d.Seconds())
}

// Snapshot returns a deep copy safe to read after the lock is released.
func (s *SessionState) Snapshot() SessionState {
	cp := *s
	cp.Intelligence = s.Intelligence.Clone()
	cp.Notes = s.Notes.Clone()
	return cp
}
