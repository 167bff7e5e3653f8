// Package report decides when a session's terminal report fires and
// delivers it to the configured endpoint.
package report

import "github.com/ashureev/honeypot/internal/domain"

// keywordSufficiency is the keyword count that alone makes evidence sufficient.
const keywordSufficiency = 2

// ShouldReport reports whether the terminal report should fire now for s.
// It never fires twice, never for an unflagged session, and never before
// minTurns messages. From there it fires once maxTurns is reached or the
// accumulated intelligence is sufficient.
func ShouldReport(s *domain.SessionState, minTurns, maxTurns int) bool {
	if s.ReportSent || !s.Flagged || s.MessageCount < minTurns {
		return false
	}
	return s.MessageCount >= maxTurns || HasSufficientIntelligence(s.Intelligence)
}

// HasSufficientIntelligence reports whether rec holds at least one concrete
// identifier, or more than two suspicious keywords.
func HasSufficientIntelligence(rec domain.IntelligenceRecord) bool {
	return rec.BankAccounts.Len() > 0 ||
		rec.UPIIDs.Len() > 0 ||
		rec.PhishingLinks.Len() > 0 ||
		rec.PhoneNumbers.Len() > 0 ||
		rec.SuspiciousKeywords.Len() > keywordSufficiency
}
