// Package detect scores messages for fraud likelihood and extracts
// structured indicators. All functions are pure and safe for concurrent use.
package detect

import (
	"net/url"
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/patterns"
)

// Rule weights in hundredths so sums stay exact.
const (
	weightUrgency          = 15
	weightThreat           = 20
	weightSensitiveRequest = 25
	weightSensitiveMention = 15
	weightFinancialBait    = 25
	weightAdvanceFee       = 15
	weightImpersonation    = 15
	weightSuspiciousLink   = 20
	weightHistory          = 10

	maxPoints  = 100
	flagPoints = 30
)

// maxListedTerms bounds how many matched terms a reason lists.
const maxListedTerms = 3

// Engine scores and extracts against a pattern library.
type Engine struct {
	lib *patterns.Library
}

// NewEngine creates an engine. A nil library uses the embedded defaults.
func NewEngine(lib *patterns.Library) *Engine {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Engine{lib: lib}
}

// Library returns the pattern library backing the engine.
func (e *Engine) Library() *patterns.Library {
	return e.lib
}

// Score applies the additive rules to text and the prior messages in history.
func (e *Engine) Score(text string, history []string) domain.ScoreResult {
	lower := strings.ToLower(text)
	points := 0
	reasons := make([]string, 0, 4)

	if hits := e.lib.Hits(patterns.Urgency, lower); len(hits) > 0 {
		points += weightUrgency
		reasons = append(reasons, "Urgency tactics: "+listTerms(hits))
	}

	if hits := e.lib.Hits(patterns.Threat, lower); len(hits) > 0 {
		points += weightThreat
		reasons = append(reasons, "Threatening language: "+listTerms(hits))
	}

	if sensitive := e.lib.Hits(patterns.Sensitive, lower); len(sensitive) > 0 {
		if e.lib.Any(patterns.Request, lower) {
			points += weightSensitiveRequest
			reasons = append(reasons, "Requesting sensitive info: "+listTerms(sensitive))
		} else {
			points += weightSensitiveMention
			reasons = append(reasons, "Mentions sensitive data: "+listTerms(sensitive))
		}
	}

	if hits := e.lib.Hits(patterns.Financial, lower); len(hits) > 0 {
		points += weightFinancialBait
		reasons = append(reasons, "Financial bait: "+listTerms(hits))
		if e.lib.Any(patterns.PaymentAction, lower) {
			points += weightAdvanceFee
			reasons = append(reasons, "Requesting payment/fee (advance fee fraud)")
		}
	}

	if hits := e.lib.Hits(patterns.Impersonation, lower); len(hits) > 0 {
		points += weightImpersonation
		reasons = append(reasons, "Possible impersonation: "+listTerms(hits))
	}

	if e.hasSuspiciousLink(text) {
		points += weightSuspiciousLink
		reasons = append(reasons, "Contains suspicious links")
	}

	if len(history) > 0 {
		joined := strings.ToLower(strings.Join(history, " "))
		if e.lib.Any(patterns.Sensitive, joined) {
			points += weightHistory
			reasons = append(reasons, "Previous messages requested sensitive data")
		}
	}

	points = min(max(points, 0), maxPoints)
	return domain.ScoreResult{
		Flagged:    points >= flagPoints,
		Confidence: float64(points) / maxPoints,
		Reasons:    reasons,
	}
}

func (e *Engine) hasSuspiciousLink(text string) bool {
	for _, link := range e.lib.URLPattern().FindAllString(text, -1) {
		if !e.lib.IsLegitimateHost(linkHost(link)) {
			return true
		}
	}
	return false
}

// linkHost returns the host of a matched link, or "" when unparseable.
func linkHost(link string) string {
	raw := link
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func listTerms(terms []string) string {
	if len(terms) > maxListedTerms {
		terms = terms[:maxListedTerms]
	}
	return strings.Join(terms, ", ")
}
