package detect

import (
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
	"github.com/ashureev/honeypot/internal/patterns"
)

const (
	minPhoneDigits   = 10
	minAccountDigits = 9
)

var separatorStripper = strings.NewReplacer(" ", "", "-", "", "\t", "", "\n", "", "\r", "")

// Extract pulls payment handles, phone numbers, account numbers, links and
// suspicious keywords out of text. Each category is deduplicated and keeps
// first-seen order.
func (e *Engine) Extract(text string) domain.IntelligenceRecord {
	var rec domain.IntelligenceRecord

	rec.UPIIDs.Add(e.lib.UPIPattern().FindAllString(text, -1)...)

	for _, m := range e.lib.PhonePattern().FindAllString(text, -1) {
		phone := separatorStripper.Replace(m)
		if countDigits(phone) < minPhoneDigits {
			continue
		}
		rec.PhoneNumbers.Add(phone)
	}

	for _, m := range e.lib.AccountPattern().FindAllString(text, -1) {
		digits := separatorStripper.Replace(m)
		if len(digits) < minAccountDigits || isMobileShape(digits) {
			continue
		}
		rec.BankAccounts.Add(digits)
	}

	for _, m := range e.lib.URLPattern().FindAllString(text, -1) {
		if link := strings.TrimRight(m, ".,;:!?'"); link != "" {
			rec.PhishingLinks.Add(link)
		}
	}

	rec.SuspiciousKeywords.Add(e.lib.Hits(patterns.Suspicious, strings.ToLower(text))...)
	return rec
}

// Tactics labels the manipulation tactics present in text.
func (e *Engine) Tactics(text string) []string {
	lower := strings.ToLower(text)
	var labels []string
	for _, t := range e.lib.Tactics() {
		for _, kw := range t.Keywords {
			if strings.Contains(lower, kw) {
				labels = append(labels, t.Label)
				break
			}
		}
	}
	return labels
}

// isMobileShape reports whether digits form an Indian mobile number, either
// bare or with the 91 country code. Such tokens are phone numbers, not accounts.
func isMobileShape(digits string) bool {
	switch {
	case len(digits) == 10:
		return digits[0] >= '6' && digits[0] <= '9'
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2] >= '6' && digits[2] <= '9'
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
