package patterns

import (
	"regexp"
	"strings"
)

// Category names a keyword table.
type Category int

const (
	Urgency Category = iota
	Threat
	Request
	Sensitive
	Financial
	Impersonation
	PaymentAction
	// Suspicious is the union of Urgency, Threat and Sensitive, surfaced as
	// keyword intelligence.
	Suspicious
)

func (l *Library) list(c Category) []string {
	switch c {
	case Urgency:
		return l.urgency
	case Threat:
		return l.threat
	case Request:
		return l.request
	case Sensitive:
		return l.sensitive
	case Financial:
		return l.financial
	case Impersonation:
		return l.impersonation
	case PaymentAction:
		return l.paymentAction
	case Suspicious:
		return l.suspicious
	}
	return nil
}

// Hits returns the keywords of category c contained in lower, in table order.
// lower must already be lowercased.
func (l *Library) Hits(c Category, lower string) []string {
	var out []string
	for _, kw := range l.list(c) {
		if strings.Contains(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

// Any reports whether lower contains at least one keyword of category c.
func (l *Library) Any(c Category, lower string) bool {
	for _, kw := range l.list(c) {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Size returns the number of keywords in category c.
func (l *Library) Size(c Category) int {
	return len(l.list(c))
}

// IsLegitimateHost reports whether host equals, or is a subdomain of, an
// allow-listed bank domain.
func (l *Library) IsLegitimateHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, d := range l.legitimateDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Tactics returns a copy of the tactic rules.
func (l *Library) Tactics() []Tactic {
	out := make([]Tactic, len(l.tactics))
	copy(out, l.tactics)
	return out
}

// UPIPattern matches payment handles of the form local@provider.
func (l *Library) UPIPattern() *regexp.Regexp { return upiRe }

// PhonePattern matches phone numbers before normalization.
func (l *Library) PhonePattern() *regexp.Regexp { return phoneRe }

// AccountPattern matches bank account and card-like digit groups.
func (l *Library) AccountPattern() *regexp.Regexp { return accountRe }

// URLPattern matches http(s) and www. links.
func (l *Library) URLPattern() *regexp.Regexp { return urlRe }
