package domain

// IntelligenceRecord holds the artifacts extracted from one or more messages.
// Field names on the wire match the report consumer's schema.
type IntelligenceRecord struct {
	BankAccounts       StringSet `json:"bankAccounts"`
	UPIIDs             StringSet `json:"upiIds"`
	PhishingLinks      StringSet `json:"phishingLinks"`
	PhoneNumbers       StringSet `json:"phoneNumbers"`
	SuspiciousKeywords StringSet `json:"suspiciousKeywords"`
}

// Merge appends every value from other that is not already present,
// preserving the order values were first seen. It returns the number of
// new values.
func (r *IntelligenceRecord) Merge(other IntelligenceRecord) int {
	n := r.BankAccounts.Add(other.BankAccounts.items...)
	n += r.UPIIDs.Add(other.UPIIDs.items...)
	n += r.PhishingLinks.Add(other.PhishingLinks.items...)
	n += r.PhoneNumbers.Add(other.PhoneNumbers.items...)
	n += r.SuspiciousKeywords.Add(other.SuspiciousKeywords.items...)
	return n
}

// Clone returns a deep copy.
func (r IntelligenceRecord) Clone() IntelligenceRecord {
	return IntelligenceRecord{
		BankAccounts:       r.BankAccounts.Clone(),
		UPIIDs:             r.UPIIDs.Clone(),
		PhishingLinks:      r.PhishingLinks.Clone(),
		PhoneNumbers:       r.PhoneNumbers.Clone(),
		SuspiciousKeywords: r.SuspiciousKeywords.Clone(),
	}
}

// IsEmpty reports whether all five categories are empty.
func (r IntelligenceRecord) IsEmpty() bool {
	return r.Total() == 0
}

// Total returns the number of values across all categories.
func (r IntelligenceRecord) Total() int {
	return r.BankAccounts.Len() + r.UPIIDs.Len() + r.PhishingLinks.Len() +
		r.PhoneNumbers.Len() + r.SuspiciousKeywords.Len()
}
