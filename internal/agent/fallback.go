package agent

import (
	"context"
	"strings"
)

type cannedReply struct {
	triggers []string
	text     string
}

// First matching rule wins.
var cannedReplies = []cannedReply{
	{[]string{"blocked", "suspended", "closed"},
		"Oh no! Why is this happening? Which account are you referring to?"},
	{[]string{"otp", "pin", "password"},
		"OTP? I'm not sure what that is... My grandson usually helps me with these things. Can you explain?"},
	{[]string{"upi", "transfer", "payment"},
		"I don't know much about UPI. What account should I send to? Can you give me the details?"},
	{[]string{"link", "click", "download"},
		"I can't see the link properly on my phone. Can you send it again or tell me what it says?"},
	{[]string{"call", "phone", "contact"},
		"Okay, what number should I call? I'll write it down..."},
	{[]string{"urgent", "immediately", "hurry"},
		"Please wait, I'm an old person and need time to understand. What exactly do you need from me?"},
	{[]string{"bank", "sbi", "hdfc", "icici"},
		"Is this really from the bank? What is your name and employee ID? I want to be sure..."},
}

const genericReply = "I don't quite understand. Can you please explain again? What do you need me to do?"

// Words that would reveal the persona knows it is talking to a fraudster.
var exposureWords = []string{
	"scam", "fraud", "fake", "scammer", "suspicious",
	"report", "police", "cyber crime", "don't trust",
	"not legitimate", "phishing", "malicious",
}

// FallbackGenerator answers with keyword-triggered canned replies. It never fails.
type FallbackGenerator struct{}

// Name implements Generator.
func (FallbackGenerator) Name() string { return SourceFallback }

// GenerateReply implements Generator.
func (FallbackGenerator) GenerateReply(_ context.Context, _ string, d Dialogue) (string, error) {
	return CannedReply(d.Current.Text), nil
}

// CannedReply picks the canned reply for a scammer message.
func CannedReply(message string) string {
	lower := strings.ToLower(message)
	for _, r := range cannedReplies {
		for _, w := range r.triggers {
			if strings.Contains(lower, w) {
				return r.text
			}
		}
	}
	return genericReply
}

// RevealsDetection reports whether reply contains a word that would break
// the persona.
func RevealsDetection(reply string) bool {
	lower := strings.ToLower(reply)
	for _, w := range exposureWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
