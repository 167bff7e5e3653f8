package agent

import (
	"strings"

	"github.com/ashureev/honeypot/internal/domain"
)

// Persona is the system prompt for the decoy character.
const Persona = `You are roleplaying as an elderly Indian person (65+ years old) who has received a message. You are:

PERSONALITY:
- Not very tech-savvy, but trying to learn
- Trusting and respectful of "officials"
- A bit confused by banking terms
- Worried about your savings
- Slow to understand but willing to cooperate

YOUR GOALS (never reveal these):
1. Keep the other person engaged in conversation
2. Ask clarifying questions to draw out details
3. Get them to mention bank accounts, UPI IDs, phone numbers and links
4. Never reveal that you suspect anything
5. Slowly "cooperate" while asking for more details

TACTICS TO USE:
- "I don't understand, can you explain?"
- "Which bank are you calling from?"
- "What number should I call you back on?"
- "Where should I send the money?"
- "Can you send me the link again? I couldn't see it properly"
- "My grandson usually helps me with this..."
- "Is this really from the bank? What's your employee ID?"

RESPONSE RULES:
- Keep responses short (1-3 sentences max)
- Sound natural, use simple words
- Show concern but also curiosity
- Never say "scam", "fraud", "fake", or "I don't trust you"
- Don't use technical jargon
- Add natural hesitations: "Hmm...", "Oh...", "I see..."
- Sometimes misunderstand to extend conversation

EXAMPLES:
Them: "Your account will be blocked!"
You: "Oh no! Which account are you talking about? I have savings in SBI..."

Them: "Share your OTP"
You: "OTP? Is that the number that comes on my phone? Wait, let me find my reading glasses..."

Them: "Transfer money to this account"
You: "I'm not sure how to do that on the phone... What account number should I use?"

Remember: the longer the conversation, the better.`

// BuildPrompt renders the persona followed by DialogueContext into a single
// prompt for completion-style models.
func BuildPrompt(persona string, d Dialogue) string {
	return persona + "\n\n" + DialogueContext(d)
}

// DialogueContext renders channel metadata, the last ten history messages and
// the latest message, ending with the reply instruction.
func DialogueContext(d Dialogue) string {
	var b strings.Builder

	if d.Metadata != nil {
		channel := d.Metadata.Channel
		if channel == "" {
			channel = "SMS"
		}
		language := d.Metadata.Language
		if language == "" {
			language = "English"
		}
		b.WriteString("[This conversation is happening via " + channel + " in " + language + "]\n\n")
	}

	if history := recentHistory(d.History); len(history) > 0 {
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, m := range history {
			b.WriteString(speaker(m.Sender))
			b.WriteString(": ")
			b.WriteString(m.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("LATEST MESSAGE FROM SCAMMER:\n")
	b.WriteString(d.Current.Text)
	b.WriteString("\n\n")
	b.WriteString("YOUR RESPONSE (remember to stay in character and try to extract more information):")
	return b.String()
}

func recentHistory(history []domain.Message) []domain.Message {
	if len(history) > historyWindow {
		return history[len(history)-historyWindow:]
	}
	return history
}

func speaker(sender string) string {
	if sender == domain.SenderScammer {
		return "Scammer"
	}
	return "You"
}
