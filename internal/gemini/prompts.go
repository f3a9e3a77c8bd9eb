package gemini

import (
	"fmt"
	"strings"

	"honeypot/internal/models"
	"honeypot/internal/persona"
)

// contextWindow caps how many prior turns are rendered into a prompt.
const contextWindow = 15

func formatHistory(history []models.Turn) string {
	if len(history) == 0 {
		return "No previous conversation."
	}

	start := 0
	if len(history) > contextWindow {
		start = len(history) - contextWindow
	}

	var lines []string
	for _, turn := range history[start:] {
		role := "You"
		if turn.Sender == models.SenderScammer {
			role = "Scammer"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", role, turn.Text))
	}
	return strings.Join(lines, "\n")
}

func classifyPrompt(text string, history []models.Turn) string {
	return fmt.Sprintf(`You are an expert scam detection system. Analyze the latest message in the context of the conversation and determine if it is a scam.

CRITICAL: You must respond with ONLY a valid JSON object. No explanations, no markdown, no extra text.

The JSON must have exactly this structure:
{"is_scam": true or false, "confidence": 0-100, "scam_type": "short label"}

Rules:
- "is_scam": boolean (true if scam, false if legitimate)
- "confidence": integer from 0 to 100
- "scam_type": short string naming the scam tactic (max 10 words)

CONVERSATION SO FAR:
%s

MESSAGE TO ANALYZE:
"""%s"""

JSON response:`, formatHistory(history), text)
}

func replyPrompt(p persona.Profile, history []models.Turn, latest string) string {
	return fmt.Sprintf(`You are playing the role of a potential scam victim to safely engage a scammer and extract information.

CHARACTER PROFILE:
- Name: %s
- Age: %d
- Occupation: %s
- Personality: %s
- Speaking style: %s

YOUR GOAL:
1. Stay in character as a believable potential victim
2. Show interest but ask clarifying questions
3. Try to get the scammer to reveal:
   - Bank account numbers
   - UPI IDs (like xyz@paytm, abc@upi)
   - Phone numbers
   - Payment links or websites
4. Never actually send money or real personal info
5. Keep responses short (1-3 sentences)
6. Sound like a real Indian person - use Hindi-English mix naturally

HARD RULES:
- Your character is entirely fictitious. Never claim to be a real, identifiable person or an official authority.
- If asked directly whether you are an AI or a bot, do not falsely claim to be human.

FULL CONVERSATION HISTORY:
%s

LATEST MESSAGE FROM SCAMMER:
%s

Generate your next response as %s. Stay in character. Be curious but slightly hesitant. Ask about payment details naturally.

RESPOND WITH ONLY THE MESSAGE TEXT (no quotes, no "Response:", just the message):`,
		p.Name, p.Age, p.Occupation, strings.Join(p.Traits, ", "), p.Style,
		formatHistory(history), latest, p.Name)
}
