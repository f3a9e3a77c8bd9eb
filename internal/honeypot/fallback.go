package honeypot

// fallbackReplies keep the scammer engaged when the generator is down.
var fallbackReplies = []string{
	"Ji ji, please tell me more about this. How do I proceed?",
	"Okay beta, but how will I receive the money? What details you need?",
	"This sounds interesting. Where should I send the payment?",
	"I am interested, but first tell me your bank details for verification.",
	"My husband is asking - please share your UPI ID so we can verify.",
	"Haan ji, I understand. What is the account number I should note down?",
	"Beta, is this genuine? Please share your contact number also.",
	"Ok ji, I will do the needful. Just tell me where to pay.",
}

// fallbackReply rotates through the canned replies by turn count so
// consecutive degraded turns do not repeat themselves.
func fallbackReply(turnCount int) string {
	if turnCount < 0 {
		turnCount = 0
	}
	return fallbackReplies[turnCount%len(fallbackReplies)]
}
