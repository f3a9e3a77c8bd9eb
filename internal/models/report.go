package models

// ReportIntelligence is the extracted-intelligence section of the final
// report, with each set rendered as a sorted list.
type ReportIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Report is the final per-session summary delivered to the evaluator sink.
type Report struct {
	SessionID              string             `json:"sessionId"`
	ScamDetected           bool               `json:"scamDetected"`
	TotalMessagesExchanged int                `json:"totalMessagesExchanged"`
	ExtractedIntelligence  ReportIntelligence `json:"extractedIntelligence"`
	AgentNotes             string             `json:"agentNotes"`
}

// IntelligenceLists renders the accumulator as sorted per-kind lists.
func (i Intelligence) IntelligenceLists() ReportIntelligence {
	return ReportIntelligence{
		BankAccounts:       sorted(i.BankAccounts),
		UPIIDs:             sorted(i.UPIIDs),
		PhishingLinks:      sorted(i.PhishingLinks),
		PhoneNumbers:       sorted(i.PhoneNumbers),
		SuspiciousKeywords: sorted(i.SuspiciousKeywords),
	}
}

// MessagePayload is the inner message object of an analyze request.
type MessagePayload struct {
	Sender    string `json:"sender"`
	Text      string `json:"text" binding:"required"`
	Timestamp int64  `json:"timestamp"`
}

// AnalyzeRequest is the inbound turn request.
type AnalyzeRequest struct {
	SessionID           string                 `json:"sessionId" binding:"required"`
	Message             MessagePayload         `json:"message" binding:"required"`
	ConversationHistory []MessagePayload       `json:"conversationHistory"`
	Metadata            map[string]interface{} `json:"metadata"`
}
