package models

import (
	"sort"
	"time"
)

// Sender values for a Turn.
const (
	SenderScammer = "scammer"
	SenderUser    = "user"
)

// SessionStatus is the lifecycle state of a conversation.
type SessionStatus string

const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusConcluded SessionStatus = "CONCLUDED"
)

// Turn is a single message within a session. Immutable once recorded.
type Turn struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Verdict is a classifier's assessment of a message.
type Verdict struct {
	IsScam     bool
	Confidence int // 0-100
	ScamType   string
}

// Intelligence accumulates artifacts extracted from scammer messages.
// Sets only grow; merging the same artifacts twice is a no-op.
type Intelligence struct {
	BankAccounts       map[string]struct{}
	UPIIDs             map[string]struct{}
	PhoneNumbers       map[string]struct{}
	PhishingLinks      map[string]struct{}
	SuspiciousKeywords map[string]struct{}
}

// NewIntelligence returns an empty accumulator.
func NewIntelligence() Intelligence {
	return Intelligence{
		BankAccounts:       make(map[string]struct{}),
		UPIIDs:             make(map[string]struct{}),
		PhoneNumbers:       make(map[string]struct{}),
		PhishingLinks:      make(map[string]struct{}),
		SuspiciousKeywords: make(map[string]struct{}),
	}
}

// Merge unions newly extracted artifacts into the accumulator.
func (i Intelligence) Merge(bankAccounts, upiIDs, phoneNumbers, phishingLinks, keywords []string) {
	addAll(i.BankAccounts, bankAccounts)
	addAll(i.UPIIDs, upiIDs)
	addAll(i.PhoneNumbers, phoneNumbers)
	addAll(i.PhishingLinks, phishingLinks)
	addAll(i.SuspiciousKeywords, keywords)
}

// HasValuable reports whether any scammer-controlled channel was captured.
// Keywords alone are not considered valuable.
func (i Intelligence) HasValuable() bool {
	return len(i.BankAccounts) > 0 || len(i.UPIIDs) > 0 ||
		len(i.PhoneNumbers) > 0 || len(i.PhishingLinks) > 0
}

func addAll(set map[string]struct{}, items []string) {
	for _, item := range items {
		set[item] = struct{}{}
	}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Session tracks one honeypot conversation identified by an externally
// supplied session ID.
type Session struct {
	ID           string
	History      []Turn
	Persona      string
	Intelligence Intelligence
	ScamDetected bool
	Classified   bool
	ScamType     string
	Confidence   int
	TurnCount    int
	Status       SessionStatus
	Reported     bool
	CreatedAt    time.Time
	LastActivity time.Time
}

// NewSession creates an active, empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Intelligence: NewIntelligence(),
		Status:       StatusActive,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// AppendTurn records a turn in arrival order.
func (s *Session) AppendTurn(t Turn) {
	s.History = append(s.History, t)
	s.TurnCount++
	s.LastActivity = time.Now()
}

// RecordVerdict merges a classifier verdict. ScamDetected is sticky: once
// true it never reverts, regardless of later verdicts.
func (s *Session) RecordVerdict(v Verdict) {
	s.Classified = true
	if v.IsScam {
		s.ScamDetected = true
		s.ScamType = v.ScamType
		s.Confidence = v.Confidence
	}
}
