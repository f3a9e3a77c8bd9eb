// Package extract pattern-matches message text for structured intelligence
// artifacts: bank accounts, UPI IDs, phone numbers, phishing links and
// suspicious keywords. It is a pure leaf with no session access.
package extract

import (
	"regexp"
	"strings"
)

var (
	// Indian bank account numbers are 9-18 digits.
	bankAccountRe = regexp.MustCompile(`\b\d{9,18}\b`)

	// Indian phone numbers: optional +91/91 prefix, 10 digits starting 6-9.
	phoneRe = regexp.MustCompile(`(\+91[\-\s]?|91[\-\s]?)?[6-9]\d{9}\b`)

	urlRe      = regexp.MustCompile("(?i)https?://[^\\s<>\"{}|\\\\^`\\[\\]]+|www\\.[^\\s<>\"{}|\\\\^`\\[\\]]+")
	shortURLRe = regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co|is\.gd|buff\.ly|ow\.ly|rebrand\.ly)/[a-zA-Z0-9]+\b`)

	upiRe = regexp.MustCompile(`(?i)\b[a-zA-Z0-9._-]+@[a-zA-Z]{2,}\b`)

	separatorRe = regexp.MustCompile(`[\s\-]`)
)

// upiHandles is the closed set of known payment-provider handles. Restricting
// to it avoids flagging ordinary email addresses as UPI IDs.
var upiHandles = map[string]struct{}{
	"upi":        {},
	"paytm":      {},
	"ybl":        {},
	"okaxis":     {},
	"oksbi":      {},
	"okicici":    {},
	"okhdfcbank": {},
	"apl":        {},
	"ibl":        {},
	"axl":        {},
	"gpay":       {},
	"phonepe":    {},
	"airtel":     {},
	"freecharge": {},
}

// suspiciousVocabulary is the fixed keyword list matched case-insensitively
// as substrings.
var suspiciousVocabulary = []string{
	"urgent", "verify now", "account blocked", "KYC", "OTP",
	"lottery", "winner", "prize", "blocked", "suspended",
	"immediately", "verify", "click here", "link", "expire",
}

// Result holds the artifacts found in a single message text. Each slice is
// deduplicated within its kind.
type Result struct {
	BankAccounts       []string
	UPIIDs             []string
	PhoneNumbers       []string
	PhishingLinks      []string
	SuspiciousKeywords []string
}

// Empty reports whether no artifact of any kind was found.
func (r Result) Empty() bool {
	return len(r.BankAccounts) == 0 && len(r.UPIIDs) == 0 &&
		len(r.PhoneNumbers) == 0 && len(r.PhishingLinks) == 0 &&
		len(r.SuspiciousKeywords) == 0
}

// Scan extracts all intelligence artifacts from text. Empty or
// whitespace-only text yields an empty result.
func Scan(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	return Result{
		BankAccounts:       scanBankAccounts(text),
		UPIIDs:             scanUPIIDs(text),
		PhoneNumbers:       scanPhoneNumbers(text),
		PhishingLinks:      scanURLs(text),
		SuspiciousKeywords: scanKeywords(text),
	}
}

// phoneSpans returns the [start,end) offsets of phone matches that are not
// embedded in a longer digit run, which would be an account number instead.
func phoneSpans(text string) [][]int {
	var spans [][]int
	for _, span := range phoneRe.FindAllStringIndex(text, -1) {
		if span[0] > 0 {
			prev := text[span[0]-1]
			if prev >= '0' && prev <= '9' {
				continue
			}
		}
		spans = append(spans, span)
	}
	return spans
}

func scanPhoneNumbers(text string) []string {
	spans := phoneSpans(text)

	numbers := make([]string, 0, len(spans))
	for _, span := range spans {
		numbers = append(numbers, separatorRe.ReplaceAllString(text[span[0]:span[1]], ""))
	}
	return dedupe(numbers)
}

func scanBankAccounts(text string) []string {
	// Phone numbers take precedence: blank them out before looking for
	// account numbers so a prefixed phone is never double-counted.
	stripped := []byte(text)
	for _, span := range phoneSpans(text) {
		for i := span[0]; i < span[1]; i++ {
			stripped[i] = ' '
		}
	}

	matches := bankAccountRe.FindAllString(string(stripped), -1)
	accounts := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) == 10 && m[0] >= '6' && m[0] <= '9' {
			continue // bare 10-digit phone number
		}
		accounts = append(accounts, m)
	}
	return dedupe(accounts)
}

func scanUPIIDs(text string) []string {
	matches := upiRe.FindAllString(text, -1)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		handle := strings.ToLower(m[strings.LastIndex(m, "@")+1:])
		if _, ok := upiHandles[handle]; ok {
			ids = append(ids, m)
		}
	}
	return dedupe(ids)
}

func scanURLs(text string) []string {
	urls := urlRe.FindAllString(text, -1)
	urls = append(urls, shortURLRe.FindAllString(text, -1)...)
	return dedupe(urls)
}

func scanKeywords(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for _, keyword := range suspiciousVocabulary {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			found = append(found, keyword)
		}
	}
	return dedupe(found)
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
