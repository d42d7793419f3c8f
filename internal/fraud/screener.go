// Package fraud screens inbound lead submissions for spam and abuse
// signals before any of them reach qualification or storage.
package fraud

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Result is the verdict for a single submission. IsFraud is set when at
// least two independent signals fire; any single weak indicator is
// tolerated.
type Result struct {
	IsFraud bool     `json:"is_fraud"`
	Signals []string `json:"signals"`
}

// Domains of throwaway inbox providers. Matched against the lower-cased
// part after the last "@"; an address without "@" yields an empty domain
// and never matches.
var disposableDomains = map[string]struct{}{
	"tempmail.com":      {},
	"10minutemail.com":  {},
	"guerrillamail.com": {},
	"throwaway.email":   {},
	"mailinator.com":    {},
	"trashmail.com":     {},
}

// Placeholder tokens that show up in obviously fake names.
var genericNameTokens = []string{"test", "demo", "asdf", "admin"}

// Screen evaluates the heuristic checks against a submission. It is
// deterministic, performs no I/O and never fails.
func Screen(name, email, phone, message string) Result {
	var signals []string

	if _, ok := disposableDomains[emailDomain(email)]; ok {
		signals = append(signals, "Disposable email")
	}

	digits := digitsOnly(phone)
	if repeatedSingleDigit(digits) {
		signals = append(signals, "Repeated digits")
	}
	if len(digits) < 10 {
		signals = append(signals, "Phone too short")
	}

	lowerName := strings.ToLower(name)
	for _, token := range genericNameTokens {
		if strings.Contains(lowerName, token) {
			signals = append(signals, "Generic name")
			break
		}
	}
	// Length checks count characters, not bytes, so non-ASCII names and
	// messages are judged the same as Latin-script ones.
	if utf8.RuneCountInString(name) < 3 {
		signals = append(signals, "Name too short")
	}

	if utf8.RuneCountInString(message) < 10 {
		signals = append(signals, "Message too short")
	}

	return Result{
		IsFraud: len(signals) >= 2,
		Signals: signals,
	}
}

func emailDomain(email string) string {
	idx := strings.LastIndex(email, "@")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(email[idx+1:])
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// repeatedSingleDigit reports whether the stripped phone is one digit
// repeated, e.g. "1111111111". Empty input does not count.
func repeatedSingleDigit(digits string) bool {
	if digits == "" {
		return false
	}
	first := digits[0]
	for i := 1; i < len(digits); i++ {
		if digits[i] != first {
			return false
		}
	}
	return true
}
