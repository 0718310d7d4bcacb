package domain

import "strings"

// NormalizePhoneNumber reduces a human-entered phone number to its digit
// form: a leading "+" and common separator characters (spaces, dashes,
// dots, parentheses) are dropped. Returns ok=false when the input
// contains any other non-digit character or normalizes to nothing.
func NormalizePhoneNumber(raw string) (string, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "+")

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separators are dropped
		default:
			return "", false
		}
	}

	digits := b.String()
	if digits == "" {
		return "", false
	}
	return digits, true
}

// NormalizeSenderID reduces a network sender identifier (e.g.
// "27847826044@s.whatsapp.net") to its digit form for owner matching.
func NormalizeSenderID(senderID string) string {
	id := senderID
	if at := strings.IndexByte(id, '@'); at >= 0 {
		id = id[:at]
	}
	if digits, ok := NormalizePhoneNumber(id); ok {
		return digits
	}
	return id
}
