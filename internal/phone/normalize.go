// Package phone canonicalizes raw phone-number text into international format.
package phone

import "strings"

// Normalize converts a raw phone string into +60-prefixed international
// format using Malaysian numbering conventions. Input that cannot plausibly
// be a phone number is returned unchanged rather than mangled.
func Normalize(raw string) string {
	cleaned := digitsOnly(raw)

	switch {
	case strings.HasPrefix(cleaned, "60"):
		return "+" + cleaned
	case strings.HasPrefix(cleaned, "0"):
		// Local format: 0123456789 -> +60123456789.
		return "+6" + cleaned
	case len(cleaned) >= 9:
		return "+60" + cleaned
	default:
		return raw
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
