package util

import "strings"

// SanitizeText drops NUL and other control runes (keeping \n, \r and \t).
// PDF extractors emit them and Postgres text columns reject NUL.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == '\n' || ch == '\r' || ch == '\t':
			b.WriteRune(ch)
		case ch < 0x20 || ch == 0x7f:
		default:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}
