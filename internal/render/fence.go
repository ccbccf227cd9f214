package render

import "strings"

const fence = "```"

// StripCodeFence removes a markdown code fence wrapped around a model reply.
// Unfenced input is returned unchanged.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, fence) {
		return s
	}
	rest := trimmed[len(fence):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && isLangTag(rest[:nl]) {
		rest = rest[nl+1:]
	} else if len(rest) >= 4 && strings.EqualFold(rest[:4], "html") {
		rest = rest[4:]
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, fence)
	return strings.TrimSpace(rest)
}

func isLangTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '+', r == '_':
		default:
			return false
		}
	}
	return true
}
