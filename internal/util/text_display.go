package util

import (
	"sort"
	"strings"
	"unicode"
)

// Truncate cuts s to at most maxRunes runes without touching its content otherwise.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

func DisplaySnippet(s string, maxRunes int) string {
	return trimClean(s, maxRunes)
}

// EvidenceSnippet picks the sentence(s) of text that share the most terms with query.
func EvidenceSnippet(text, query string, maxRunes int) string {
	text = trimClean(text, 8000)
	if text == "" {
		return ""
	}
	terms := meaningfulTerms(query)
	sentences := SplitSentences(text)
	if len(terms) == 0 || len(sentences) == 0 {
		return trimClean(text, maxRunes)
	}

	type scored struct {
		sentence string
		score    int
	}
	list := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		low := strings.ToLower(s)
		score := 0
		for _, term := range terms {
			if strings.Contains(low, term) {
				score++
			}
		}
		list = append(list, scored{sentence: s, score: score})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score == list[j].score {
			return len(list[i].sentence) < len(list[j].sentence)
		}
		return list[i].score > list[j].score
	})
	if list[0].score == 0 {
		return trimClean(text, maxRunes)
	}
	if len(list) > 1 && list[1].score > 0 {
		return trimClean(list[0].sentence+" "+list[1].sentence, maxRunes)
	}
	return trimClean(list[0].sentence, maxRunes)
}

// SplitSentences splits on terminal punctuation and keeps the punctuation.
func SplitSentences(s string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if x := strings.TrimSpace(b.String()); x != "" {
				out = append(out, x)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "does": {},
	"paper": {}, "based": {}, "answer": {}, "following": {}, "question": {},
}

func meaningfulTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := map[string]struct{}{}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`")
		if len(f) < 3 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func trimClean(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 420
	}
	s = strings.Join(strings.Fields(SanitizeText(s)), " ")
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsPrint(r) {
			out = append(out, r)
		}
	}
	runes := []rune(strings.TrimSpace(string(out)))
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return string(runes)
}
