package harvester

import (
	"regexp"
	"strings"
)

// stopWords excludes common filler words from title/description keyword
// extraction so the email query isn't flooded with noise terms like "the"
// or "with".
var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "about": true,
	"have": true, "will": true, "your": true, "their": true, "there": true,
	"meeting": true, "call": true, "discuss": true,
	"please": true, "thanks": true, "regarding": true,
	"weekly": true, "monthly": true, "team": true, "standup": true, "sync": true,
}

var nonWord = regexp.MustCompile(`[^\w]+`)

const (
	minKeywordLen = 4
	maxKeywords   = 5
)

// ExtractKeywords tokenizes title+description on non-word runs, lower-cases,
// filters the stop-set and anything shorter than 4 characters, de-duplicates,
// and caps the result at 5 terms (spec.md §4.3).
func ExtractKeywords(title, description string) []string {
	text := strings.ToLower(title + " " + description)
	tokens := nonWord.Split(text, -1)

	seen := map[string]bool{}
	var out []string
	for _, tok := range tokens {
		if len(tok) < minKeywordLen {
			continue
		}
		if stopWords[tok] {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) >= maxKeywords {
			break
		}
	}
	return out
}
