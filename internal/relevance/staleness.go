package relevance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeTimePattern = regexp.MustCompile(`(?i)\b(last|this)\s+(week|month|quarter|year)\b`)
	quarterPattern       = regexp.MustCompile(`(?i)\bQ([1-4])\s*(\d{4})\b`)
	yearPattern          = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// DetectStaleness scans a document's content for temporal references older
// than the meeting date: a stale year/quarter mention, or a relative-time
// phrase like "last week"/"this quarter". These are warning-only signals
// (decided open question, spec_full.md §9) — the caller must never use
// this to exclude a document from analysis.
func DetectStaleness(content string, meetingStart time.Time) []string {
	var warnings []string

	for _, m := range relativeTimePattern.FindAllString(content, -1) {
		warnings = append(warnings, fmt.Sprintf("relative time reference: %q", m))
	}

	for _, m := range quarterPattern.FindAllStringSubmatch(content, -1) {
		year, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		quarter, _ := strconv.Atoi(m[1])
		quarterEnd := time.Date(year, time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
		if quarterEnd.Before(meetingStart.AddDate(0, -3, 0)) {
			warnings = append(warnings, fmt.Sprintf("references stale quarter Q%s %s", m[1], m[2]))
		}
	}

	for _, m := range yearPattern.FindAllString(content, -1) {
		year, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if year < meetingStart.Year()-1 {
			warnings = append(warnings, fmt.Sprintf("references stale year %d", year))
		}
	}

	return dedupeStrings(warnings)
}

func dedupeStrings(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		key := strings.ToLower(it)
		if !seen[key] {
			seen[key] = true
			out = append(out, it)
		}
	}
	return out
}
