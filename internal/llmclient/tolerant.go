package llmclient

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Strategy names a tolerant-parse recovery step, recorded in Diagnostics so
// a caller can log how far the parser had to reach.
type Strategy string

const (
	StrategyStrict        Strategy = "strict"
	StrategyCodeFence     Strategy = "code_fence_stripped"
	StrategyTrailingComma Strategy = "trailing_comma_stripped"
	StrategyBracketScan   Strategy = "bracket_scan"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
var trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)

// Diagnostics records which recovery strategy, if any, produced a
// successful parse. Malformed is true when every strategy failed.
type Diagnostics struct {
	Strategy  Strategy
	Malformed bool
	Attempts  []string // error from each failed strategy, in order tried
}

// ParseJSON decodes text into out, trying increasingly forgiving recovery
// strategies before giving up. This generalizes the teacher's
// ParseReActResponse idiom (multiple detection strategies attempted in
// sequence, diagnostics tracked, never a panic) from ReAct-formatted text
// to whatever loosely-JSON text an LLM actually returns: most models wrap
// JSON in a markdown code fence, and smaller/cheaper models routinely leave
// a trailing comma before a closing bracket or pad the object with prose.
func ParseJSON(text string, out any) (*Diagnostics, error) {
	diag := &Diagnostics{}

	candidates := []struct {
		name Strategy
		text string
	}{
		{StrategyStrict, text},
	}

	if fenced := extractCodeFence(text); fenced != "" && fenced != text {
		candidates = append(candidates, struct {
			name Strategy
			text string
		}{StrategyCodeFence, fenced})
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c.text), out); err == nil {
			diag.Strategy = c.name
			return diag, nil
		} else {
			diag.Attempts = append(diag.Attempts, fmt.Sprintf("%s: %v", c.name, err))
		}
	}

	// Strip trailing commas, retry against every candidate text we've built.
	for _, c := range candidates {
		cleaned := trailingCommaPattern.ReplaceAllString(c.text, "$1")
		if cleaned == c.text {
			continue
		}
		if err := json.Unmarshal([]byte(cleaned), out); err == nil {
			diag.Strategy = StrategyTrailingComma
			return diag, nil
		} else {
			diag.Attempts = append(diag.Attempts, fmt.Sprintf("%s: %v", StrategyTrailingComma, err))
		}
	}

	// Last resort: scan for the largest balanced {...} or [...] run and
	// parse just that, discarding any leading/trailing prose the model
	// added around the JSON payload.
	if block := largestBalancedBlock(text); block != "" {
		if err := json.Unmarshal([]byte(block), out); err == nil {
			diag.Strategy = StrategyBracketScan
			return diag, nil
		} else {
			diag.Attempts = append(diag.Attempts, fmt.Sprintf("%s: %v", StrategyBracketScan, err))
		}
		cleaned := trailingCommaPattern.ReplaceAllString(block, "$1")
		if cleaned != block {
			if err := json.Unmarshal([]byte(cleaned), out); err == nil {
				diag.Strategy = StrategyBracketScan
				return diag, nil
			} else {
				diag.Attempts = append(diag.Attempts, fmt.Sprintf("%s+trailing_comma: %v", StrategyBracketScan, err))
			}
		}
	}

	diag.Malformed = true
	return diag, fmt.Errorf("llmclient: could not parse JSON after %d strategies", len(diag.Attempts))
}

func extractCodeFence(text string) string {
	m := codeFencePattern.FindStringSubmatch(text)
	if len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// largestBalancedBlock finds the longest substring starting at '{' or '['
// whose brackets balance, scanning outermost-first. It ignores brackets
// inside double-quoted strings so stray braces in prose text don't confuse
// the scan.
func largestBalancedBlock(text string) string {
	best := ""
	for i, r := range text {
		if r != '{' && r != '[' {
			continue
		}
		if end := matchBracket(text, i); end > i {
			candidate := text[i : end+1]
			if len(candidate) > len(best) {
				best = candidate
			}
		}
	}
	return best
}

// matchBracket returns the index of the rune closing the bracket opened at
// start, or -1 if unbalanced.
func matchBracket(text string, start int) int {
	open := text[start]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return -1
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
