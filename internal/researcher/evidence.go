package researcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
)

// maxEvidenceEmails caps how many of an attendee's emails are sent to the
// extraction LLM call (spec.md §4.7 point 4).
const maxEvidenceEmails = 20

// minFactWords / maxFactWords bound the extraction LLM's fact length; not
// enforced in Go (a prompt instruction), documented here for traceability.
const minFactWords, maxFactWords = 15, 80

// collectEvidence gathers every message in emails where attendee appears
// as From or To, de-duplicated by id, capped at maxEvidenceEmails.
func collectEvidence(attendeeEmail string, emails []model.EmailArtifact) []model.EmailArtifact {
	target := strings.ToLower(attendeeEmail)
	seen := map[string]bool{}
	var out []model.EmailArtifact
	for _, e := range emails {
		if seen[e.ID] {
			continue
		}
		if strings.ToLower(e.From) == target || containsAddr(e.To, target) {
			out = append(out, e)
			seen[e.ID] = true
		}
		if len(out) >= maxEvidenceEmails {
			break
		}
	}
	return out
}

func containsAddr(addrs []string, target string) bool {
	for _, a := range addrs {
		if strings.ToLower(a) == target {
			return true
		}
	}
	return false
}

// extractEmailFacts sends the attendee's email evidence to the extraction
// LLM, tolerating both a bare string array and an array of
// {fact|text: string} objects in the response. Parse failure or an empty
// result falls back to up to 3 metadata-derived facts.
func (r *Researcher) extractEmailFacts(ctx context.Context, attendee model.Attendee, evidence []model.EmailArtifact, company string) []string {
	if len(evidence) == 0 || r.llm == nil {
		return fallbackFacts(attendee, evidence, company)
	}

	var sb strings.Builder
	for _, e := range evidence {
		fmt.Fprintf(&sb, "From: %s Subject: %s Date: %s\n%s\n\n", e.From, e.Subject, e.Date.Format("2006-01-02"), providerclients.TruncateForPrompt(e.Body))
	}

	prompt := fmt.Sprintf(`Extract facts about %s from these emails. Each fact must be %d-%d words, rooted in the email text, no speculation. Respond with a JSON array of strings.

%s`, attendee.Email, minFactWords, maxFactWords, sb.String())

	resp, err := llmclient.Call(ctx, r.llm, llmclient.Request{
		Provider: r.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return fallbackFacts(attendee, evidence, company)
	}

	facts := parseFactsLenient(resp.Text)
	if len(facts) == 0 {
		return fallbackFacts(attendee, evidence, company)
	}
	return facts
}

// parseFactsLenient accepts either ["fact1", "fact2"] or
// [{"fact": "..."}, {"text": "..."}] shapes (spec.md §4.7 point 4).
func parseFactsLenient(text string) []string {
	var strs []string
	if _, err := llmclient.ParseJSON(text, &strs); err == nil && len(strs) > 0 {
		return strs
	}

	var objs []map[string]string
	if _, err := llmclient.ParseJSON(text, &objs); err == nil {
		var out []string
		for _, o := range objs {
			if f, ok := o["fact"]; ok && f != "" {
				out = append(out, f)
			} else if f, ok := o["text"]; ok && f != "" {
				out = append(out, f)
			}
		}
		return out
	}

	return nil
}

// fallbackFacts synthesizes up to 3 facts from metadata when extraction
// fails or produces nothing: inferred company, activity volume, subject
// keywords (spec.md §4.7 point 4).
func fallbackFacts(attendee model.Attendee, evidence []model.EmailArtifact, company string) []string {
	var facts []string
	if company != "" {
		facts = append(facts, fmt.Sprintf("%s appears to be affiliated with %s based on their email domain.", displayOrEmail(attendee), company))
	}
	if len(evidence) > 0 {
		facts = append(facts, fmt.Sprintf("%s has exchanged %d email(s) in the harvested corpus related to this meeting.", displayOrEmail(attendee), len(evidence)))
	}
	if kw := topSubjectKeyword(evidence); kw != "" {
		facts = append(facts, fmt.Sprintf("Recent correspondence with %s references %q.", displayOrEmail(attendee), kw))
	}
	if len(facts) > 3 {
		facts = facts[:3]
	}
	return facts
}

func displayOrEmail(a model.Attendee) string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Email
}

func topSubjectKeyword(evidence []model.EmailArtifact) string {
	if len(evidence) == 0 {
		return ""
	}
	return evidence[0].Subject
}
