package relevance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
)

// ExtractedContext is the fixed-schema object pass 2 emits (spec.md §4.6).
type ExtractedContext struct {
	WorkingRelationships []string `json:"workingRelationships"`
	ProjectProgress      []string `json:"projectProgress"`
	Blockers             []string `json:"blockers"`
	Decisions            []string `json:"decisions"`
	ActionItems          []string `json:"actionItems"`
	Topics               []string `json:"topics"`
	KeyContext           []string `json:"keyContext"`
	Attachments          []string `json:"attachments"`
	Sentiment            []string `json:"sentiment"`
}

// appendExtraction concatenates two ExtractedContext values field-by-field.
func appendExtraction(a, b ExtractedContext) ExtractedContext {
	return ExtractedContext{
		WorkingRelationships: append(append([]string{}, a.WorkingRelationships...), b.WorkingRelationships...),
		ProjectProgress:      append(append([]string{}, a.ProjectProgress...), b.ProjectProgress...),
		Blockers:             append(append([]string{}, a.Blockers...), b.Blockers...),
		Decisions:            append(append([]string{}, a.Decisions...), b.Decisions...),
		ActionItems:          append(append([]string{}, a.ActionItems...), b.ActionItems...),
		Topics:               append(append([]string{}, a.Topics...), b.Topics...),
		KeyContext:           append(append([]string{}, a.KeyContext...), b.KeyContext...),
		Attachments:          append(append([]string{}, a.Attachments...), b.Attachments...),
		Sentiment:            append(append([]string{}, a.Sentiment...), b.Sentiment...),
	}
}

// threadKey reconstructs thread identity from a normalized subject plus
// sorted participant set (spec.md §3/§4.6).
func threadKey(e model.EmailArtifact) string {
	subject := strings.ToLower(strings.TrimSpace(e.Subject))
	subject = strings.TrimPrefix(subject, "re:")
	subject = strings.TrimPrefix(subject, "fwd:")
	subject = strings.TrimSpace(subject)

	participants := append([]string{}, e.Participants()...)
	sort.Strings(participants)
	return subject + "|" + strings.Join(participants, ",")
}

// ThreadMetadata describes one reconstructed email thread.
type ThreadMetadata struct {
	MessageCount int
	Participants []string
	DateRange    [2]string // formatted start/end, for prompt embedding
}

// groupThreads buckets emails by threadKey and computes per-thread
// metadata (message count, participants, date range).
func groupThreads(emails []model.EmailArtifact) map[string]ThreadMetadata {
	type bucket struct {
		count        int
		participants map[string]bool
		min, max     string
	}
	buckets := map[string]*bucket{}
	for _, e := range emails {
		k := threadKey(e)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{participants: map[string]bool{}}
			buckets[k] = b
		}
		b.count++
		for _, p := range e.Participants() {
			b.participants[p] = true
		}
		d := e.Date.Format("2006-01-02")
		if b.min == "" || d < b.min {
			b.min = d
		}
		if b.max == "" || d > b.max {
			b.max = d
		}
	}

	out := make(map[string]ThreadMetadata, len(buckets))
	for k, b := range buckets {
		var parts []string
		for p := range b.participants {
			parts = append(parts, p)
		}
		sort.Strings(parts)
		out[k] = ThreadMetadata{MessageCount: b.count, Participants: parts, DateRange: [2]string{b.min, b.max}}
	}
	return out
}

// emailExtractionBatch is the number of emails per pass-2 extraction call.
const emailExtractionBatch = 20

// extractEmailContext runs pass 2 in batches of 20 (spec.md §4.6),
// attaching thread metadata to the prompt for each batch.
func (p *Pipeline) extractEmailContext(ctx context.Context, mc MeetingContext, emails []model.EmailArtifact) (ExtractedContext, []string) {
	if len(emails) == 0 || p.llm == nil {
		return ExtractedContext{}, nil
	}

	threads := groupThreads(emails)
	batches := batchSlice(emails, emailExtractionBatch)

	results, failedIdx := runBatchesConcurrently(ctx, batches, func(ctx context.Context, batch []model.EmailArtifact) (ExtractedContext, error) {
		var sb strings.Builder
		for _, e := range batch {
			tm := threads[threadKey(e)]
			fmt.Fprintf(&sb, "Email %s — From: %s Subject: %s Date: %s (thread: %d msgs, %s..%s)\nBody: %s\n\n",
				e.ID, e.From, e.Subject, e.Date.Format("2006-01-02"), tm.MessageCount, tm.DateRange[0], tm.DateRange[1],
				providerclients.TruncateForPrompt(e.Body))
		}

		prompt := fmt.Sprintf(`Extract structured context from these emails related to meeting %q. Respond with JSON matching exactly this schema: {"workingRelationships": [string], "projectProgress": [string], "blockers": [string], "decisions": [string], "actionItems": [string], "topics": [string], "keyContext": [string], "attachments": [string], "sentiment": [string]}. Each array entry is one grounded fact; omit anything not supported by the text.

%s`, mc.Title, sb.String())

		resp, err := llmclient.Call(ctx, p.llm, llmclient.Request{
			Provider: p.provider,
			Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
			JSONMode: true,
		})
		if err != nil {
			return ExtractedContext{}, err
		}
		var parsed ExtractedContext
		if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
			return ExtractedContext{}, fmt.Errorf("%w: %v", model.ErrLLMParseFailure, err)
		}
		return parsed, nil
	})

	var merged ExtractedContext
	for _, r := range results {
		merged = appendExtraction(merged, r)
	}
	return merged, failedBatchLabels("email-extraction", failedIdx)
}

// dedupPrefixRatio is the 0.8-prefix substring-containment heuristic
// spec.md §4.6 calls for: two facts are duplicates if one's first 80% of
// characters is a substring of the other.
const dedupPrefixRatio = 0.8

func isDuplicateFact(a, b string) bool {
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if len(shorter) == 0 {
		return false
	}
	prefixLen := int(float64(len(shorter)) * dedupPrefixRatio)
	if prefixLen == 0 {
		prefixLen = 1
	}
	return strings.Contains(longer, shorter[:prefixLen])
}

func dedupeFacts(facts []string) []string {
	var out []string
	for _, f := range facts {
		dup := false
		for _, existing := range out {
			if isDuplicateFact(f, existing) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	return out
}

// dedupeExtraction applies the prefix-containment heuristic to every field
// of an ExtractedContext independently.
func dedupeExtraction(c ExtractedContext) ExtractedContext {
	return ExtractedContext{
		WorkingRelationships: dedupeFacts(c.WorkingRelationships),
		ProjectProgress:      dedupeFacts(c.ProjectProgress),
		Blockers:             dedupeFacts(c.Blockers),
		Decisions:            dedupeFacts(c.Decisions),
		ActionItems:          dedupeFacts(c.ActionItems),
		Topics:               dedupeFacts(c.Topics),
		KeyContext:           dedupeFacts(c.KeyContext),
		Attachments:          dedupeFacts(c.Attachments),
		Sentiment:            dedupeFacts(c.Sentiment),
	}
}
