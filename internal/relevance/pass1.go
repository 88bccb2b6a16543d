package relevance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// strictnessBand returns the target inclusion range [min,max] for a given
// purpose-detection confidence, per spec.md §4.6's three confidence bands.
// These are targets communicated to the LLM prompt, not enforced ratios.
type strictnessBand struct{ min, max float64 }

func docBand(confidence float64) strictnessBand {
	switch {
	case confidence < 0.4:
		return strictnessBand{0.20, 0.40}
	case confidence < 0.7:
		return strictnessBand{0.40, 0.60}
	default:
		return strictnessBand{0.50, 0.70}
	}
}

func emailBand(confidence float64) strictnessBand {
	switch {
	case confidence < 0.4:
		return strictnessBand{0.30, 0.50}
	case confidence < 0.7:
		return strictnessBand{0.50, 0.70}
	default:
		return strictnessBand{0.60, 0.80}
	}
}

type filterResponse struct {
	RelevantIndices []int             `json:"relevant_indices"`
	Reasoning       map[string]string `json:"reasoning"`
}

func (p *Pipeline) filterEmails(ctx context.Context, mc MeetingContext, emails []model.EmailArtifact) ([]model.EmailArtifact, map[string]string, []string) {
	batches := batchSlice(emails, p.batch.EmailClassifyBatch)
	band := emailBand(mc.Confidence)

	type batchOut struct {
		emails    []model.EmailArtifact
		reasoning map[string]string
	}
	results, failedIdx := runBatchesConcurrently(ctx, batches, func(ctx context.Context, batch []model.EmailArtifact) (batchOut, error) {
		resp, err := p.callFilter(ctx, mc, band, "email", summarizeEmails(batch))
		if err != nil {
			return batchOut{}, err
		}
		out := batchOut{reasoning: map[string]string{}}
		for _, idx := range resp.RelevantIndices {
			if idx < 0 || idx >= len(batch) {
				continue
			}
			out.emails = append(out.emails, batch[idx])
			if reason, ok := resp.Reasoning[strconv.Itoa(idx)]; ok {
				out.reasoning[batch[idx].ID] = reason
			}
		}
		return out, nil
	})

	var relevant []model.EmailArtifact
	reasoning := map[string]string{}
	for _, r := range results {
		relevant = append(relevant, r.emails...)
		for k, v := range r.reasoning {
			reasoning[k] = v
		}
	}
	return relevant, reasoning, failedBatchLabels("email", failedIdx)
}

func (p *Pipeline) filterDocuments(ctx context.Context, mc MeetingContext, docs []model.DocumentArtifact) ([]model.DocumentArtifact, map[string]string, []string) {
	batches := batchSlice(docs, p.batch.DocumentAnalyzeBatch)
	band := docBand(mc.Confidence)

	type batchOut struct {
		docs      []model.DocumentArtifact
		reasoning map[string]string
	}
	results, failedIdx := runBatchesConcurrently(ctx, batches, func(ctx context.Context, batch []model.DocumentArtifact) (batchOut, error) {
		resp, err := p.callFilter(ctx, mc, band, "document", summarizeDocs(batch))
		if err != nil {
			return batchOut{}, err
		}
		out := batchOut{reasoning: map[string]string{}}
		for _, idx := range resp.RelevantIndices {
			if idx < 0 || idx >= len(batch) {
				continue
			}
			out.docs = append(out.docs, batch[idx])
			if reason, ok := resp.Reasoning[strconv.Itoa(idx)]; ok {
				out.reasoning[batch[idx].ID] = reason
			}
		}
		return out, nil
	})

	var relevant []model.DocumentArtifact
	reasoning := map[string]string{}
	for _, r := range results {
		relevant = append(relevant, r.docs...)
		for k, v := range r.reasoning {
			reasoning[k] = v
		}
	}

	// Keep only the top-N most relevant by recency tiebreak (spec.md §4.6).
	sortByModifiedDesc(relevant)
	if len(relevant) > maxRelevantDocuments {
		relevant = relevant[:maxRelevantDocuments]
	}
	return relevant, reasoning, failedBatchLabels("document", failedIdx)
}

func (p *Pipeline) callFilter(ctx context.Context, mc MeetingContext, band strictnessBand, kind, artifactSummary string) (*filterResponse, error) {
	if p.llm == nil {
		return &filterResponse{}, fmt.Errorf("relevance: no llm client configured")
	}

	prompt := fmt.Sprintf(`You are filtering %ss for relevance to an upcoming meeting. Target including roughly %.0f%%-%.0f%% of the %ss given — this is a guideline, not a hard ratio. Suppress internal-newsletter or HR-broadcast noise from the company %q.

Meeting: %s
Understood purpose: %s
Key entities: %s
Purpose-detection confidence: %.2f

%ss (indexed from 0):
%s

Respond with JSON: {"relevant_indices": [int], "reasoning": {"<index>": "short reason"}}.`,
		kind, band.min*100, band.max*100, kind, mc.CompanyName,
		mc.Title, mc.Purpose, strings.Join(mc.KeyEntities, ", "), mc.Confidence,
		strings.ToUpper(kind[:1])+kind[1:], artifactSummary)

	resp, err := llmclient.Call(ctx, p.llm, llmclient.Request{
		Provider: p.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed filterResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrLLMParseFailure, err)
	}
	return &parsed, nil
}

func summarizeEmails(emails []model.EmailArtifact) string {
	var sb strings.Builder
	for i, e := range emails {
		fmt.Fprintf(&sb, "[%d] From: %s Subject: %s Date: %s Snippet: %s\n", i, e.From, e.Subject, e.Date.Format("2006-01-02"), e.Snippet)
	}
	return sb.String()
}

func summarizeDocs(docs []model.DocumentArtifact) string {
	var sb strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&sb, "[%d] Name: %s Owner: %s ModifiedTime: %s\n", i, d.Name, d.Owner, d.ModifiedTime.Format("2006-01-02"))
	}
	return sb.String()
}

func failedBatchLabels(kind string, idx []int) []string {
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = fmt.Sprintf("%s-batch-%d", kind, n)
	}
	return out
}

func sortByModifiedDesc(docs []model.DocumentArtifact) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ModifiedTime.After(docs[j].ModifiedTime) })
}
