package relevance

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// documentInsightBatch is the parallel-batch size for per-document insight
// extraction (spec.md §4.6: "parallel batches of 5").
const documentInsightBatch = 5

type insightResponse struct {
	Insights []string `json:"insights"`
}

// AnalyzeDocuments runs pass 1 (relevance filter) followed by per-document
// insight extraction (3-10 insights, 20-80 words each — a prompt
// instruction, not a Go-enforced invariant) in parallel batches of 5, then
// a narrative synthesis mirroring the email side.
func (p *Pipeline) AnalyzeDocuments(ctx context.Context, mc MeetingContext, docs []model.DocumentArtifact, meetingStart time.Time) DocumentResult {
	if len(docs) == 0 {
		return DocumentResult{Narrative: "No related documents were found."}
	}

	relevant, reasoning, failedFilter := p.filterDocuments(ctx, mc, docs)

	staleness := map[string][]string{}
	for _, d := range relevant {
		if warnings := DetectStaleness(d.Content, meetingStart); len(warnings) > 0 {
			staleness[d.ID] = warnings
		}
	}

	batches := batchSlice(relevant, documentInsightBatch)
	results, failedIdx := runBatchesConcurrently(ctx, batches, func(ctx context.Context, batch []model.DocumentArtifact) ([]DocumentInsight, error) {
		return p.extractDocumentInsights(ctx, mc, batch)
	})

	var insights []DocumentInsight
	for _, r := range results {
		insights = append(insights, r...)
	}

	narrative := p.synthesizeDocumentNarrative(ctx, mc, insights, staleness)

	return DocumentResult{
		Narrative:     narrative,
		Insights:      insights,
		Reasoning:     reasoning,
		Staleness:     staleness,
		FailedBatches: append(failedFilter, failedBatchLabels("document-insights", failedIdx)...),
	}
}

func (p *Pipeline) extractDocumentInsights(ctx context.Context, mc MeetingContext, batch []model.DocumentArtifact) ([]DocumentInsight, error) {
	if p.llm == nil {
		return nil, fmt.Errorf("relevance: no llm client configured")
	}

	out := make([]DocumentInsight, 0, len(batch))
	for _, d := range batch {
		prompt := fmt.Sprintf(`Extract 3-10 insights (20-80 words each) from this document relevant to meeting %q. Respond with JSON: {"insights": [string]}.

Document: %s
Owner: %s
Content: %s`, mc.Title, d.Name, d.Owner, d.Content)

		resp, err := llmclient.Call(ctx, p.llm, llmclient.Request{
			Provider: p.provider,
			Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
			JSONMode: true,
		})
		if err != nil {
			continue // one document's failure doesn't sink the whole batch
		}
		var parsed insightResponse
		if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
			continue
		}
		if len(parsed.Insights) > 0 {
			out = append(out, DocumentInsight{DocumentID: d.ID, Insights: parsed.Insights})
		}
	}
	if len(out) == 0 && len(batch) > 0 {
		return nil, fmt.Errorf("%w: no document in batch produced insights", model.ErrLLMParseFailure)
	}
	return out, nil
}
