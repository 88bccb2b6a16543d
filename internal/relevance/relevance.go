// Package relevance is RelevanceFilterPipeline (spec.md §4.6): a two-pass
// batched LLM filter over harvested emails and documents that extracts
// structured context, de-duplicates it, and synthesizes a narrative for
// each artifact class.
package relevance

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// MeetingContext is the struct every relevance/extraction/synthesis call is
// parameterized by: title, understood purpose, key entities, and the
// purpose-detection confidence that modulates filter strictness.
type MeetingContext struct {
	Title      string
	Purpose    string
	KeyEntities []string
	Confidence float64
	CompanyName string // user's company, for internal-newsletter noise suppression
}

// maxRelevantDocuments is the top-N-by-recency cap on documents that
// survive pass 1 (spec.md §4.6).
const maxRelevantDocuments = 20

// Pipeline runs the relevance filter + extraction + synthesis stages for
// both emails and documents.
type Pipeline struct {
	llm      llmclient.Client
	provider *config.LLMProviderConfig
	batch    *config.BatchConfig
	scoring  *config.ScoringConfig
}

// New builds a Pipeline.
func New(llm llmclient.Client, provider *config.LLMProviderConfig, batch *config.BatchConfig, scoring *config.ScoringConfig) *Pipeline {
	return &Pipeline{llm: llm, provider: provider, batch: batch, scoring: scoring}
}

// EmailResult is the output of the email side of the pipeline: the
// narrative synthesis, the de-duplicated structured extraction, and the
// per-email relevance reasoning for _extraction_data.
type EmailResult struct {
	Narrative  string
	Extraction ExtractedContext
	Reasoning  map[string]string
	FailedBatches []string
}

// DocumentResult is the output of the document side of the pipeline.
type DocumentResult struct {
	Narrative  string
	Insights   []DocumentInsight
	Reasoning  map[string]string
	Staleness  map[string][]string
	FailedBatches []string
}

// DocumentInsight holds 3-10 extracted insights (20-80 words each, not
// enforced in Go — that's a prompt-engineering concern delegated to the
// LLM call) for one document.
type DocumentInsight struct {
	DocumentID string
	Insights   []string
}

// AnalyzeEmails runs pass 1 (relevance filter), pass 2 (context
// extraction), and pass 3 (narrative synthesis) over the harvested email
// corpus, already pre-filtered by the attendee-overlap rule upstream.
func (p *Pipeline) AnalyzeEmails(ctx context.Context, mc MeetingContext, emails []model.EmailArtifact) EmailResult {
	if len(emails) == 0 {
		return EmailResult{Narrative: "No email activity found related to this meeting."}
	}

	relevant, reasoning, failedFilter := p.filterEmails(ctx, mc, emails)
	ranked := rankByTemporalScore(relevant, p.scoring)

	extraction, failedExtract := p.extractEmailContext(ctx, mc, ranked)
	deduped := dedupeExtraction(extraction)

	narrative := p.synthesizeEmailNarrative(ctx, mc, deduped)

	return EmailResult{
		Narrative:     narrative,
		Extraction:    deduped,
		Reasoning:     reasoning,
		FailedBatches: append(failedFilter, failedExtract...),
	}
}

func batchSlice[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
		if size == 0 {
			return nil
		}
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// runBatchesConcurrently runs fn over each batch concurrently, collecting
// results in input order and recording which batch indices failed.
func runBatchesConcurrently[T, R any](ctx context.Context, batches [][]T, fn func(context.Context, []T) (R, error)) ([]R, []int) {
	results := make([]R, len(batches))
	failed := make([]bool, len(batches))
	var wg sync.WaitGroup
	for i, b := range batches {
		wg.Add(1)
		go func(i int, b []T) {
			defer wg.Done()
			r, err := fn(ctx, b)
			if err != nil {
				failed[i] = true
				slog.Warn("relevance: batch failed, excluding its artifacts", "batch_index", i, "error", err)
				return
			}
			results[i] = r
		}(i, b)
	}
	wg.Wait()

	var failedIdx []int
	for i, f := range failed {
		if f {
			failedIdx = append(failedIdx, i)
		}
	}
	return results, failedIdx
}
