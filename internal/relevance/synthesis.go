package relevance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

// synthesisTokenBudgetBytes is the serialized-struct size above which the
// synthesizer is told to prioritize recency and specificity (spec.md §4.6).
const synthesisTokenBudgetBytes = 32 * 1024

const emailSynthesisFallback = "Email activity was found but could not be summarized due to a synthesis failure."
const documentSynthesisFallback = "Related documents were found but could not be summarized due to a synthesis failure."

// synthesizeEmailNarrative produces an 8-12 sentence paragraph grounded in
// the de-duplicated extraction. A synthesis failure degrades to a terse
// fallback string rather than aborting the brief (spec.md §4.6, §7).
func (p *Pipeline) synthesizeEmailNarrative(ctx context.Context, mc MeetingContext, extraction ExtractedContext) string {
	if p.llm == nil {
		return emailSynthesisFallback
	}

	serialized, _ := json.Marshal(extraction)
	oversized := len(serialized) > synthesisTokenBudgetBytes

	prompt := fmt.Sprintf(`Write an 8-12 sentence paragraph summarizing the email context for an upcoming meeting titled %q, grounded only in the structured facts below. Do not invent anything not present.%s

%s`, mc.Title, budgetInstruction(oversized), string(serialized))

	resp, err := llmclient.Call(ctx, p.llm, llmclient.Request{
		Provider: p.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil || resp.Text == "" {
		return emailSynthesisFallback
	}
	return resp.Text
}

// synthesizeDocumentNarrative mirrors synthesizeEmailNarrative for the
// per-document insight set, surfacing staleness as a prompt-level warning
// rather than excluding stale documents (decided open question, spec_full.md §9).
func (p *Pipeline) synthesizeDocumentNarrative(ctx context.Context, mc MeetingContext, insights []DocumentInsight, staleness map[string][]string) string {
	if p.llm == nil {
		return documentSynthesisFallback
	}

	serialized, _ := json.Marshal(insights)
	oversized := len(serialized) > synthesisTokenBudgetBytes

	warning := ""
	if len(staleness) > 0 {
		warning = "\nSome documents contain stale temporal references (e.g. \"last week\", an old quarter) — treat their currency with caution but do not omit them."
	}

	prompt := fmt.Sprintf(`Write an 8-12 sentence paragraph summarizing the document context for an upcoming meeting titled %q, grounded only in the insights below.%s%s

%s`, mc.Title, budgetInstruction(oversized), warning, string(serialized))

	resp, err := llmclient.Call(ctx, p.llm, llmclient.Request{
		Provider: p.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil || resp.Text == "" {
		return documentSynthesisFallback
	}
	return resp.Text
}

func budgetInstruction(oversized bool) string {
	if !oversized {
		return ""
	}
	return " The underlying data exceeds the normal prompt budget — prioritize the most recent and specific facts over exhaustive coverage."
}
