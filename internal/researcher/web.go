package researcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/webresearch"
)

const maxWebResults = 3

// buildQueries constructs the three LinkedIn-leaning search queries spec.md
// §4.7 point 5 specifies, run together as a single provider call.
func buildQueries(name, email, company, domain string) []string {
	return []string{
		fmt.Sprintf(`"%s" site:linkedin.com %s`, name, domain),
		fmt.Sprintf(`"%s" %s site:linkedin.com`, name, company),
		fmt.Sprintf(`"%s" "%s"`, name, email),
	}
}

// validateResult reports whether a search hit plausibly refers to the
// attendee: a name-token match in title/excerpt/url, or an email/company
// match, per spec.md §4.7 point 5.
func validateResult(r webresearch.Result, name, email, company string) bool {
	haystack := strings.ToLower(r.Title + " " + r.Excerpt + " " + r.URL)
	if email != "" && strings.Contains(haystack, strings.ToLower(email)) {
		return true
	}
	if company != "" && strings.Contains(haystack, strings.ToLower(company)) {
		return true
	}
	for _, tok := range strings.Fields(name) {
		tok = strings.ToLower(tok)
		if len(tok) < 2 {
			continue
		}
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}

// webResearch runs the search, filters to validated hits (falling back to
// the top 3 raw results if nothing validates), and synthesizes 3-6
// additional facts from them via a second LLM call.
func (r *Researcher) webResearch(ctx context.Context, name, email, company, domain string) ([]string, bool) {
	if r.searcher == nil {
		return nil, false
	}

	objective := fmt.Sprintf("research the professional background of %s", name)
	results, err := r.searcher.Search(ctx, objective, buildQueries(name, email, company, domain), maxWebResults*2)
	if err != nil || len(results) == 0 {
		return nil, false
	}

	var validated []webresearch.Result
	for _, res := range results {
		if validateResult(res, name, email, company) {
			validated = append(validated, res)
		}
	}
	if len(validated) == 0 {
		if len(results) > maxWebResults {
			validated = results[:maxWebResults]
		} else {
			validated = results
		}
	}

	facts := r.synthesizeWebFacts(ctx, name, validated)
	return facts, len(facts) > 0
}

func (r *Researcher) synthesizeWebFacts(ctx context.Context, name string, results []webresearch.Result) []string {
	if r.llm == nil || len(results) == 0 {
		return rawResultFacts(name, results)
	}

	var sb strings.Builder
	for _, res := range results {
		fmt.Fprintf(&sb, "Title: %s\nURL: %s\nExcerpt: %s\n\n", res.Title, res.URL, res.Excerpt)
	}

	prompt := fmt.Sprintf(`From these web search results about %s, synthesize 3-6 concise facts about their professional background. Each fact 15-80 words, grounded only in the text given, no speculation. Respond with a JSON array of strings.

%s`, name, sb.String())

	resp, err := llmclient.Call(ctx, r.llm, llmclient.Request{
		Provider: r.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return rawResultFacts(name, results)
	}

	facts := parseFactsLenient(resp.Text)
	if len(facts) == 0 {
		return rawResultFacts(name, results)
	}
	return facts
}

func rawResultFacts(name string, results []webresearch.Result) []string {
	var facts []string
	for _, res := range results {
		if res.Excerpt == "" {
			continue
		}
		facts = append(facts, fmt.Sprintf("%s: %s", res.Title, res.Excerpt))
		if len(facts) >= 3 {
			break
		}
	}
	return facts
}
