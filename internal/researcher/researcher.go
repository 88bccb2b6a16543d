package researcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/webresearch"
)

// maxProfileFacts is the hard cap on facts assembled into one
// AttendeeProfile, across both local and web sources (spec.md §4.7 point 6).
const maxProfileFacts = 6

// dedupPrefixRatio mirrors the relevance pipeline's fact-dedup heuristic:
// one fact is a duplicate of another if the shorter is a prefix-containment
// match of at least this fraction of its own length.
const dedupPrefixRatio = 0.8

// Researcher is AttendeeResearcher: per-attendee name/company resolution,
// email-evidence extraction, and optional web research.
type Researcher struct {
	llm      llmclient.Client
	provider *config.LLMProviderConfig
	searcher webresearch.Searcher
	scoring  *config.ScoringConfig
}

// New builds a Researcher. searcher may be nil, disabling the web-research
// step entirely (spec.md §9: web search is optional, degrades gracefully).
func New(llm llmclient.Client, provider *config.LLMProviderConfig, searcher webresearch.Searcher, scoring *config.ScoringConfig) *Researcher {
	return &Researcher{llm: llm, provider: provider, searcher: searcher, scoring: scoring}
}

// Research builds one attendee's profile: name and company resolution,
// email-evidence facts, optional web-research facts, deduped and capped at
// maxProfileFacts, tagged with the data sources that actually contributed.
// Resource-calendar attendees are never researched; callers should filter
// them out before calling (model.Attendee.IsResourceCalendar), but Research
// itself also short-circuits defensively.
func (r *Researcher) Research(ctx context.Context, meeting *model.Meeting, attendee model.Attendee, emails []model.EmailArtifact, history []model.CalendarArtifact) (*model.AttendeeProfile, error) {
	if attendee.IsResourceCalendar() {
		return nil, fmt.Errorf("researcher: refusing to research resource calendar %q", attendee.Email)
	}

	name := ResolveName(attendee, history, emails)
	company := InferCompany(attendee.Email)
	domain := domainOf(attendee.Email)

	evidence := collectEvidence(attendee.Email, emails)
	localFacts := r.extractEmailFacts(ctx, attendee, evidence, company)
	hasLocal := len(evidence) > 0

	webFacts, hasWeb := r.webResearch(ctx, name, attendee.Email, company, domain)

	facts := dedupeFacts(append(append([]string{}, localFacts...), webFacts...))
	source := dataSource(hasLocal, hasWeb)
	if len(facts) == 0 {
		facts = basicFacts(attendee, name, company)
		source = "basic"
	}
	if len(facts) > maxProfileFacts {
		facts = facts[:maxProfileFacts]
	}

	return &model.AttendeeProfile{
		Email:      attendee.Email,
		Name:       name,
		Company:    company,
		Facts:      facts,
		DataSource: source,
	}, nil
}

// ResearchAll fans out Research across attendees, capped at
// scoring.MaxResearchedAttendees (spec.md §9's decided open question):
// attendees beyond the cap are skipped entirely rather than partially
// researched, ranked by participant overlap with the harvested email corpus
// so the most relevant attendees are the ones that get researched.
func (r *Researcher) ResearchAll(ctx context.Context, meeting *model.Meeting, emails []model.EmailArtifact, history []model.CalendarArtifact) ([]model.AttendeeProfile, []string) {
	candidates := model.HumanAttendees(meeting.Attendees)
	limit := r.scoring.MaxResearchedAttendees
	var skipped []string
	if len(candidates) > limit {
		candidates = rankAttendeesByActivity(candidates, emails)
		for _, a := range candidates[limit:] {
			skipped = append(skipped, a.Email)
		}
		candidates = candidates[:limit]
	}

	results := make([]*model.AttendeeProfile, len(candidates))
	var wg sync.WaitGroup
	for i, a := range candidates {
		wg.Add(1)
		go func(i int, a model.Attendee) {
			defer wg.Done()
			profile, err := r.Research(ctx, meeting, a, emails, history)
			if err != nil {
				return
			}
			results[i] = profile
		}(i, a)
	}
	wg.Wait()

	var profiles []model.AttendeeProfile
	for _, p := range results {
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles, skipped
}

func rankAttendeesByActivity(attendees []model.Attendee, emails []model.EmailArtifact) []model.Attendee {
	counts := map[string]int{}
	for _, e := range emails {
		for _, addr := range e.Participants() {
			counts[addr]++
		}
	}
	out := append([]model.Attendee{}, attendees...)
	sort.SliceStable(out, func(i, j int) bool {
		return counts[strings.ToLower(out[i].Email)] > counts[strings.ToLower(out[j].Email)]
	})
	return out
}

func dataSource(hasLocal, hasWeb bool) string {
	switch {
	case hasLocal && hasWeb:
		return "local+web"
	case hasLocal:
		return "local"
	case hasWeb:
		return "web"
	default:
		return "basic"
	}
}

func basicFacts(attendee model.Attendee, name, company string) []string {
	if company != "" {
		return []string{fmt.Sprintf("%s's email domain suggests an affiliation with %s.", name, company)}
	}
	return []string{fmt.Sprintf("No further information is available about %s beyond their meeting invitation.", name)}
}

func dedupeFacts(facts []string) []string {
	var out []string
	for _, f := range facts {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if isFactDuplicate(f, existing) {
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

func isFactDuplicate(a, b string) bool {
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	if shorter == "" {
		return false
	}
	prefixLen := int(float64(len(shorter)) * dedupPrefixRatio)
	if prefixLen == 0 {
		prefixLen = len(shorter)
	}
	if prefixLen > len(shorter) {
		prefixLen = len(shorter)
	}
	return strings.Contains(strings.ToLower(longer), strings.ToLower(shorter[:prefixLen]))
}
