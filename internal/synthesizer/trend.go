package synthesizer

import (
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// computeTrend classifies the timeline's activity velocity (items/day) as
// increasing/stable/decreasing/insufficient, per spec.md §4.8 stage 5.
// Pure computation — no LLM call, since velocity is a count-over-time
// measure the timeline already gives us exactly.
func computeTrend(timeline []model.TimelineEvent, scoring *config.ScoringConfig) string {
	dated := make([]model.TimelineEvent, 0, len(timeline))
	for _, e := range timeline {
		if !e.IsReference {
			dated = append(dated, e)
		}
	}
	if len(dated) < scoring.TrendMinDatedItems {
		return "insufficient"
	}

	oldest, newest := dated[0].Date, dated[0].Date
	for _, e := range dated {
		if e.Date.Before(oldest) {
			oldest = e.Date
		}
		if e.Date.After(newest) {
			newest = e.Date
		}
	}
	span := newest.Sub(oldest).Hours() / 24
	if span < 1 {
		span = 1
	}

	half := oldest.Add(time.Duration(span/2) * 24 * time.Hour)
	var recentCount, olderCount int
	for _, e := range dated {
		if e.Date.After(half) {
			recentCount++
		} else {
			olderCount++
		}
	}
	halfSpanDays := span / 2
	if halfSpanDays < 1 {
		halfSpanDays = 1
	}
	recentVelocity := float64(recentCount) / halfSpanDays
	olderVelocity := float64(olderCount) / halfSpanDays

	delta := recentVelocity - olderVelocity
	switch {
	case delta >= scoring.TrendVelocityIncreasing:
		return "increasing"
	case delta <= -scoring.TrendVelocityIncreasing:
		return "decreasing"
	case delta > -scoring.TrendVelocityStable && delta < scoring.TrendVelocityStable:
		return "stable"
	default:
		return "stable"
	}
}
