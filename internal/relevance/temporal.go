package relevance

import (
	"math"
	"sort"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// RecencyScore computes exp(-λ·days_old) for an artifact dated at t,
// relative to now (spec.md §4.6).
func RecencyScore(t, now time.Time, lambda float64) float64 {
	daysOld := now.Sub(t).Hours() / 24
	if daysOld < 0 {
		daysOld = 0
	}
	return math.Exp(-lambda * daysOld)
}

// TemporalScore blends base relevance (always 1.0 post-filter, since every
// email reaching this stage already survived pass 1) with recency, used
// only for ranking — never as a pass/fail gate.
func TemporalScore(relevance, recency, recencyWeight float64) float64 {
	return relevance*(1-recencyWeight) + recency*recencyWeight
}

// rankByTemporalScore orders relevant emails by descending temporal score:
// 0.7·relevance + 0.3·recency with relevance fixed at 1.0 for survivors of
// pass 1 (the filter already rejected anything below the relevance bar).
func rankByTemporalScore(emails []model.EmailArtifact, scoring *config.ScoringConfig) []model.EmailArtifact {
	now := time.Now()
	type scored struct {
		email model.EmailArtifact
		score float64
	}
	out := make([]scored, len(emails))
	for i, e := range emails {
		recency := RecencyScore(e.Date, now, scoring.RecencyLambda)
		out[i] = scored{email: e, score: TemporalScore(1.0, recency, scoring.RecencyWeight)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })

	result := make([]model.EmailArtifact, len(out))
	for i, s := range out {
		result[i] = s.email
	}
	return result
}
