package purpose

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/model"
)

func TestDetect_BothEmpty_Uncertain(t *testing.T) {
	d := New(nil, nil)
	meeting := &model.Meeting{Title: "Sync", Start: time.Now()}
	result, err := d.Detect(context.Background(), meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, model.PurposeSourceUncertain, result.Source)
}

func TestRankByOverlapThenRecency(t *testing.T) {
	meeting := &model.Meeting{
		Start:     time.Now(),
		Attendees: []model.Attendee{{Email: "alice@acme.test"}},
	}
	older := model.EmailArtifact{ID: "e1", From: "alice@acme.test", Date: time.Now().Add(-48 * time.Hour)}
	newer := model.EmailArtifact{ID: "e2", From: "alice@acme.test", Date: time.Now().Add(-1 * time.Hour)}
	ranked := rankByOverlapThenRecency(meeting, []model.EmailArtifact{older, newer})
	require.Len(t, ranked, 2)
	assert.Equal(t, "e2", ranked[0].ID)
}

func TestMergeAgenda_Dedupes(t *testing.T) {
	out := mergeAgenda([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

func TestUpgradeConfidence_CapsAtOne(t *testing.T) {
	assert.Equal(t, 1.0, upgradeConfidence(0.9))
	assert.InDelta(t, 0.7, upgradeConfidence(0.5), 0.001)
}
