package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/model"
)

func TestClassify_NoLLM_OneOnOne(t *testing.T) {
	c := New(nil, nil)
	meeting := &model.Meeting{
		Title: "Product sync", Start: time.Now(),
		Attendees: []model.Attendee{{Email: "alice@acme.test"}},
	}
	cls, err := c.Classify(context.Background(), meeting, []string{"bob@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeMeeting, cls.Type)
	assert.Equal(t, model.PrepDepthFull, cls.PrepDepth)
	assert.True(t, cls.ShouldPrep)
}

func TestClassify_Travel(t *testing.T) {
	c := New(nil, nil)
	meeting := &model.Meeting{Title: "Flight to SFO", Start: time.Now()}
	cls, err := c.Classify(context.Background(), meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeTravel, cls.Type)
	assert.Equal(t, model.PrepDepthMinimal, cls.PrepDepth)
	assert.False(t, cls.ShouldPrep)
}

func TestClassify_LargeConference(t *testing.T) {
	c := New(nil, nil)
	attendees := make([]model.Attendee, 25)
	for i := range attendees {
		attendees[i] = model.Attendee{Email: "guest@other.test"}
	}
	meeting := &model.Meeting{Title: "Annual Tech Conference", Start: time.Now(), Organizer: "organizer@other.test", Attendees: attendees}
	cls, err := c.Classify(context.Background(), meeting, []string{"guest@other.test"})
	require.NoError(t, err)
	assert.Equal(t, model.EventTypePublicEvent, cls.Type)
	assert.Equal(t, model.PrepDepthMinimal, cls.PrepDepth)
}

func TestClassify_SpeakerOverride(t *testing.T) {
	c := New(nil, nil)
	attendees := make([]model.Attendee, 50)
	for i := range attendees {
		attendees[i] = model.Attendee{Email: "guest@other.test"}
	}
	attendees[0] = model.Attendee{Email: "bob@acme.test", DisplayName: "Speaker: Bob"}
	meeting := &model.Meeting{Title: "Conference", Start: time.Now(), Attendees: attendees}
	cls, err := c.Classify(context.Background(), meeting, []string{"bob@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeMeeting, cls.Type)
	assert.Equal(t, model.PrepDepthFull, cls.PrepDepth)
}

func TestClassify_PersonalReminder(t *testing.T) {
	c := New(nil, nil)
	meeting := &model.Meeting{Title: "Submit expense report deadline", Start: time.Now()}
	cls, err := c.Classify(context.Background(), meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, model.EventTypePersonalReminder, cls.Type)
	assert.Equal(t, model.PrepDepthNone, cls.PrepDepth)
}

func TestClassify_ReminderWithPersonMention(t *testing.T) {
	c := New(nil, nil)
	meeting := &model.Meeting{Title: "Call Alice about deadline", Start: time.Now()}
	cls, err := c.Classify(context.Background(), meeting, nil)
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeMeeting, cls.Type)
	assert.Equal(t, model.PrepDepthFull, cls.PrepDepth)
}

func TestClassify_PureFunction(t *testing.T) {
	c := New(nil, nil)
	meeting := &model.Meeting{Title: "Product sync", Start: time.Now(), Attendees: []model.Attendee{{Email: "alice@acme.test"}}}
	cls1, _ := c.Classify(context.Background(), meeting, []string{"bob@acme.test"})
	cls2, _ := c.Classify(context.Background(), meeting, []string{"bob@acme.test"})
	assert.Equal(t, cls1, cls2)
}
