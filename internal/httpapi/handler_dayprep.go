package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/prepd/internal/dayprep"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
)

type dayPrepRequest struct {
	Date string `json:"date" binding:"required"`
}

type dayPrepResponse struct {
	Date        string           `json:"date"`
	Meetings    []*model.Meeting `json:"meetings"`
	PrepResults []*model.Brief   `json:"prep_results"`
	DayPrep     *model.DayPrep   `json:"day_prep"`
}

// handleDayPrep is spec.md §6's day-prep endpoint: `{date: YYYY-MM-DD}` →
// `{date, meetings[], prep_results[], day_prep}`. Every meeting for the
// day is briefed (reusing an existing brief when one is already stored)
// before DayPrepAggregator.Build runs over the full set.
func (s *Server) handleDayPrep(c *gin.Context) {
	var req dayPrepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	userID := userIDFromContext(c)
	user, err := s.store.GetUser(ctx, userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}

	loc, err := time.LoadLocation(user.IANATimezone())
	if err != nil {
		loc = time.UTC
	}
	dayStart, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	meetings, accounts, err := s.dayMeetings(ctx, user, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	resp := dayPrepResponse{Date: req.Date}
	var meetingBriefs []dayprep.MeetingBrief
	for i := range meetings {
		m := meetings[i]
		resp.Meetings = append(resp.Meetings, &m)

		brief, err := s.store.GetBrief(ctx, user.ID, m.ID)
		if err != nil {
			continue
		}
		if brief == nil {
			brief = s.runAndStoreBrief(ctx, user, accounts, &m)
		}
		if brief != nil {
			resp.PrepResults = append(resp.PrepResults, brief)
			meetingBriefs = append(meetingBriefs, dayprep.MeetingBrief{Meeting: &m, Brief: brief})
		}
	}

	resp.DayPrep = s.dayprep.Build(ctx, req.Date, user, meetingBriefs)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) runAndStoreBrief(ctx context.Context, user *model.User, accounts []*model.Account, m *model.Meeting) *model.Brief {
	var brief *model.Brief
	ch := s.coordinator.Run(ctx, m, accounts, user)
	for ev := range ch {
		if ev.Type == model.StreamEventComplete && ev.Brief != nil {
			brief = ev.Brief
		}
	}
	if brief != nil {
		_ = s.store.UpsertBrief(ctx, brief)
	}
	return brief
}

// dayMeetings lists every meeting starting in [after, before) across a
// user's valid accounts, the same account-validation-then-fan-out shape
// internal/scheduler uses for its lookahead windows.
func (s *Server) dayMeetings(ctx context.Context, user *model.User, after, before time.Time) ([]model.Meeting, []*model.Account, error) {
	accounts, err := s.store.ListAccountsForUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	result := s.guard.EnsureAllValid(ctx, accounts)
	if len(result.Valid) == 0 {
		return nil, nil, model.ErrNoValidAccounts
	}

	seen := make(map[string]bool)
	var meetings []model.Meeting
	for _, acc := range result.Valid {
		client, ok := s.clients[acc.Provider]
		if !ok {
			continue
		}
		events, err := client.ListEvents(ctx, acc.AccessToken, providerclients.ListOptions{
			Window: providerclients.TimeWindow{After: after, Before: before},
		})
		if err != nil {
			continue
		}
		for _, e := range events {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			attendees := make([]model.Attendee, len(e.Attendees))
			for i, a := range e.Attendees {
				attendees[i] = model.Attendee{Email: a.Email, DisplayName: a.DisplayName}
			}
			meetings = append(meetings, model.Meeting{
				ID: e.ID, Title: e.Title, Start: e.Start, End: e.End, Attendees: attendees,
			})
		}
	}
	return meetings, result.Valid, nil
}
