package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/prepd/internal/model"
)

// prepRequest is the body spec.md §6 defines for the prep endpoint:
// "{meeting, attendees, access_token?}". AccessToken is accepted for
// parity with the spec but unused — TokenGuard resolves credentials from
// the caller's stored accounts, not a client-supplied token.
type prepRequest struct {
	Meeting     model.Meeting    `json:"meeting"`
	Attendees   []model.Attendee `json:"attendees"`
	AccessToken string           `json:"access_token,omitempty"`
}

// handlePrep streams application/x-ndjson, one StreamEvent per line,
// flushing after every write. HTTP status is always 200 once the stream
// begins (spec.md §6); failures surface as an in-band error event, never
// as a non-2xx response.
func (s *Server) handlePrep(c *gin.Context) {
	var req prepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Attendees) > 0 {
		req.Meeting.Attendees = req.Attendees
	}

	userID := userIDFromContext(c)
	user, err := s.store.GetUser(c.Request.Context(), userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown user"})
		return
	}
	accounts, err := s.store.ListAccountsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load accounts"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)
	flusher, canFlush := c.Writer.(http.Flusher)

	ch := s.coordinator.Run(c.Request.Context(), &req.Meeting, accounts, user)
	enc := json.NewEncoder(c.Writer)
	for ev := range ch {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
