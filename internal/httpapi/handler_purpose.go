package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/prepd/internal/model"
)

type purposeRequest struct {
	Meeting   model.Meeting    `json:"meeting"`
	Attendees []model.Attendee `json:"attendees"`
}

// handlePurpose is the standalone purpose-detection endpoint (spec.md
// §6): `{meeting, attendees}` → `{purpose, agenda, confidence, source,
// context_email_refs}`. It never harvests mail itself — with no email
// context, PurposeDetector works from the calendar metadata alone.
func (s *Server) handlePurpose(c *gin.Context) {
	var req purposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Attendees) > 0 {
		req.Meeting.Attendees = req.Attendees
	}

	result, err := s.purpose.Detect(c.Request.Context(), &req.Meeting, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
