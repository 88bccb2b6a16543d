package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Cron endpoints are the manual-trigger surface for the three autonomous
// buckets internal/scheduler also runs on its own wall-clock ticks
// (spec.md §6): "Each idempotent; returns a summary of users checked,
// briefs generated, meetings skipped." They carry no auth middleware of
// their own — an operator fronts them with a network-level restriction
// (internal ingress, cron-only egress), the same narrow treatment the
// specification gives HTTP routing generally.

func (s *Server) handleCronHourly(c *gin.Context) {
	summary, err := s.scheduler.RunHourlyBriefs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCronMidnight(c *gin.Context) {
	summary, err := s.scheduler.RunMidnightBriefs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCronDaily(c *gin.Context) {
	summary, err := s.scheduler.RunDailyBriefs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
