// Package httpapi is the gin-based HTTP surface named in spec.md §6: the
// ndjson prep stream, the day-prep endpoint, purpose detection, and the
// three scheduler cron endpoints. Grounded in the teacher's pkg/api
// server/setupRoutes split (pkg/api/server.go) and cmd/tarsy/main.go's
// gin wiring, adapted from echo to gin since that's the framework the
// module's go.mod actually carries.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/coordinator"
	"github.com/codeready-toolchain/prepd/internal/dayprep"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
	"github.com/codeready-toolchain/prepd/internal/purpose"
	"github.com/codeready-toolchain/prepd/internal/scheduler"
	"github.com/codeready-toolchain/prepd/internal/store"
	"github.com/codeready-toolchain/prepd/internal/tokenguard"
	"github.com/codeready-toolchain/prepd/internal/version"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	store       store.Store
	guard       *tokenguard.Guard
	clients     map[model.Provider]providerclients.ProviderClient
	coordinator *coordinator.Coordinator
	dayprep     *dayprep.Aggregator
	purpose     *purpose.Detector
	scheduler   *scheduler.Scheduler
}

// NewServer wires the gin engine and every route group. Session/cookie
// auth is deliberately out of scope (spec.md §3); userAuthMiddleware
// trusts an upstream-resolved identity header instead of implementing
// its own session layer.
func NewServer(
	cfg *config.HTTPConfig,
	s store.Store,
	guard *tokenguard.Guard,
	clients map[model.Provider]providerclients.ProviderClient,
	co *coordinator.Coordinator,
	dp *dayprep.Aggregator,
	pur *purpose.Detector,
	sch *scheduler.Scheduler,
) *Server {
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	srv := &Server{
		engine: engine, store: s, guard: guard, clients: clients,
		coordinator: co, dayprep: dp, purpose: pur, scheduler: sch,
	}
	srv.setupRoutes(cfg)
	return srv
}

func (s *Server) setupRoutes(cfg *config.HTTPConfig) {
	// Global middleware must be registered before the routes it applies to.
	if len(cfg.AllowedOrigins) > 0 {
		s.engine.Use(corsMiddleware(cfg.AllowedOrigins))
	}

	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api/v1")
	api.Use(userAuthMiddleware())
	{
		api.POST("/prep", s.handlePrep)
		api.POST("/purpose", s.handlePurpose)
		api.POST("/day-prep", s.handleDayPrep)
	}

	cron := s.engine.Group("/cron")
	{
		cron.POST("/generate-hourly-briefs", s.handleCronHourly)
		cron.POST("/generate-midnight-briefs", s.handleCronMidnight)
		cron.POST("/generate-daily-briefs", s.handleCronDaily)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version.Full()})
}

// Start begins serving on addr. Blocks until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
