// prepd is the meeting-preparation intelligence engine's server binary:
// it loads configuration, wires the harvest-classify-research-synthesize
// pipeline, and serves the HTTP API and autonomous scheduler.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/prepd/internal/classifier"
	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/coordinator"
	"github.com/codeready-toolchain/prepd/internal/dayprep"
	"github.com/codeready-toolchain/prepd/internal/harvester"
	"github.com/codeready-toolchain/prepd/internal/httpapi"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
	"github.com/codeready-toolchain/prepd/internal/purpose"
	"github.com/codeready-toolchain/prepd/internal/push"
	"github.com/codeready-toolchain/prepd/internal/relevance"
	"github.com/codeready-toolchain/prepd/internal/researcher"
	"github.com/codeready-toolchain/prepd/internal/retention"
	"github.com/codeready-toolchain/prepd/internal/scheduler"
	"github.com/codeready-toolchain/prepd/internal/store"
	"github.com/codeready-toolchain/prepd/internal/synthesizer"
	"github.com/codeready-toolchain/prepd/internal/tokenguard"
	"github.com/codeready-toolchain/prepd/internal/webresearch"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to initialize configuration: %v", err)
	}
	stats := cfg.Stats()
	log.Printf("Starting prepd: %d LLM providers configured", stats.LLMProviders)

	st, err := store.NewPGStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()
	log.Println("Connected to Postgres store")

	defaultProvider, err := cfg.DefaultProvider()
	if err != nil {
		log.Fatalf("Failed to resolve default LLM provider: %v", err)
	}
	llm := llmclient.NewHTTPClient(defaultProvider)
	defer llm.Close()

	guard := tokenguard.NewGoogle(st, cfg.GoogleOAuth)

	googleClient := providerclients.NewGoogleClient(30 * time.Second)
	clients := map[model.Provider]providerclients.ProviderClient{
		model.ProviderGoogle: googleClient,
	}
	h := harvester.New(clients)

	var searcher webresearch.Searcher
	if cfg.WebResearch.Enabled {
		apiKey := os.Getenv(cfg.WebResearch.APIKeyEnv)
		searcher = webresearch.NewHTTPSearcher(cfg.WebResearch.BaseURL, apiKey, 60*time.Second)
	}

	cls := classifier.New(llm, defaultProvider)
	pur := purpose.New(llm, defaultProvider)
	rel := relevance.New(llm, defaultProvider, cfg.Batch, cfg.Scoring)
	res := researcher.New(llm, defaultProvider, searcher, cfg.Scoring)
	syn := synthesizer.New(llm, defaultProvider, cfg.Scoring)
	dp := dayprep.New(llm, defaultProvider)

	co := coordinator.New(guard, h, cls, pur, rel, res, syn)

	pushSvc := push.New(push.Config{
		Enabled: cfg.Push.Enabled,
		BaseURL: cfg.Push.BaseURL,
		APIKey:  os.Getenv(cfg.Push.APIKeyEnv),
	})

	sch := scheduler.New(st, guard, clients, co, pushSvc, cfg.Scheduler)
	sch.Start(ctx)
	defer sch.Stop()

	ret := retention.New(st, cfg.Retention)
	ret.Start(ctx)
	defer ret.Stop()

	server := httpapi.NewServer(cfg.HTTP, st, guard, clients, co, dp, pur, sch)

	addr := ":" + cfg.HTTP.Port
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during HTTP shutdown: %v", err)
	}
}
