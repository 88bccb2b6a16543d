// Package push is the optional push-notification dispatch service the
// Scheduler calls for daily summaries and reminders; it writes no chat-log
// entries
// (spec.md §4.11). Push-notification transport internals (APNs/FCM) are
// explicitly out of scope (spec.md §3): this package only shapes the
// opaque `{title, body, data}` payload (spec.md §10) and posts it to a
// single configured HTTP endpoint, the same narrow-collaborator
// treatment the specification gives the persistent store.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Payload is the opaque push body, spec.md §10: "Push payload (opaque to
// core): {title, body, data:{type, meeting_id?, ...}}".
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// NotificationType values populate Payload.Data["type"].
const (
	TypeDailySummary = "daily_summary"
	TypeReminder     = "reminder"
)

// Service dispatches push notifications. Nil-safe:
// every method is a no-op on a nil *Service, the same fail-open shape as
// the teacher's Slack notification service.
type Service struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// Config holds the parameters needed to construct a Service.
type Config struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New builds a Service, or returns nil if push is disabled or
// unconfigured — callers never need a separate "is push enabled" check.
func New(cfg Config) *Service {
	if !cfg.Enabled || cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     slog.Default().With("component", "push"),
	}
}

// NotifyDailySummary dispatches the 9am local-hour daily summary
// (spec.md §4.11) as one push notification carrying the day's meeting
// count; no chat-log entry is written. Fail-open: errors are logged,
// never returned, so a push outage never blocks the scheduler tick.
func (s *Service) NotifyDailySummary(ctx context.Context, userID string, meetingCount int) {
	if s == nil {
		return
	}
	title := "Today's schedule"
	body := fmt.Sprintf("You have %d meeting(s) today.", meetingCount)
	s.send(ctx, userID, Payload{
		Title: title,
		Body:  body,
		Data:  map[string]any{"type": TypeDailySummary, "meeting_count": meetingCount},
	})
}

// NotifyReminder dispatches a per-meeting reminder in the 15-minute
// lookahead window (spec.md §4.11).
func (s *Service) NotifyReminder(ctx context.Context, userID, meetingID, meetingTitle string) {
	if s == nil {
		return
	}
	s.send(ctx, userID, Payload{
		Title: "Starting soon",
		Body:  fmt.Sprintf("%q starts in about 15 minutes.", meetingTitle),
		Data:  map[string]any{"type": TypeReminder, "meeting_id": meetingID},
	})
}

func (s *Service) send(ctx context.Context, userID string, p Payload) {
	body, err := json.Marshal(map[string]any{"user_id": userID, "payload": p})
	if err != nil {
		s.logger.Warn("push: failed to marshal payload", "user_id", userID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/notify", bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("push: failed to build request", "user_id", userID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("push: dispatch failed", "user_id", userID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("push: non-2xx response", "user_id", userID, "status", resp.StatusCode)
	}
}
