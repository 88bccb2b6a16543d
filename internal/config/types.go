package config

import "time"

// BatchConfig holds the LLM-call batch sizes used across the pipeline.
// These are prompt-tuned constants, not physical limits, so a deployment
// can retune them without a code change.
type BatchConfig struct {
	EmailClassifyBatch  int `yaml:"email_classify_batch" validate:"required,min=1"`
	DocumentAnalyzeBatch int `yaml:"document_analyze_batch" validate:"required,min=1"`
	AttendeeResearchBatch int `yaml:"attendee_research_batch" validate:"required,min=1"`
	CalendarHistoryBatch int `yaml:"calendar_history_batch" validate:"required,min=1"`
}

// DefaultBatchConfig returns the batch sizes named in the specification:
// 25 emails/classify call, 50 documents/analyze call. AttendeeResearchBatch
// (20) and CalendarHistoryBatch (5) are loaded and validated, but no
// component reads them.
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		EmailClassifyBatch:    25,
		DocumentAnalyzeBatch:  50,
		AttendeeResearchBatch: 20,
		CalendarHistoryBatch:  5,
	}
}

// ScoringConfig holds the temporal-relevance scoring constants, resolved
// from shadow-python/temporal_scoring.py where spec.md leaves them open.
type ScoringConfig struct {
	// RecencyLambda is the exponential decay rate in score = e^(-λ·days_old).
	RecencyLambda float64 `yaml:"recency_lambda" validate:"required,gt=0"`

	// RecencyWeight blends base relevance and recency into the final score:
	// final = base*(1-RecencyWeight) + recency*RecencyWeight.
	RecencyWeight float64 `yaml:"recency_weight" validate:"min=0,max=1"`

	// TrendVelocityIncreasing / TrendVelocityStable are the items-per-day
	// thresholds analyze_trend uses to label a topic's relationship history.
	TrendVelocityIncreasing float64 `yaml:"trend_velocity_increasing" validate:"required,gt=0"`
	TrendVelocityStable     float64 `yaml:"trend_velocity_stable" validate:"required,gt=0"`

	// TrendMinDatedItems is the minimum count of dated items before a trend
	// is computed at all; below it analyze_trend reports insufficient data.
	TrendMinDatedItems int `yaml:"trend_min_dated_items" validate:"required,min=1"`

	// MaxResearchedAttendees caps attendee-research fan-out per meeting.
	MaxResearchedAttendees int `yaml:"max_researched_attendees" validate:"required,min=1"`
}

// DefaultScoringConfig returns the constants resolved from shadow-python:
// λ=0.015, 0.3 recency weight, >0.5 increasing / >0.1 stable trend velocity,
// 2 dated items minimum, 12 researched attendees.
func DefaultScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		RecencyLambda:           0.015,
		RecencyWeight:           0.3,
		TrendVelocityIncreasing: 0.5,
		TrendVelocityStable:     0.1,
		TrendMinDatedItems:      2,
		MaxResearchedAttendees:  12,
	}
}

// QueueConfig holds worker-pool and prep-stream knobs, mirroring tarsy's
// worker-pool settings. The section is loaded and validated, but no
// component reads it: fan-out runs one goroutine per item, a prep stream
// has no overall timeout, and the coordinator sends keepalives on its own
// fixed 10-second interval.
type QueueConfig struct {
	HarvestWorkers   int           `yaml:"harvest_workers" validate:"required,min=1,max=50"`
	ResearchWorkers  int           `yaml:"research_workers" validate:"required,min=1,max=50"`
	PrepTimeout      time.Duration `yaml:"prep_timeout" validate:"required"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval" validate:"required"`
}

// DefaultQueueConfig returns the built-in worker-pool defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		HarvestWorkers:    5,
		ResearchWorkers:   5,
		PrepTimeout:       2 * time.Minute,
		KeepaliveInterval: 15 * time.Second,
	}
}

// SchedulerConfig controls the three autonomous cron buckets: a midnight
// brief pre-warm, an hourly daily-summary check, and a per-minute meeting
// reminder sweep — cadences taken from shadow-python/scheduler.py.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// MidnightHour / MorningHour are local hours (0-23, per-user timezone)
	// the hourly buckets compare against.
	MidnightHour int `yaml:"midnight_hour" validate:"min=0,max=23"`
	MorningHour  int `yaml:"morning_hour" validate:"min=0,max=23"`

	// ReminderLeadTime is how far ahead of a meeting start the per-minute
	// bucket fires its "starting soon" reminder.
	ReminderLeadTime time.Duration `yaml:"reminder_lead_time" validate:"required"`

	// ReminderDedupWindow is loaded and validated but not read by the
	// scheduler, which dedups reminders per (user, meeting, day) instead.
	ReminderDedupWindow time.Duration `yaml:"reminder_dedup_window" validate:"required"`
}

// DefaultSchedulerConfig returns the cron cadence resolved from shadow-python:
// midnight check at local hour 0, daily summary at local hour 9, per-minute
// reminder sweep 15 minutes ahead of meeting start.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Enabled:             true,
		MidnightHour:        0,
		MorningHour:         9,
		ReminderLeadTime:    15 * time.Minute,
		ReminderDedupWindow: 20 * time.Minute,
	}
}

// StoreConfig configures the pgx-backed brief/bucket KV store.
type StoreConfig struct {
	DSN             string        `yaml:"dsn,omitempty"`
	MaxConns        int32         `yaml:"max_conns" validate:"required,min=1"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" validate:"required"`
	MigrationsTable string        `yaml:"migrations_table,omitempty"`
}

// DefaultStoreConfig returns the built-in storage defaults; DSN is always
// resolved from the DATABASE_URL environment variable, never from YAML,
// so credentials never round-trip through a config file.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		MaxConns:        10,
		ConnectTimeout:  5 * time.Second,
		MigrationsTable: "schema_migrations",
	}
}

// PushConfig configures the optional push-notification dispatch. A zero
// value (APIKeyEnv empty) disables push entirely; internal/push builds a
// nil-safe no-op service in that case.
type PushConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty" validate:"omitempty,url"`
}

// GoogleOAuthConfig configures the Google OAuth2 token-refresh endpoint,
// resolved from shadow-python/oauth/google_oauth.py.
type GoogleOAuthConfig struct {
	ClientIDEnv     string        `yaml:"client_id_env" validate:"required"`
	ClientSecretEnv string        `yaml:"client_secret_env" validate:"required"`
	TokenURL        string        `yaml:"token_url,omitempty"`
	RefreshBuffer   time.Duration `yaml:"refresh_buffer" validate:"required"`
}

// DefaultGoogleOAuthConfig returns Google's token endpoint and the 5-minute
// refresh buffer from shadow-python/services/token_refresh.py.
func DefaultGoogleOAuthConfig() *GoogleOAuthConfig {
	return &GoogleOAuthConfig{
		ClientIDEnv:     "GOOGLE_CLIENT_ID",
		ClientSecretEnv: "GOOGLE_CLIENT_SECRET",
		TokenURL:        "https://oauth2.googleapis.com/token",
		RefreshBuffer:   5 * time.Minute,
	}
}

// HTTPConfig controls the gin server.
type HTTPConfig struct {
	Port              string   `yaml:"port,omitempty"`
	GinMode           string   `yaml:"gin_mode,omitempty"`
	AllowedOrigins    []string `yaml:"allowed_origins,omitempty"`
}

// DefaultHTTPConfig returns the built-in HTTP server defaults.
func DefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{Port: "8080", GinMode: "release"}
}

// RetentionConfig controls the background data-retention sweep that purges
// old briefs and stale scheduler bookkeeping rows, grounded in the
// teacher's pkg/cleanup retention service.
type RetentionConfig struct {
	Enabled bool `yaml:"enabled"`

	// BriefRetention is how long a generated Brief is kept after its
	// GeneratedAt before the sweep deletes it.
	BriefRetention time.Duration `yaml:"brief_retention" validate:"required"`

	// BucketRetention is how long scheduler idempotence buckets and sent
	// reminders are kept — both are write-once dedup markers with no value
	// once their originating meeting is long past.
	BucketRetention time.Duration `yaml:"bucket_retention" validate:"required"`

	// SweepInterval is how often the background loop runs.
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"required"`
}

// DefaultRetentionConfig keeps briefs for 30 days and scheduler bookkeeping
// rows for 7 days, sweeping once an hour.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Enabled:         true,
		BriefRetention:  30 * 24 * time.Hour,
		BucketRetention: 7 * 24 * time.Hour,
		SweepInterval:   time.Hour,
	}
}

// WebResearchConfig configures the attendee-research web lookup.
type WebResearchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty" validate:"omitempty,url"`
}
