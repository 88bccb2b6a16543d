package config

// Config is the umbrella configuration object returned by Initialize and
// threaded through every component constructor.
type Config struct {
	configDir string

	Batch       *BatchConfig
	Scoring     *ScoringConfig
	Queue       *QueueConfig
	Scheduler   *SchedulerConfig
	Store       *StoreConfig
	Push        *PushConfig
	WebResearch *WebResearchConfig
	GoogleOAuth *GoogleOAuthConfig
	HTTP        *HTTPConfig
	Retention   *RetentionConfig

	LLMProviders *LLMProviderRegistry

	// DefaultLLMProvider names the entry in LLMProviders used by every
	// pipeline stage that doesn't request a specific model.
	DefaultLLMProvider string
}

// ConfigDir returns the directory Initialize loaded YAML from.
func (c *Config) ConfigDir() string { return c.configDir }

// Stats summarizes loaded configuration for startup logging.
type Stats struct {
	LLMProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{LLMProviders: c.LLMProviders.Len()}
}

// GetLLMProvider retrieves a named LLM provider configuration.
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviders.Get(name)
}

// DefaultProvider retrieves the configured default LLM provider.
func (c *Config) DefaultProvider() (*LLMProviderConfig, error) {
	return c.LLMProviders.Get(c.DefaultLLMProvider)
}
