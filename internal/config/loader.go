package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// prepYAMLConfig represents the complete prepd.yaml file structure.
type prepYAMLConfig struct {
	DefaultLLMProvider string                       `yaml:"default_llm_provider"`
	LLMProviders       map[string]LLMProviderConfig `yaml:"llm_providers"`
	Batch              *BatchConfig                 `yaml:"batch"`
	Scoring            *ScoringConfig               `yaml:"scoring"`
	Queue              *QueueConfig                 `yaml:"queue"`
	Scheduler          *SchedulerConfig             `yaml:"scheduler"`
	Store              *StoreConfig                 `yaml:"store"`
	Push               *PushConfig                  `yaml:"push"`
	WebResearch        *WebResearchConfig           `yaml:"web_research"`
	GoogleOAuth        *GoogleOAuthConfig           `yaml:"google_oauth"`
	HTTP               *HTTPConfig                  `yaml:"http"`
	Retention          *RetentionConfig             `yaml:"retention"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load prepd.yaml from configDir (env vars expanded first)
//  2. Merge user-defined LLM providers over the built-in defaults
//  3. Merge every other section's user overrides onto built-in defaults
//  4. Resolve the DATABASE_URL environment variable into Store.DSN
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.InfoContext(ctx, "initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.InfoContext(ctx, "configuration initialized successfully",
		"llm_providers", stats.LLMProviders,
		"default_llm_provider", cfg.DefaultLLMProvider)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	var user prepYAMLConfig
	user.LLMProviders = make(map[string]LLMProviderConfig)

	if err := loadYAML(configDir, "prepd.yaml", &user); err != nil {
		return nil, NewLoadError("prepd.yaml", err)
	}

	builtin := builtinLLMProviders()
	providers := mergeLLMProviders(builtin, user.LLMProviders)

	batch := DefaultBatchConfig()
	if user.Batch != nil {
		if err := mergo.Merge(batch, user.Batch, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge batch config: %w", err)
		}
	}

	scoring := DefaultScoringConfig()
	if user.Scoring != nil {
		if err := mergo.Merge(scoring, user.Scoring, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scoring config: %w", err)
		}
	}

	queue := DefaultQueueConfig()
	if user.Queue != nil {
		if err := mergo.Merge(queue, user.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	scheduler := DefaultSchedulerConfig()
	if user.Scheduler != nil {
		if err := mergo.Merge(scheduler, user.Scheduler, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scheduler config: %w", err)
		}
	}

	store := DefaultStoreConfig()
	if user.Store != nil {
		if err := mergo.Merge(store, user.Store, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge store config: %w", err)
		}
	}
	store.DSN = os.Getenv("DATABASE_URL")

	push := &PushConfig{}
	if user.Push != nil {
		push = user.Push
	}

	webResearch := &WebResearchConfig{}
	if user.WebResearch != nil {
		webResearch = user.WebResearch
	}

	oauth := DefaultGoogleOAuthConfig()
	if user.GoogleOAuth != nil {
		if err := mergo.Merge(oauth, user.GoogleOAuth, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge google_oauth config: %w", err)
		}
	}

	httpCfg := DefaultHTTPConfig()
	if user.HTTP != nil {
		if err := mergo.Merge(httpCfg, user.HTTP, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge http config: %w", err)
		}
	}
	if port := os.Getenv("HTTP_PORT"); port != "" {
		httpCfg.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		httpCfg.GinMode = mode
	}

	retention := DefaultRetentionConfig()
	if user.Retention != nil {
		if err := mergo.Merge(retention, user.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	defaultProvider := user.DefaultLLMProvider
	if defaultProvider == "" {
		defaultProvider = "default"
	}

	return &Config{
		configDir:          configDir,
		Batch:              batch,
		Scoring:            scoring,
		Queue:              queue,
		Scheduler:          scheduler,
		Store:              store,
		Push:               push,
		WebResearch:        webResearch,
		GoogleOAuth:        oauth,
		HTTP:               httpCfg,
		Retention:          retention,
		LLMProviders:       NewLLMProviderRegistry(providers),
		DefaultLLMProvider: defaultProvider,
	}, nil
}

func loadYAML(configDir, filename string, target any) error {
	path := filepath.Join(configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}
