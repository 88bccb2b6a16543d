package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate performs comprehensive validation on loaded configuration:
// struct-tag validation of every section via go-playground/validator,
// followed by the cross-field checks a tag alone can't express.
func Validate(cfg *Config) error {
	for name, section := range map[string]any{
		"batch":        cfg.Batch,
		"scoring":      cfg.Scoring,
		"queue":        cfg.Queue,
		"scheduler":    cfg.Scheduler,
		"store":        cfg.Store,
		"google_oauth": cfg.GoogleOAuth,
		"retention":    cfg.Retention,
		"push":         cfg.Push,
		"web_research": cfg.WebResearch,
		"http":         cfg.HTTP,
	} {
		if err := structValidator.Struct(section); err != nil {
			return NewValidationError(name, "", err)
		}
	}

	for name, p := range cfg.LLMProviders.GetAll() {
		if err := structValidator.Struct(p); err != nil {
			return NewValidationError("llm_providers", name, err)
		}
		if p.RequestTimeout != "" {
			if _, err := time.ParseDuration(p.RequestTimeout); err != nil {
				return NewValidationError("llm_providers", name,
					fmt.Errorf("invalid request_timeout %q: %w", p.RequestTimeout, err))
			}
		}
	}

	if !cfg.LLMProviders.Has(cfg.DefaultLLMProvider) {
		return NewValidationError("default_llm_provider", "",
			fmt.Errorf("provider %q not found in llm_providers", cfg.DefaultLLMProvider))
	}

	if cfg.Scoring.TrendVelocityStable >= cfg.Scoring.TrendVelocityIncreasing {
		return NewValidationError("scoring", "trend_velocity_stable",
			fmt.Errorf("must be less than trend_velocity_increasing, got stable=%v increasing=%v",
				cfg.Scoring.TrendVelocityStable, cfg.Scoring.TrendVelocityIncreasing))
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.MidnightHour == cfg.Scheduler.MorningHour {
		return NewValidationError("scheduler", "morning_hour",
			fmt.Errorf("must differ from midnight_hour, both are %d", cfg.Scheduler.MidnightHour))
	}

	if cfg.Push.Enabled && cfg.Push.APIKeyEnv == "" {
		return NewValidationError("push", "api_key_env",
			fmt.Errorf("required when push.enabled is true"))
	}

	if cfg.WebResearch.Enabled && cfg.WebResearch.APIKeyEnv == "" {
		return NewValidationError("web_research", "api_key_env",
			fmt.Errorf("required when web_research.enabled is true"))
	}

	return nil
}
