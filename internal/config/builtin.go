package config

// builtinLLMProviders returns the one default LLM provider shipped with
// the binary. User YAML can override it by name or add additional
// providers (e.g. a cheaper model for classification, a stronger one for
// synthesis) without touching these defaults.
func builtinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"default": {
			Type:            LLMBackendOpenAICompatible,
			Model:           "gpt-4o-mini",
			APIKeyEnv:       "LLM_API_KEY",
			BaseURL:         "https://api.openai.com/v1",
			MaxOutputTokens: 4096,
			RequestTimeout:  "60s",
			MaxRetries:      3,
		},
	}
}
