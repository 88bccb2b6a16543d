package config

// mergeLLMProviders merges built-in and user-defined LLM provider
// configurations. User-defined providers override built-ins with the same
// name; this mirrors tarsy's by-name override merge for named collections
// (as opposed to the single-struct deep merge mergo.Merge performs below).
func mergeLLMProviders(builtin, user map[string]LLMProviderConfig) map[string]*LLMProviderConfig {
	result := make(map[string]*LLMProviderConfig, len(builtin)+len(user))
	for name, p := range builtin {
		pc := p
		result[name] = &pc
	}
	for name, p := range user {
		pc := p
		result[name] = &pc
	}
	return result
}
