package config

// BuiltinConfig groups the configuration the engine ships with, merged
// with (and overridden by) anything the operator supplies in YAML.
// Mirrors the teacher's GetBuiltinConfig — a static fallback so the
// engine runs with sane defaults even without a config directory.
type BuiltinConfig struct {
	Providers    map[string]ProviderConfig
	Roles        map[string]RoleConfig
	TaskPlugins  map[string][]string
	BrainPlugins map[string][]string
}

// GetBuiltinConfig returns the engine's built-in defaults.
func GetBuiltinConfig() BuiltinConfig {
	return BuiltinConfig{
		Providers: map[string]ProviderConfig{
			"anthropic": {BaseURL: "https://api.anthropic.com", APIKeyEnv: "ANTHROPIC_API_KEY"},
			"openai":    {BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY"},
		},
		Roles: map[string]RoleConfig{
			"intent":             {Provider: "anthropic", Model: "claude-haiku-4-5", Temperature: 0.2, MaxTokens: 512},
			"strategy":           {Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.3, MaxTokens: 1024},
			"evaluation":         {Provider: "anthropic", Model: "claude-haiku-4-5", Temperature: 0.0, MaxTokens: 512},
			"analysis":           {Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.4, MaxTokens: 1536},
			"thinking_narrative": {Provider: "openai", Model: "gpt-4.1-mini", Temperature: 0.6, MaxTokens: 600},
			"generation":         {Provider: "anthropic", Model: "claude-sonnet-4-5", Temperature: 0.8, MaxTokens: 2048},
		},
		// §9: the source has a single non-default entry. Other task
		// types fall back to DefaultTaskType.
		TaskPlugins: map[string][]string{
			DefaultTaskType: {"kb_analysis"},
			"campaign_or_copy": {"kb_analysis", "campaign_plan"},
		},
		BrainPlugins: map[string][]string{
			"analysis":   {"kb_analysis", "campaign_plan"},
			"generation": {"campaign_plan"},
			"strategy":   {"bilibili_hotspot"},
		},
	}
}
