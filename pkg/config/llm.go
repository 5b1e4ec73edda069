package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/marketing-ai/thinkengine/pkg/types"
)

// ProviderConfig names where a provider's credentials live. It never
// carries the key itself — only the env var name to read it from.
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
}

// RoleConfig is one entry of the LLM interface-config registry, keyed by
// role name (intent, strategy, evaluation, analysis, thinking_narrative,
// ...). BaseURL/APIKeyEnv override the provider's defaults when set.
type RoleConfig struct {
	Provider    string  `yaml:"provider" validate:"required"`
	Model       string  `yaml:"model" validate:"required"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env,omitempty"`
}

// ResolvedRole is a RoleConfig with its provider's defaults applied and
// its API key read from the environment.
type ResolvedRole struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	APIKey      string
}

// LLMRegistry stores the provider table and role table in memory with
// thread-safe access, mirroring the teacher's defensive-copy registry
// pattern (see ChainRegistry).
type LLMRegistry struct {
	mu        sync.RWMutex
	providers map[string]ProviderConfig
	roles     map[string]RoleConfig
}

// NewLLMRegistry builds a registry from defensive copies of both maps.
func NewLLMRegistry(providers map[string]ProviderConfig, roles map[string]RoleConfig) *LLMRegistry {
	p := make(map[string]ProviderConfig, len(providers))
	for k, v := range providers {
		p[k] = v
	}
	r := make(map[string]RoleConfig, len(roles))
	for k, v := range roles {
		r[k] = v
	}
	return &LLMRegistry{providers: p, roles: r}
}

// Role returns the raw role config.
func (l *LLMRegistry) Role(name string) (RoleConfig, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rc, ok := l.roles[name]
	if !ok {
		return RoleConfig{}, fmt.Errorf("%w: %s", ErrLLMRoleNotFound, name)
	}
	return rc, nil
}

// Roles returns a copy of the role table.
func (l *LLMRegistry) Roles() map[string]RoleConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]RoleConfig, len(l.roles))
	for k, v := range l.roles {
		out[k] = v
	}
	return out
}

// Resolve returns role with the provider's base URL/key env applied and
// the API key read from the environment. Fails with a descriptive error
// when the role, provider, or environment variable is missing — the
// "unrecoverable misconfiguration" error class.
func (l *LLMRegistry) Resolve(role string) (ResolvedRole, error) {
	l.mu.RLock()
	rc, ok := l.roles[role]
	if !ok {
		l.mu.RUnlock()
		return ResolvedRole{}, fmt.Errorf("%w: %s", ErrLLMRoleNotFound, role)
	}
	prov, ok := l.providers[rc.Provider]
	l.mu.RUnlock()
	if !ok {
		return ResolvedRole{}, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, rc.Provider)
	}

	baseURL := rc.BaseURL
	if baseURL == "" {
		baseURL = prov.BaseURL
	}
	keyEnv := rc.APIKeyEnv
	if keyEnv == "" {
		keyEnv = prov.APIKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return ResolvedRole{}, NewValidationError("LLMRegistry", role, "api_key_env",
			fmt.Errorf("%w: env var %s is unset", types.ErrMissingAPIKey, keyEnv))
	}

	return ResolvedRole{
		Provider:    rc.Provider,
		Model:       rc.Model,
		Temperature: rc.Temperature,
		MaxTokens:   rc.MaxTokens,
		BaseURL:     baseURL,
		APIKey:      apiKey,
	}, nil
}

// RoleForTask implements the §4.3 selection function: chat_reply→intent,
// planning→strategy, evaluation→evaluation, analysis→analysis, default
// by complexity (high→strategy, else intent).
func RoleForTask(taskType string, complexity string) string {
	switch taskType {
	case "chat_reply":
		return "intent"
	case "planning":
		return "strategy"
	case "evaluation":
		return "evaluation"
	case "analysis":
		return "analysis"
	case "narrative":
		return "thinking_narrative"
	case "generation":
		return "strategy"
	default:
		if complexity == "high" {
			return "strategy"
		}
		return "intent"
	}
}

// FallbackRole implements the router's "opposite of strategy/intent"
// single fallback rule.
func FallbackRole(role string) (string, bool) {
	switch role {
	case "strategy":
		return "intent", true
	case "intent":
		return "strategy", true
	default:
		return "", false
	}
}

// Len returns the number of configured roles.
func (l *LLMRegistry) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.roles)
}
