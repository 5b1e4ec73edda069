package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMRegistry_Resolve(t *testing.T) {
	require.NoError(t, os.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123"))
	defer os.Unsetenv("TEST_ANTHROPIC_KEY")

	reg := NewLLMRegistry(
		map[string]ProviderConfig{
			"anthropic": {BaseURL: "https://api.anthropic.com", APIKeyEnv: "TEST_ANTHROPIC_KEY"},
		},
		map[string]RoleConfig{
			"intent": {Provider: "anthropic", Model: "claude-haiku-4-5"},
		},
	)

	resolved, err := reg.Resolve("intent")
	require.NoError(t, err)
	assert.Equal(t, "claude-haiku-4-5", resolved.Model)
	assert.Equal(t, "https://api.anthropic.com", resolved.BaseURL)
	assert.Equal(t, "sk-test-123", resolved.APIKey)
}

func TestLLMRegistry_Resolve_MissingAPIKey(t *testing.T) {
	reg := NewLLMRegistry(
		map[string]ProviderConfig{"anthropic": {BaseURL: "https://api.anthropic.com", APIKeyEnv: "TOTALLY_UNSET_VAR"}},
		map[string]RoleConfig{"intent": {Provider: "anthropic", Model: "x"}},
	)
	_, err := reg.Resolve("intent")
	require.Error(t, err)
}

func TestLLMRegistry_Resolve_UnknownRole(t *testing.T) {
	reg := NewLLMRegistry(nil, nil)
	_, err := reg.Resolve("nonexistent")
	require.ErrorIs(t, err, ErrLLMRoleNotFound)
}

func TestRoleForTask(t *testing.T) {
	cases := []struct {
		taskType, complexity, want string
	}{
		{"chat_reply", "low", "intent"},
		{"planning", "low", "strategy"},
		{"evaluation", "low", "evaluation"},
		{"analysis", "low", "analysis"},
		{"unknown", "high", "strategy"},
		{"unknown", "low", "intent"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RoleForTask(c.taskType, c.complexity))
	}
}

func TestFallbackRole(t *testing.T) {
	got, ok := FallbackRole("strategy")
	assert.True(t, ok)
	assert.Equal(t, "intent", got)

	got, ok = FallbackRole("intent")
	assert.True(t, ok)
	assert.Equal(t, "strategy", got)

	_, ok = FallbackRole("evaluation")
	assert.False(t, ok)
}
