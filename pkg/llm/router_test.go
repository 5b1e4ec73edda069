package llm

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *config.LLMRegistry {
	t.Helper()
	os.Setenv("ROUTER_TEST_KEY", "sk-test")
	return config.NewLLMRegistry(
		map[string]config.ProviderConfig{
			"anthropic": {BaseURL: "https://api.anthropic.com", APIKeyEnv: "ROUTER_TEST_KEY"},
			"openai":    {BaseURL: "https://api.openai.com", APIKeyEnv: "ROUTER_TEST_KEY"},
		},
		map[string]config.RoleConfig{
			"intent":   {Provider: "anthropic", Model: "claude-haiku-4-5"},
			"strategy": {Provider: "openai", Model: "gpt-4.1-mini"},
		},
	)
}

func TestRouter_Invoke_SelectsRoleAndReturnsResponse(t *testing.T) {
	registry := testRegistry(t)
	intentClient := &MockClient{Response: "intent-reply"}
	factories := map[string]ClientFactory{
		"anthropic": func(baseURL, apiKey string) Client { return intentClient },
		"openai":    func(baseURL, apiKey string) Client { return &MockClient{Response: "strategy-reply"} },
	}
	router := NewRouter(registry, factories)

	out, err := router.Invoke(context.Background(), []Message{{Role: "user", Content: "hi"}}, "chat_reply", "low")
	require.NoError(t, err)
	assert.Equal(t, "intent-reply", out)
	require.Len(t, intentClient.Calls, 1)
	assert.Equal(t, "claude-haiku-4-5", intentClient.Calls[0].Model)
}

func TestRouter_Invoke_FallsBackOnceThenSucceeds(t *testing.T) {
	registry := testRegistry(t)
	factories := map[string]ClientFactory{
		"anthropic": func(baseURL, apiKey string) Client { return &MockClient{Err: errors.New("primary down")} },
		"openai":    func(baseURL, apiKey string) Client { return &MockClient{Response: "fallback-reply"} },
	}
	router := NewRouter(registry, factories)

	out, err := router.Invoke(context.Background(), nil, "chat_reply", "low")
	require.NoError(t, err)
	assert.Equal(t, "fallback-reply", out)
}

func TestRouter_Invoke_FallbackAlsoFailsPropagates(t *testing.T) {
	registry := testRegistry(t)
	wantErr := errors.New("fallback down")
	factories := map[string]ClientFactory{
		"anthropic": func(baseURL, apiKey string) Client { return &MockClient{Err: errors.New("primary down")} },
		"openai":    func(baseURL, apiKey string) Client { return &MockClient{Err: wantErr} },
	}
	router := NewRouter(registry, factories)

	_, err := router.Invoke(context.Background(), nil, "chat_reply", "low")
	require.ErrorIs(t, err, wantErr)
}

func TestRouter_Invoke_NonFallbackRolePropagatesImmediately(t *testing.T) {
	registry := config.NewLLMRegistry(
		map[string]config.ProviderConfig{"anthropic": {BaseURL: "https://api.anthropic.com", APIKeyEnv: "ROUTER_TEST_KEY"}},
		map[string]config.RoleConfig{"evaluation": {Provider: "anthropic", Model: "claude-haiku-4-5"}},
	)
	os.Setenv("ROUTER_TEST_KEY", "sk-test")
	wantErr := errors.New("evaluation down")
	factories := map[string]ClientFactory{
		"anthropic": func(baseURL, apiKey string) Client { return &MockClient{Err: wantErr} },
	}
	router := NewRouter(registry, factories)

	_, err := router.Invoke(context.Background(), nil, "evaluation", "low")
	require.ErrorIs(t, err, wantErr)
}

func TestRouter_ClientForRole_CachesClient(t *testing.T) {
	registry := testRegistry(t)
	builds := 0
	factories := map[string]ClientFactory{
		"anthropic": func(baseURL, apiKey string) Client {
			builds++
			return &MockClient{Response: "ok"}
		},
	}
	router := NewRouter(registry, factories)

	_, err := router.Invoke(context.Background(), nil, "chat_reply", "low")
	require.NoError(t, err)
	_, err = router.Invoke(context.Background(), nil, "chat_reply", "low")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)
}
