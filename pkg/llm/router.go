package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/masking"
)

// ClientFactory constructs a provider-specific Client from a resolved
// role's base URL and API key. Router is injected with one factory per
// provider name so tests can substitute MockClient without touching
// real credentials.
type ClientFactory func(baseURL, apiKey string) Client

// DefaultFactories returns the provider→factory table wired to the real
// Anthropic and OpenAI adapters.
func DefaultFactories() map[string]ClientFactory {
	return map[string]ClientFactory{
		"anthropic": NewAnthropicClient,
		"openai":    NewOpenAIClient,
	}
}

// Router implements the §4.3 LLM Router: task/complexity→role
// selection, lazy per-role client construction, and a single fallback
// to the opposite role on failure.
type Router struct {
	registry  *config.LLMRegistry
	factories map[string]ClientFactory

	mu      sync.Mutex
	clients map[string]Client // keyed by role name
	log     *slog.Logger
}

// NewRouter builds a Router over registry using factories to construct
// provider clients. Clients are constructed lazily, one per role, on
// first use.
func NewRouter(registry *config.LLMRegistry, factories map[string]ClientFactory) *Router {
	return &Router{
		registry:  registry,
		factories: factories,
		clients:   make(map[string]Client),
		log:       slog.With("component", "llm_router"),
	}
}

// clientForRole resolves role's provider/model/credentials and returns
// a cached or newly constructed Client for it.
func (r *Router) clientForRole(role string) (Client, config.ResolvedRole, error) {
	resolved, err := r.registry.Resolve(role)
	if err != nil {
		return nil, config.ResolvedRole{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[role]; ok {
		return c, resolved, nil
	}

	factory, ok := r.factories[resolved.Provider]
	if !ok {
		return nil, config.ResolvedRole{}, fmt.Errorf("llm: no client factory registered for provider %q", resolved.Provider)
	}
	c := factory(resolved.BaseURL, resolved.APIKey)
	r.clients[role] = c
	return c, resolved, nil
}

// Invoke selects a role from taskType/complexity, calls its client, and
// on failure falls back exactly once to the opposite strategy/intent
// role before propagating the error. Non-strategy/intent roles have no
// fallback and propagate immediately.
func (r *Router) Invoke(ctx context.Context, messages []Message, taskType, complexity string) (string, error) {
	role := config.RoleForTask(taskType, complexity)
	out, err := r.invokeRole(ctx, role, messages)
	if err == nil {
		return out, nil
	}

	fallback, ok := config.FallbackRole(role)
	if !ok {
		return "", err
	}
	r.log.Warn("llm role failed, falling back once", "role", role, "fallback", fallback, "error", masking.RedactError(err))

	out, fbErr := r.invokeRole(ctx, fallback, messages)
	if fbErr != nil {
		return "", fbErr
	}
	return out, nil
}

func (r *Router) invokeRole(ctx context.Context, role string, messages []Message) (string, error) {
	client, resolved, err := r.clientForRole(role)
	if err != nil {
		return "", err
	}
	r.log.Debug("llm invoke", "role", role, "model", resolved.Model, "messages", maskMessages(messages))
	out, err := client.Generate(ctx, messages, Options{
		Model:       resolved.Model,
		Temperature: resolved.Temperature,
		MaxTokens:   resolved.MaxTokens,
	})
	if err != nil {
		return "", masking.RedactError(err)
	}
	r.log.Debug("llm response", "role", role, "output", masking.Redact(out))
	return out, nil
}

// maskMessages redacts each message's content before it reaches a log
// line — prompts routinely carry brand facts and profile PII (§10.3).
func maskMessages(messages []Message) []Message {
	masked := make([]Message, len(messages))
	for i, m := range messages {
		masked[i] = Message{Role: m.Role, Content: masking.Redact(m.Content)}
	}
	return masked
}
