package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// LLMInvoker is the narrow LLM Router surface Generation needs.
type LLMInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error)
}

// Generation produces MetaState.Content from the accumulated analysis,
// search and memory context, optionally steered by generation plugin
// auxiliary output (style packs, sample libraries, ...) fetched from
// the Plugin Center before the LLM call.
type Generation struct {
	router LLMInvoker
	center Center
	log    *slog.Logger
}

// NewGeneration builds a Generation sub-graph. center may be nil when
// no generation plugins are configured; the LLM call still runs.
func NewGeneration(router LLMInvoker, center Center) *Generation {
	return &Generation{router: router, center: center, log: slog.With("component", "generation_subgraph")}
}

// Run fetches each plugin's auxiliary output (best-effort, never
// fails the run), then asks the LLM (strategy role via task_type
// "generation", high complexity — content generation is the most
// consequential single call in a turn) to produce content consistent
// with the accumulated MetaState. On any LLM failure it returns the
// error; the Orchestrator isolates it into that step's StepOutput.
func (g *Generation) Run(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) (types.MetaStateDelta, error) {
	aux := g.gatherAux(ctx, state, plugins, params)

	messages := g.buildMessages(state, aux, params)
	raw, err := g.router.Invoke(ctx, messages, "generation", "high")
	if err != nil {
		return types.MetaStateDelta{}, fmt.Errorf("generation: %w", err)
	}
	content := strings.TrimSpace(stripFence(raw))
	if content == "" {
		return types.MetaStateDelta{}, fmt.Errorf("generation: llm returned empty content")
	}
	return types.MetaStateDelta{Content: content}, nil
}

func (g *Generation) gatherAux(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) map[string]interface{} {
	aux := map[string]interface{}{}
	if g.center == nil {
		return aux
	}
	callContext := buildCallContext(state, params)
	for _, name := range plugins {
		out := g.center.GetOutput(ctx, name, callContext)
		if len(out) == 0 {
			continue
		}
		aux[name] = out
	}
	return aux
}

func (g *Generation) buildMessages(state *types.MetaState, aux map[string]interface{}, params map[string]interface{}) []llm.Message {
	var sb strings.Builder
	sb.WriteString("你是营销内容生成器，请依据分析结果与上下文生成最终的营销文案或脚本内容。只输出正文内容，不要输出解释或 JSON。")

	payload := map[string]interface{}{
		"user_input":     state.UserInput,
		"analysis":       state.Analysis,
		"search_context": state.SearchContext,
		"memory_context": state.MemoryContext,
		"effective_tags": state.EffectiveTags,
		"aux_plugins":    aux,
		"params":         params,
	}
	encoded, _ := json.Marshal(payload)
	return []llm.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: string(encoded)},
	}
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```markdown")
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
