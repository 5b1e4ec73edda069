// Package subgraph implements the Analysis and Generation sub-graphs
// (§4.10): single-node MetaState consumers/producers the Orchestrator
// dispatches the "analyze" and "generate" built-in steps to. Analysis
// calls its configured plugins on the Plugin Center concurrently, one
// goroutine per plugin, each under its own timeout; Generation calls its
// plugins one after another, without a per-plugin timeout.
package subgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/cache"
	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/plugincenter"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// Center is the narrow Plugin Center surface both sub-graphs need.
type Center interface {
	GetOutput(ctx context.Context, name string, callContext map[string]interface{}) map[string]interface{}
}

// Analysis runs the configured analysis plugins in parallel, merges
// their outputs into MetaState.Analysis via the §4.5 merge convention,
// and folds in a default LLM analysis call — a short catch-phrase
// angle in full mode, or a recommended-plan document in strategy mode
// when the plan has no generate step — cached under an "analyze:"
// fingerprint of the effective tags.
type Analysis struct {
	center  Center
	router  LLMInvoker
	cache   *cache.SmartCache
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger
}

// NewAnalysis builds an Analysis sub-graph. A zero timeout falls back
// to 90s, matching the Orchestrator's default capability timeout.
// smartCache/ttl may be nil/zero, in which case the default LLM
// analysis call always runs uncached.
func NewAnalysis(center Center, router LLMInvoker, smartCache *cache.SmartCache, ttl time.Duration, timeout time.Duration) *Analysis {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Analysis{center: center, router: router, cache: smartCache, ttl: ttl, timeout: timeout, log: slog.With("component", "analysis_subgraph")}
}

// Run invokes every plugin in plugins concurrently, each under its own
// timeout, merges their outputs, then folds in the default LLM
// analysis. A single plugin's failure never aborts the others;
// plugincenter.Center already swallows per-plugin errors/panics into
// {}. The default LLM call degrades to leaving the plugin-only
// analysis untouched on failure rather than erroring the step.
func (a *Analysis) Run(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) (types.MetaStateDelta, error) {
	analysis := map[string]interface{}{}
	var kbContext string

	if len(plugins) > 0 {
		callContext := buildCallContext(state, params)

		type pluginOutput struct {
			name   string
			output map[string]interface{}
		}
		results := make([]pluginOutput, len(plugins))

		var wg sync.WaitGroup
		for i, name := range plugins {
			wg.Add(1)
			go func(slot int, pluginName string) {
				defer wg.Done()
				pctx, cancel := context.WithTimeout(ctx, a.timeout)
				defer cancel()
				results[slot] = pluginOutput{name: pluginName, output: a.center.GetOutput(pctx, pluginName, callContext)}
			}(i, name)
		}
		wg.Wait()

		for _, r := range results {
			if len(r.output) == 0 {
				a.log.Debug("analysis plugin produced no output", "plugin", r.name)
				continue
			}
			plugincenter.MergeOutput(analysis, r.name, r.output)
		}

		// The kb_analysis plugin (and any plugin following the same
		// convention) contributes knowledge-base passages under
		// analysis["kb_context"]; §4.9 treats kb_context as its own
		// MetaState field alongside search_context/memory_context, so it
		// is lifted out here rather than left buried in the analysis map.
		if v, ok := analysis["kb_context"].(string); ok {
			kbContext = v
		}
	}
	if kbContext == "" {
		kbContext = state.KBContext
	}

	cacheHit := false
	if a.router != nil {
		strategyMode := !state.Plan.HasStep(types.StepGenerate)
		llmFields, hit, err := a.runDefaultAnalysis(ctx, state, kbContext, strategyMode)
		if err != nil {
			a.log.Warn("default analysis llm call failed, keeping plugin-only analysis", "error", err)
		} else {
			cacheHit = hit
			// Never overwrite a key a hotspot/analysis plugin already set.
			for k, v := range llmFields {
				if _, exists := analysis[k]; !exists {
					analysis[k] = v
				}
			}
		}
	}

	return types.MetaStateDelta{Analysis: analysis, KBContext: kbContext, AnalyzeCacheHit: &cacheHit}, nil
}

// analysisResponse is the strict JSON shape requested of the LLM in
// full mode; in strategy mode only Angle (the recommended-plan
// document) is populated.
type analysisResponse struct {
	SemanticScore float64 `json:"semantic_score"`
	Angle         string  `json:"angle"`
	Reason        string  `json:"reason"`
}

// runDefaultAnalysis composes the preference context (memory + search +
// kb, each under a labelled section), calls the LLM under an
// "analyze:"-prefixed fingerprint of the effective tags, and returns the
// parsed fields as a plain map ready to merge into Analysis.
func (a *Analysis) runDefaultAnalysis(ctx context.Context, state *types.MetaState, kbContext string, strategyMode bool) (map[string]interface{}, bool, error) {
	mode := "full"
	if strategyMode {
		mode = "strategy"
	}

	sortedTags := append([]string(nil), state.EffectiveTags...)
	sort.Strings(sortedTags)
	key := cache.BuildFingerprintKey("analyze:", map[string]interface{}{
		"tags": sortedTags,
		"mode": mode,
	})

	ttl := a.ttl
	if a.cache == nil {
		ttl = 0
	}
	producer := func() (interface{}, error) {
		return a.callLLM(ctx, state, kbContext, strategyMode)
	}

	var result interface{}
	var hit bool
	var err error
	if a.cache != nil {
		result, hit, err = a.cache.GetOrSet(key, ttl, producer)
	} else {
		result, err = producer()
	}
	if err != nil {
		return nil, false, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("analysis: re-encode cached result: %w", err)
	}
	var resp analysisResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("analysis: decode result: %w", err)
	}

	if strategyMode {
		return map[string]interface{}{"angle": resp.Angle}, hit, nil
	}
	return map[string]interface{}{
		"semantic_score": resp.SemanticScore,
		"angle":          resp.Angle,
		"reason":         resp.Reason,
	}, hit, nil
}

func (a *Analysis) callLLM(ctx context.Context, state *types.MetaState, kbContext string, strategyMode bool) (analysisResponse, error) {
	raw, err := a.router.Invoke(ctx, a.buildAnalysisMessages(state, kbContext, strategyMode), "analysis", "medium")
	if err != nil {
		return analysisResponse{}, fmt.Errorf("analyze: %w", err)
	}

	cleaned := stripFence(raw)
	if strategyMode {
		// Strategy mode asks for a free-form recommended-plan document,
		// not JSON — the whole response is the angle.
		return analysisResponse{Angle: cleaned}, nil
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return analysisResponse{}, fmt.Errorf("analyze: parse response JSON: %w", err)
	}
	return resp, nil
}

func (a *Analysis) buildAnalysisMessages(state *types.MetaState, kbContext string, strategyMode bool) []llm.Message {
	var ctxBuilder strings.Builder
	if state.MemoryContext != "" {
		ctxBuilder.WriteString("【记忆上下文】\n" + state.MemoryContext + "\n")
	}
	if state.SearchContext != "" {
		ctxBuilder.WriteString("【检索上下文】\n" + state.SearchContext + "\n")
	}
	if kbContext != "" {
		ctxBuilder.WriteString("【知识库上下文】\n" + kbContext + "\n")
	}
	preferenceContext := strings.TrimSpace(ctxBuilder.String())

	var system string
	if strategyMode {
		system = "你是营销策略分析器。当前计划不包含生成文案步骤，请直接输出一份推荐执行方案的说明文档（纯文本，不要 JSON）。"
	} else {
		system = "你是营销策略分析器。请结合上下文给出语义评分与创作角度，输出严格 JSON：" +
			`{"semantic_score":0-1,"angle":"...","reason":"..."}`
	}

	user := "用户输入：" + state.UserInput + "\n" + preferenceContext

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// buildCallContext surfaces the MetaState fields a plugin typically
// needs (brand/product context, prior search/memory context) plus any
// step-level params, without handing the plugin the whole MetaState.
func buildCallContext(state *types.MetaState, params map[string]interface{}) map[string]interface{} {
	ctx := map[string]interface{}{}
	if state != nil {
		ctx["user_input"] = state.UserInput
		ctx["search_context"] = state.SearchContext
		ctx["memory_context"] = state.MemoryContext
		ctx["effective_tags"] = state.EffectiveTags
		ctx["analysis"] = state.Analysis
	}
	for k, v := range params {
		ctx[k] = v
	}
	return ctx
}
