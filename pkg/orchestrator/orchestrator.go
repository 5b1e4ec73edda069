// Package orchestrator implements the Orchestrator (§4.9): given a Plan
// and a MetaState, it executes the plan's steps — fanning the
// parallel-safe subset out across goroutines, running the rest
// sequentially in plan order — merging each step's delta back into the
// MetaState and recording an append-only thinking log and step-output
// trail. Built-in steps are dispatched directly; any other step name is
// looked up in the Plugin Registry as a compiled sub-graph. A single
// step's failure or panic never aborts the run (§7): it is isolated
// into that step's StepOutput.Error and execution continues.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/pluginregistry"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

var tracer = otel.Tracer("github.com/marketing-ai/thinkengine/pkg/orchestrator")
var meter = otel.Meter("github.com/marketing-ai/thinkengine/pkg/orchestrator")

var (
	stepCounter, _  = meter.Int64Counter("orchestrator.step.count", metric.WithDescription("plan steps dispatched, by step name and outcome"))
	stepDuration, _ = meter.Float64Histogram("orchestrator.step.duration", metric.WithDescription("step dispatch latency in seconds"), metric.WithUnit("s"))
)

// WebSearch performs a capability-port web search, returning plain
// text context suitable for MetaState.SearchContext.
type WebSearch interface {
	Search(ctx context.Context, query string, params map[string]interface{}) (string, error)
}

// MemoryProvider assembles the preference/memory context for a turn.
// Satisfied by *memory.Service without this package importing it.
type MemoryProvider interface {
	Assemble(userID, sessionID, brand, product, topic string, tagsOverride []string) (MemoryAssembled, error)
}

// MemoryAssembled mirrors the subset of memory.Assembled the
// orchestrator needs.
type MemoryAssembled struct {
	PreferenceContext string
	EffectiveTags     []string
}

// EventBus publishes lifecycle events (§4.4). Satisfied by
// *pluginbus.Bus without this package importing it.
type EventBus interface {
	Publish(event types.PluginEvent)
}

// HotspotProvider surfaces a named platform plugin's cached output
// (bilibili_hotspot and siblings). Satisfied by *plugincenter.Center.
type HotspotProvider interface {
	GetOutput(ctx context.Context, name string, callContext map[string]interface{}) map[string]interface{}
}

// AnalysisRunner executes the Analysis sub-graph (§4.10).
type AnalysisRunner interface {
	Run(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) (types.MetaStateDelta, error)
}

// GenerationRunner executes the Generation sub-graph (§4.10).
type GenerationRunner interface {
	Run(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) (types.MetaStateDelta, error)
}

// Evaluator scores generated content against the brief (evaluate step).
type Evaluator interface {
	Evaluate(ctx context.Context, state *types.MetaState, params map[string]interface{}) (types.MetaStateDelta, error)
}

// mergeOutput implements the §4.5 result-merging convention locally so
// this package doesn't need to import plugincenter for one function:
// a {"analysis": {...}} shaped result merges field-wise, anything else
// is stored under the plugin's name.
func mergeOutput(analysis map[string]interface{}, pluginName string, result map[string]interface{}) {
	if nested, ok := result["analysis"].(map[string]interface{}); ok {
		for k, v := range nested {
			analysis[k] = v
		}
		return
	}
	analysis[pluginName] = result
}

// Deps bundles the capability ports and sub-graphs the Orchestrator
// dispatches built-in steps to. Any field may be nil; a nil dependency
// makes the corresponding step fail closed (recorded as a StepOutput
// error, never a panic).
type Deps struct {
	WebSearch  WebSearch
	Memory     MemoryProvider
	Hotspots   HotspotProvider
	Analysis   AnalysisRunner
	Generation GenerationRunner
	Evaluator  Evaluator
	Registry   *pluginregistry.Registry
	Bus        EventBus
}

// Orchestrator runs plans against a MetaState.
type Orchestrator struct {
	deps     Deps
	defaults *config.Defaults
	log      *slog.Logger
}

// New builds an Orchestrator. defaults supplies the per-step timeout
// and parallel fan-out bound (§5); a nil defaults falls back to
// config.DefaultDefaults().
func New(deps Deps, defaults *config.Defaults) *Orchestrator {
	if defaults == nil {
		defaults = config.DefaultDefaults()
	}
	return &Orchestrator{deps: deps, defaults: defaults, log: slog.With("component", "orchestrator")}
}

// stepResult is one step's outcome, tagged with its original plan
// index so output ordering stays deterministic regardless of which
// phase (parallel or sequential) produced it.
type stepResult struct {
	index  int
	output types.StepOutput
	delta  types.MetaStateDelta
}

// Run executes plan against state, in place. The parallel-safe subset
// (§types.ParallelSafeSteps, plus any *_hotspot step) runs concurrently
// first, bounded by defaults.MaxParallelSteps; the remaining steps run
// sequentially afterward, in plan order. Every step gets its own
// defaults.CapabilityTimeout deadline. Run only returns an error when
// the caller's ctx is already done before any step starts; individual
// step failures are isolated into StepOutputs and never abort the run.
func (o *Orchestrator) Run(ctx context.Context, input types.ProcessedInput, plan types.Plan, state *types.MetaState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("orchestrator: context already done: %w", err)
	}

	state.Plan = plan

	var parallelIdx, sequentialIdx []int
	for i, step := range plan.Steps {
		if types.ParallelSafeSteps[step.StepName] || types.IsHotspotStep(step.StepName) {
			parallelIdx = append(parallelIdx, i)
		} else {
			sequentialIdx = append(sequentialIdx, i)
		}
	}

	parallelResults := o.runParallel(ctx, input, plan, parallelIdx)
	sort.Slice(parallelResults, func(i, j int) bool { return parallelResults[i].index < parallelResults[j].index })
	for _, r := range parallelResults {
		o.settle(state, plan, r)
	}

	for _, idx := range sequentialIdx {
		r := o.runStep(ctx, input, plan, state, idx)
		o.settle(state, plan, r)
	}

	return nil
}

// runParallel fans indices out across goroutines bounded by
// defaults.MaxParallelSteps, collecting every result before returning.
func (o *Orchestrator) runParallel(ctx context.Context, input types.ProcessedInput, plan types.Plan, indices []int) []stepResult {
	if len(indices) == 0 {
		return nil
	}

	limit := o.defaults.MaxParallelSteps
	if limit <= 0 {
		limit = len(indices)
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	results := make([]stepResult, len(indices))
	for i, idx := range indices {
		wg.Add(1)
		sem <- struct{}{}
		go func(slot, stepIdx int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[slot] = o.runStep(ctx, input, plan, nil, stepIdx)
		}(i, idx)
	}
	wg.Wait()
	return results
}

// settle merges r's delta into state and appends its log/output
// entries. Kept separate from runStep so the parallel phase can defer
// every mutation of the shared MetaState to the single goroutine
// calling Run, avoiding a mutex on MetaState itself.
func (o *Orchestrator) settle(state *types.MetaState, plan types.Plan, r stepResult) {
	state.Merge(r.delta)
	state.StepOutputs = append(state.StepOutputs, r.output)
	thought := r.output.Reason
	if r.output.Error != "" {
		thought = fmt.Sprintf("%s (error: %s)", thought, r.output.Error)
	}
	state.Log(r.output.Step, thought)
	state.CurrentStep = r.index + 1
}

// runStep dispatches one plan step under its own timeout and panic
// guard. state is only used for steps that need to read (not write)
// shared MetaState fields during the parallel phase — those reads are
// safe since no goroutine writes to state until settle runs back on
// the calling goroutine; pass nil when the step doesn't need it.
func (o *Orchestrator) runStep(ctx context.Context, input types.ProcessedInput, plan types.Plan, state *types.MetaState, idx int) (result stepResult) {
	step := plan.Steps[idx]
	result = stepResult{index: idx, output: types.StepOutput{Step: step.StepName, Reason: step.Reason}}

	stepCtx, span := tracer.Start(ctx, "orchestrator.step",
		trace.WithAttributes(attribute.String("step.name", step.StepName), attribute.Int("step.index", idx)))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "ok"
		if result.output.Error != "" {
			outcome = "error"
		}
		attrs := metric.WithAttributes(attribute.String("step.name", step.StepName), attribute.String("outcome", outcome))
		stepCounter.Add(ctx, 1, attrs)
		stepDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	timeout := o.defaults.CapabilityTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(stepCtx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("step panicked", "step", step.StepName, "recover", r)
			result.output.Error = fmt.Sprintf("panic: %v", r)
			span.RecordError(fmt.Errorf("panic: %v", r))
		}
	}()

	delta, err := o.dispatch(stepCtx, input, state, step)
	if err != nil {
		o.log.Error("step failed", "step", step.StepName, "error", err)
		result.output.Error = err.Error()
		span.RecordError(err)
		return result
	}
	result.delta = delta
	result.output.Result = stepResultSummary(delta)
	return result
}

// stepResultSummary reduces a delta to a small JSON-friendly summary
// for StepOutput.Result, instead of echoing the whole delta back.
func stepResultSummary(delta types.MetaStateDelta) interface{} {
	summary := map[string]interface{}{}
	if len(delta.Analysis) > 0 {
		summary["analysis_keys"] = mapKeys(delta.Analysis)
	}
	if delta.Content != "" {
		summary["content_len"] = len(delta.Content)
	}
	if len(delta.Evaluation) > 0 {
		summary["evaluation_keys"] = mapKeys(delta.Evaluation)
	}
	if delta.SearchContext != "" {
		summary["search_context_len"] = len(delta.SearchContext)
	}
	if delta.MemoryContext != "" {
		summary["memory_context_len"] = len(delta.MemoryContext)
	}
	if len(summary) == 0 {
		return nil
	}
	return summary
}

func mapKeys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// dispatch routes step to its built-in handler, or to the Plugin
// Registry when the name isn't one of the built-ins.
func (o *Orchestrator) dispatch(ctx context.Context, input types.ProcessedInput, state *types.MetaState, step types.PlanStep) (types.MetaStateDelta, error) {
	switch {
	case step.StepName == types.StepWebSearch:
		return o.stepWebSearch(ctx, input, step)
	case step.StepName == types.StepMemory:
		return o.stepMemory(ctx, input, step)
	case step.StepName == types.StepAnalyze:
		return o.stepAnalyze(ctx, state, step)
	case step.StepName == types.StepGenerate:
		return o.stepGenerate(ctx, state, step)
	case step.StepName == types.StepEvaluate:
		return o.stepEvaluate(ctx, state, step)
	case types.IsHotspotStep(step.StepName):
		return o.stepHotspot(ctx, step)
	default:
		return o.stepPlugin(ctx, state, step)
	}
}

func (o *Orchestrator) stepWebSearch(ctx context.Context, input types.ProcessedInput, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.WebSearch == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: no web search port configured")
	}
	query, _ := step.Params["query"].(string)
	if query == "" {
		query = input.RawQuery
	}
	text, err := o.deps.WebSearch.Search(ctx, query, step.Params)
	if err != nil {
		return types.MetaStateDelta{}, fmt.Errorf("web_search: %w", err)
	}
	return types.MetaStateDelta{SearchContext: text}, nil
}

func (o *Orchestrator) stepMemory(ctx context.Context, input types.ProcessedInput, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.Memory == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: no memory provider configured")
	}
	var tagsOverride []string
	if raw, ok := step.Params["tags"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				tagsOverride = append(tagsOverride, s)
			}
		}
	}
	assembled, err := o.deps.Memory.Assemble(
		input.UserID, input.SessionID,
		input.StructuredData.BrandName, input.StructuredData.ProductDesc, input.StructuredData.Topic,
		tagsOverride,
	)
	if err != nil {
		return types.MetaStateDelta{}, fmt.Errorf("memory_query: %w", err)
	}
	return types.MetaStateDelta{MemoryContext: assembled.PreferenceContext, EffectiveTags: assembled.EffectiveTags}, nil
}

func (o *Orchestrator) stepHotspot(ctx context.Context, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.Hotspots == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: no hotspot provider configured")
	}
	result := o.deps.Hotspots.GetOutput(ctx, step.StepName, step.Params)
	analysis := map[string]interface{}{}
	mergeOutput(analysis, step.StepName, result)
	return types.MetaStateDelta{Analysis: analysis}, nil
}

func (o *Orchestrator) stepAnalyze(ctx context.Context, state *types.MetaState, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.Analysis == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: no analysis sub-graph configured")
	}
	plugins := state.AnalysisPlugins
	if raw, ok := step.Params["plugins"].([]string); ok && len(raw) > 0 {
		plugins = raw
	}
	delta, err := o.deps.Analysis.Run(ctx, state, plugins, step.Params)
	if err == nil && o.deps.Bus != nil {
		o.deps.Bus.Publish(types.NewPluginEvent(types.EventAnalysisCompleted, "orchestrator", map[string]interface{}{
			"session_id":     state.SessionID,
			"analysis_keys":  mapKeys(delta.Analysis),
			"cache_hit":      delta.AnalyzeCacheHit != nil && *delta.AnalyzeCacheHit,
		}))
	}
	return delta, err
}

func (o *Orchestrator) stepGenerate(ctx context.Context, state *types.MetaState, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.Generation == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: no generation sub-graph configured")
	}
	plugins := state.GenerationPlugins
	if raw, ok := step.Params["plugins"].([]string); ok && len(raw) > 0 {
		plugins = raw
	}
	return o.deps.Generation.Run(ctx, state, plugins, step.Params)
}

func (o *Orchestrator) stepEvaluate(ctx context.Context, state *types.MetaState, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.Evaluator == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: no evaluator configured")
	}
	return o.deps.Evaluator.Evaluate(ctx, state, step.Params)
}

func (o *Orchestrator) stepPlugin(ctx context.Context, state *types.MetaState, step types.PlanStep) (types.MetaStateDelta, error) {
	if o.deps.Registry == nil {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: unknown step %q and no plugin registry configured", step.StepName)
	}
	workflow, ok := o.deps.Registry.GetWorkflow(step.StepName)
	if !ok {
		return types.MetaStateDelta{}, fmt.Errorf("orchestrator: unknown step %q", step.StepName)
	}
	return workflow(ctx, state, step.Params)
}
