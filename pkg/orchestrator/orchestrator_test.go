package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/pluginregistry"
	"github.com/marketing-ai/thinkengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWebSearch struct {
	text  string
	err   error
	delay time.Duration
}

func (f *fakeWebSearch) Search(ctx context.Context, query string, params map[string]interface{}) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

type fakeMemory struct {
	assembled MemoryAssembled
	err       error
}

func (f *fakeMemory) Assemble(userID, sessionID, brand, product, topic string, tagsOverride []string) (MemoryAssembled, error) {
	return f.assembled, f.err
}

type fakeHotspot struct {
	out map[string]interface{}
}

func (f *fakeHotspot) GetOutput(ctx context.Context, name string, callContext map[string]interface{}) map[string]interface{} {
	return f.out
}

type fakeAnalysis struct {
	delta types.MetaStateDelta
	err   error
	panic bool
}

func (f *fakeAnalysis) Run(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) (types.MetaStateDelta, error) {
	if f.panic {
		panic("boom")
	}
	return f.delta, f.err
}

type fakeGeneration struct {
	delta types.MetaStateDelta
	err   error
}

func (f *fakeGeneration) Run(ctx context.Context, state *types.MetaState, plugins []string, params map[string]interface{}) (types.MetaStateDelta, error) {
	return f.delta, f.err
}

type fakeEvaluator struct {
	delta types.MetaStateDelta
	err   error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, state *types.MetaState, params map[string]interface{}) (types.MetaStateDelta, error) {
	return f.delta, f.err
}

func TestRun_DispatchesBuiltinStepsAndMergesDeltas(t *testing.T) {
	deps := Deps{
		WebSearch:  &fakeWebSearch{text: "search results"},
		Analysis:   &fakeAnalysis{delta: types.MetaStateDelta{Analysis: map[string]interface{}{"trend": "up"}}},
		Generation: &fakeGeneration{delta: types.MetaStateDelta{Content: "生成的文案"}},
		Evaluator:  &fakeEvaluator{delta: types.MetaStateDelta{Evaluation: map[string]interface{}{"score": 0.9}}},
	}
	o := New(deps, config.DefaultDefaults())

	plan := types.Plan{Steps: []types.PlanStep{
		{StepName: types.StepWebSearch, Params: map[string]interface{}{}},
		{StepName: types.StepAnalyze, Params: map[string]interface{}{}},
		{StepName: types.StepGenerate, Params: map[string]interface{}{}},
		{StepName: types.StepEvaluate, Params: map[string]interface{}{}},
	}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(context.Background(), types.ProcessedInput{RawQuery: "q"}, plan, state)
	require.NoError(t, err)

	assert.Equal(t, "search results", state.SearchContext)
	assert.Equal(t, "up", state.Analysis["trend"])
	assert.Equal(t, "生成的文案", state.Content)
	assert.Equal(t, 0.9, state.Evaluation["score"])
	assert.Len(t, state.StepOutputs, 4)
	assert.Len(t, state.ThinkingLogs, 4)
}

func TestRun_ParallelStepOutputsPreserveOriginalPlanOrder(t *testing.T) {
	deps := Deps{
		WebSearch: &fakeWebSearch{text: "s", delay: 20 * time.Millisecond}, // slow
		Memory:    &fakeMemory{assembled: MemoryAssembled{PreferenceContext: "m", EffectiveTags: []string{"a"}}},
		Hotspots:  &fakeHotspot{out: map[string]interface{}{"topics": []string{"t1"}}},
	}
	o := New(deps, config.DefaultDefaults())

	plan := types.Plan{Steps: []types.PlanStep{
		{StepName: types.StepWebSearch},
		{StepName: types.StepMemory},
		{StepName: "bilibili_hotspot"},
	}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(context.Background(), types.ProcessedInput{}, plan, state)
	require.NoError(t, err)

	require.Len(t, state.StepOutputs, 3)
	assert.Equal(t, types.StepWebSearch, state.StepOutputs[0].Step)
	assert.Equal(t, types.StepMemory, state.StepOutputs[1].Step)
	assert.Equal(t, "bilibili_hotspot", state.StepOutputs[2].Step)
	assert.Equal(t, "m", state.MemoryContext)
	assert.Equal(t, []string{"a"}, state.EffectiveTags)
}

func TestRun_StepErrorIsolatesAndContinues(t *testing.T) {
	deps := Deps{
		Analysis:   &fakeAnalysis{err: errors.New("analysis down")},
		Generation: &fakeGeneration{delta: types.MetaStateDelta{Content: "still ran"}},
	}
	o := New(deps, config.DefaultDefaults())

	plan := types.Plan{Steps: []types.PlanStep{
		{StepName: types.StepAnalyze},
		{StepName: types.StepGenerate},
	}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(context.Background(), types.ProcessedInput{}, plan, state)
	require.NoError(t, err)
	require.Len(t, state.StepOutputs, 2)
	assert.Contains(t, state.StepOutputs[0].Error, "analysis down")
	assert.Equal(t, "still ran", state.Content)
}

func TestRun_StepPanicIsIsolated(t *testing.T) {
	deps := Deps{Analysis: &fakeAnalysis{panic: true}}
	o := New(deps, config.DefaultDefaults())

	plan := types.Plan{Steps: []types.PlanStep{{StepName: types.StepAnalyze}, {StepName: types.StepAnalyze}}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(context.Background(), types.ProcessedInput{}, plan, state)
	require.NoError(t, err)
	require.Len(t, state.StepOutputs, 2)
	assert.Contains(t, state.StepOutputs[0].Error, "panic:")
}

func TestRun_UnknownStepDispatchesToPluginRegistry(t *testing.T) {
	reg := pluginregistry.New()
	reg.RegisterWorkflow("custom_workflow", func(cfg *config.Config) (pluginregistry.Workflow, error) {
		return func(ctx context.Context, state *types.MetaState, params map[string]interface{}) (types.MetaStateDelta, error) {
			return types.MetaStateDelta{Content: "from plugin"}, nil
		}, nil
	})
	reg.InitPlugins(nil)

	o := New(Deps{Registry: reg}, config.DefaultDefaults())
	plan := types.Plan{Steps: []types.PlanStep{{StepName: "custom_workflow"}}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(context.Background(), types.ProcessedInput{}, plan, state)
	require.NoError(t, err)
	assert.Equal(t, "from plugin", state.Content)
}

func TestRun_UnknownStepWithNoRegistryRecordsError(t *testing.T) {
	o := New(Deps{}, config.DefaultDefaults())
	plan := types.Plan{Steps: []types.PlanStep{{StepName: "mystery_step"}}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(context.Background(), types.ProcessedInput{}, plan, state)
	require.NoError(t, err)
	require.Len(t, state.StepOutputs, 1)
	assert.Contains(t, state.StepOutputs[0].Error, "unknown step")
}

func TestRun_AlreadyCancelledContextReturnsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(Deps{}, config.DefaultDefaults())
	plan := types.Plan{Steps: []types.PlanStep{{StepName: types.StepAnalyze}}}
	state := types.NewMetaState("s1", "u1")

	err := o.Run(ctx, types.ProcessedInput{}, plan, state)
	assert.Error(t, err)
}
