package subgraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketing-ai/thinkengine/pkg/cache"
	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCenter struct {
	outputs map[string]map[string]interface{}
}

func (f *fakeCenter) GetOutput(ctx context.Context, name string, callContext map[string]interface{}) map[string]interface{} {
	if out, ok := f.outputs[name]; ok {
		return out
	}
	return map[string]interface{}{}
}

func TestAnalysis_Run_MergesMultiplePluginOutputs(t *testing.T) {
	center := &fakeCenter{outputs: map[string]map[string]interface{}{
		"brand_profiler":  {"analysis": map[string]interface{}{"tone": "专业"}},
		"hotspot_scanner": {"topics": []string{"t1", "t2"}},
	}}
	a := NewAnalysis(center, nil, nil, 0, time.Second)
	state := types.NewMetaState("s1", "u1")

	delta, err := a.Run(context.Background(), state, []string{"brand_profiler", "hotspot_scanner"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "专业", delta.Analysis["tone"])
	assert.NotNil(t, delta.Analysis["hotspot_scanner"])
}

func TestAnalysis_Run_EmptyPluginListReturnsEmptyDelta(t *testing.T) {
	a := NewAnalysis(&fakeCenter{}, nil, nil, 0, time.Second)
	delta, err := a.Run(context.Background(), types.NewMetaState("s1", "u1"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, delta.Analysis)
}

func TestAnalysis_Run_FullModeMergesLLMFieldsWithoutOverwritingPlugins(t *testing.T) {
	center := &fakeCenter{outputs: map[string]map[string]interface{}{
		"brand_profiler": {"angle": "来自插件的角度"},
	}}
	invoker := &fakeInvoker{response: `{"semantic_score":0.8,"angle":"llm角度","reason":"因为匹配品牌调性"}`}
	a := NewAnalysis(center, invoker, nil, 0, time.Second)
	state := types.NewMetaState("s1", "u1")
	state.Plan = types.Plan{Steps: []types.PlanStep{{StepName: types.StepGenerate}}}

	delta, err := a.Run(context.Background(), state, []string{"brand_profiler"}, nil)
	require.NoError(t, err)
	// Plugin already set "angle" — the LLM's angle must not clobber it.
	assert.Equal(t, "来自插件的角度", delta.Analysis["angle"])
	assert.Equal(t, 0.8, delta.Analysis["semantic_score"])
	assert.Equal(t, "因为匹配品牌调性", delta.Analysis["reason"])
	require.NotNil(t, delta.AnalyzeCacheHit)
	assert.False(t, *delta.AnalyzeCacheHit)
}

func TestAnalysis_Run_StrategyModeProducesRecommendedPlanAngle(t *testing.T) {
	invoker := &fakeInvoker{response: "建议的执行方案：先发布预热内容，再联动达人。"}
	a := NewAnalysis(&fakeCenter{}, invoker, nil, 0, time.Second)
	state := types.NewMetaState("s1", "u1")
	state.Plan = types.Plan{Steps: []types.PlanStep{{StepName: "analyze"}}} // no generate step

	delta, err := a.Run(context.Background(), state, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "建议的执行方案：先发布预热内容，再联动达人。", delta.Analysis["angle"])
	assert.Nil(t, delta.Analysis["semantic_score"])
}

func TestAnalysis_Run_CachedSecondCallSignalsHit(t *testing.T) {
	invoker := &fakeInvoker{response: `{"semantic_score":0.5,"angle":"角度","reason":"理由"}`}
	smartCache := cache.New(cache.NewMapStore())
	state := types.NewMetaState("s1", "u1")
	state.Plan = types.Plan{Steps: []types.PlanStep{{StepName: types.StepGenerate}}}
	state.EffectiveTags = []string{"b", "a"}

	a := NewAnalysis(&fakeCenter{}, invoker, smartCache, time.Minute, time.Second)
	first, err := a.Run(context.Background(), state, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, first.AnalyzeCacheHit)
	assert.False(t, *first.AnalyzeCacheHit)

	// Tag order differs but the fingerprint is built from sorted tags, so
	// this must still land on the same cache entry.
	state.EffectiveTags = []string{"a", "b"}
	second, err := a.Run(context.Background(), state, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, second.AnalyzeCacheHit)
	assert.True(t, *second.AnalyzeCacheHit)
	assert.Equal(t, first.Analysis["angle"], second.Analysis["angle"])
}

func TestAnalysis_Run_LLMFailureKeepsPluginOnlyAnalysis(t *testing.T) {
	center := &fakeCenter{outputs: map[string]map[string]interface{}{
		"brand_profiler": {"tone": "专业"},
	}}
	a := NewAnalysis(center, &fakeInvoker{err: errors.New("down")}, nil, 0, time.Second)
	state := types.NewMetaState("s1", "u1")
	state.Plan = types.Plan{Steps: []types.PlanStep{{StepName: types.StepGenerate}}}

	delta, err := a.Run(context.Background(), state, []string{"brand_profiler"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "专业", delta.Analysis["tone"])
	assert.Nil(t, delta.Analysis["angle"])
}

type fakeInvoker struct {
	response string
	err      error
}

func (f *fakeInvoker) Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error) {
	return f.response, f.err
}

func TestGeneration_Run_ReturnsTrimmedContent(t *testing.T) {
	g := NewGeneration(&fakeInvoker{response: "```markdown\n最终文案内容\n```"}, nil)
	delta, err := g.Run(context.Background(), types.NewMetaState("s1", "u1"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "最终文案内容", delta.Content)
}

func TestGeneration_Run_LLMFailurePropagatesError(t *testing.T) {
	g := NewGeneration(&fakeInvoker{err: errors.New("down")}, nil)
	_, err := g.Run(context.Background(), types.NewMetaState("s1", "u1"), nil, nil)
	assert.Error(t, err)
}

func TestGeneration_Run_EmptyContentIsAnError(t *testing.T) {
	g := NewGeneration(&fakeInvoker{response: "   "}, nil)
	_, err := g.Run(context.Background(), types.NewMetaState("s1", "u1"), nil, nil)
	assert.Error(t, err)
}

func TestGeneration_Run_GathersAuxPluginOutput(t *testing.T) {
	center := &fakeCenter{outputs: map[string]map[string]interface{}{
		"style_pack": {"tone": "活泼"},
	}}
	g := NewGeneration(&fakeInvoker{response: "内容"}, center)
	delta, err := g.Run(context.Background(), types.NewMetaState("s1", "u1"), []string{"style_pack"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "内容", delta.Content)
}
