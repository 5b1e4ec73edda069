package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
	"github.com/stretchr/testify/assert"
)

type fakeInvoker struct {
	response string
	err      error
}

func (f *fakeInvoker) Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error) {
	return f.response, f.err
}

func newState() *types.MetaState {
	state := types.NewMetaState("s1", "u1")
	state.UserInput = "帮我写一篇推广文案"
	state.StepOutputs = []types.StepOutput{
		{Step: "web_search", Reason: "检索市场信息"},
		{Step: "analyze", Reason: "分析品牌与受众"},
		{Step: "generate", Reason: "生成文案"},
	}
	state.Content = "这是生成的文案内容。"
	return state
}

func TestSynthesize_ReturnsLLMResponseWhenInBounds(t *testing.T) {
	resp := strings.Repeat("我", 300)
	s := New(&fakeInvoker{response: resp})
	out := s.Synthesize(context.Background(), newState())
	assert.Equal(t, resp, out)
}

func TestSynthesize_FallsBackOnLLMError(t *testing.T) {
	s := New(&fakeInvoker{err: errors.New("down")})
	out := s.Synthesize(context.Background(), newState())
	assert.Contains(t, out, "web_search")
	length := len([]rune(out))
	assert.GreaterOrEqual(t, length, MinLength)
	assert.LessOrEqual(t, length, MaxLength)
}

func TestSynthesize_FallsBackWhenTooShort(t *testing.T) {
	s := New(&fakeInvoker{response: "太短了"})
	out := s.Synthesize(context.Background(), newState())
	assert.Contains(t, out, "web_search")
}

func TestSynthesize_FallsBackWhenTooLong(t *testing.T) {
	s := New(&fakeInvoker{response: strings.Repeat("字", MaxLength+1)})
	out := s.Synthesize(context.Background(), newState())
	assert.Contains(t, out, "web_search")
}

func TestFallback_NeverExceedsBounds(t *testing.T) {
	state := newState()
	for i := 0; i < 50; i++ {
		state.StepOutputs = append(state.StepOutputs, types.StepOutput{Step: "analyze", Reason: strings.Repeat("补充分析说明文字", 10)})
	}
	out := fallback(state)
	length := len([]rune(out))
	assert.GreaterOrEqual(t, length, MinLength)
	assert.LessOrEqual(t, length, MaxLength)
}

func TestFallback_IncludesErrorReasonForFailedStep(t *testing.T) {
	state := newState()
	state.StepOutputs = []types.StepOutput{{Step: "analyze", Error: "timeout"}}
	out := fallback(state)
	assert.Contains(t, out, "timeout")
}
