package followup

import (
	"context"
	"errors"
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

func TestAdvise_ParsesActionableStepSuggestion(t *testing.T) {
	a := New(&fakeInvoker{response: "STEP:generate\n要不要我再帮你生成一个小红书版本？"})
	out := a.Advise(context.Background(), types.NewMetaState("s1", "u1"))
	assert.Equal(t, types.StepGenerate, out.StepName)
	assert.Contains(t, out.Message, "小红书")
}

func TestAdvise_NoPrefixIsTerminal(t *testing.T) {
	a := New(&fakeInvoker{response: "这份内容已经很完整了。"})
	out := a.Advise(context.Background(), types.NewMetaState("s1", "u1"))
	assert.Empty(t, out.StepName)
	assert.Equal(t, "这份内容已经很完整了。", out.Message)
}

func TestAdvise_DisallowedStepNameIsTerminal(t *testing.T) {
	a := New(&fakeInvoker{response: "STEP:delete_everything\n不应该被采纳"})
	out := a.Advise(context.Background(), types.NewMetaState("s1", "u1"))
	assert.Empty(t, out.StepName)
}

func TestAdvise_LLMFailureReturnsTerminalSuggestion(t *testing.T) {
	a := New(&fakeInvoker{err: errors.New("down")})
	out := a.Advise(context.Background(), types.NewMetaState("s1", "u1"))
	assert.Equal(t, Suggestion{}, out)
}

func TestAdvise_AnalyzeStepIsAllowed(t *testing.T) {
	a := New(&fakeInvoker{response: "STEP:analyze\n要不要再深入分析一下竞品？"})
	out := a.Advise(context.Background(), types.NewMetaState("s1", "u1"))
	assert.Equal(t, types.StepAnalyze, out.StepName)
}
