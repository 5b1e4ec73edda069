package intent

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

func TestProcess_EmptyInputDefaultsToCasualChat(t *testing.T) {
	p := New(&fakeInvoker{}, nil)
	out := p.Process(context.Background(), "s1", "u1", "   ", nil)
	assert.Equal(t, types.IntentCasualChat, out.Intent)
	assert.False(t, out.ExplicitContentRequest)
}

func TestProcess_CommandRegexShortCircuitsLLM(t *testing.T) {
	p := New(&fakeInvoker{err: errors.New("should not be called")}, nil)
	out := p.Process(context.Background(), "s1", "u1", "/new_chat", nil)
	assert.Equal(t, types.IntentCommand, out.Intent)
	assert.Equal(t, "new_chat", out.Command)
}

func TestProcess_ShortCasualReplySkipsLLM(t *testing.T) {
	p := New(&fakeInvoker{err: errors.New("should not be called")}, nil)
	out := p.Process(context.Background(), "s1", "u1", "你好", nil)
	assert.Equal(t, types.IntentCasualChat, out.Intent)
}

func TestProcess_RuleClassifierShortCircuitsNonMarketing(t *testing.T) {
	p := New(&fakeInvoker{err: errors.New("should not be called")}, nil)
	out := p.Process(context.Background(), "s1", "u1", "你好呀最近怎么样聊聊天气吧今天真不错", nil)
	assert.Equal(t, types.IntentCasualChat, out.Intent)
	assert.False(t, out.ExplicitContentRequest)
}

func TestProcess_LLMFailureDefaultsToFreeDiscussion(t *testing.T) {
	p := New(&fakeInvoker{err: errors.New("network down")}, nil)
	out := p.Process(context.Background(), "s1", "u1", "帮我推广一下我们的新产品吧", nil)
	assert.Equal(t, types.IntentFreeDiscussion, out.Intent)
	assert.Empty(t, out.StructuredData.BrandName)
}

func TestProcess_ExplicitContentPhraseOverridesLLM(t *testing.T) {
	p := New(&fakeInvoker{response: `{"intent":"free_discussion","explicit_content_request":false}`}, nil)
	out := p.Process(context.Background(), "s1", "u1", "帮我写一篇B站推广文案，产品是降噪耳机", nil)
	assert.True(t, out.ExplicitContentRequest)
}

func TestProcess_StructuredRequestUpgradeFromCoOccurrence(t *testing.T) {
	p := New(&fakeInvoker{response: `{"intent":"free_discussion","explicit_content_request":false}`}, nil)
	out := p.Process(context.Background(), "s1", "u1", "我们的品牌想做产品营销", nil)
	assert.Equal(t, types.IntentStructuredRequest, out.Intent)
}

func TestProcess_FencedJSONResponseParsesCorrectly(t *testing.T) {
	p := New(&fakeInvoker{response: "```json\n{\"intent\":\"structured_request\",\"brand_name\":\"华为\"}\n```"}, nil)
	out := p.Process(context.Background(), "s1", "u1", "我们品牌华为想做个产品推广", nil)
	assert.Equal(t, types.IntentStructuredRequest, out.Intent)
	assert.Equal(t, "华为", out.StructuredData.BrandName)
}

func TestProcess_SelfIntroductionExtractedForCasualChat(t *testing.T) {
	p := New(&fakeInvoker{err: errors.New("should not be called for this non-marketing text")}, nil)
	out := p.Process(context.Background(), "s1", "u1", "我叫小明", nil)
	assert.Equal(t, types.IntentCasualChat, out.Intent)
	assert.Equal(t, "小明", out.StructuredData.BrandName)
}

func TestProcess_MalformedJSONDefaultsToFreeDiscussion(t *testing.T) {
	p := New(&fakeInvoker{response: "not json at all"}, nil)
	out := p.Process(context.Background(), "s1", "u1", "帮我策划一个推广活动方案", nil)
	assert.Equal(t, types.IntentFreeDiscussion, out.Intent)
}
