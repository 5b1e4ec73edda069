// Package narrative implements the Narrative Synthesizer (§4.11): a
// single LLM call that turns a finished MetaState into a short,
// first-person account of what the thinking engine just did, with a
// deterministic bullet-list fallback when the call fails or the model
// produces something out of bounds.
package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// LLMInvoker is the narrow LLM Router surface the synthesizer needs.
type LLMInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error)
}

const (
	// MinLength/MaxLength bound every narrative this package returns,
	// LLM-produced or fallback (§8 invariant 6).
	MinLength = 50
	MaxLength = 1200

	// targetMin/targetMax are the preferred range the prompt asks the
	// model to aim for; MinLength/MaxLength are the hard safety rails.
	targetMin = 200
	targetMax = 600

	// searchContextPreviewLimit bounds how much of SearchContext is fed
	// back into the prompt, so a large web-search result doesn't blow
	// out the narrative call's token budget.
	searchContextPreviewLimit = 800
)

// Synthesizer produces a narrative for a finished MetaState.
type Synthesizer struct {
	router LLMInvoker
	log    *slog.Logger
}

// New builds a Synthesizer over router.
func New(router LLMInvoker) *Synthesizer {
	return &Synthesizer{router: router, log: slog.With("component", "narrative_synthesizer")}
}

// Synthesize returns a first-person narration of state, 50-1200
// characters. On any LLM failure, or an out-of-bounds response, it
// falls back to a deterministic bullet list built from step_outputs —
// never an error.
func (s *Synthesizer) Synthesize(ctx context.Context, state *types.MetaState) string {
	raw, err := s.router.Invoke(ctx, s.buildMessages(state), "narrative", "low")
	if err != nil {
		s.log.Warn("narrative llm call failed, using bullet-list fallback", "error", err)
		return fallback(state)
	}

	text := strings.TrimSpace(raw)
	if length := len([]rune(text)); length < MinLength || length > MaxLength {
		s.log.Warn("narrative response out of bounds, using bullet-list fallback", "length", length)
		return fallback(state)
	}
	return text
}

func (s *Synthesizer) buildMessages(state *types.MetaState) []llm.Message {
	var sb strings.Builder
	sb.WriteString("你是营销 AI 助手的第一人称旁白。用 ")
	sb.WriteString(fmt.Sprintf("%d-%d", targetMin, targetMax))
	sb.WriteString(" 字左右，以“我”的视角简要讲述你刚才做了什么、发现了什么、接下来产出了什么，语气自然、像在向用户汇报思考过程，不要使用项目符号列表。")

	var user strings.Builder
	user.WriteString("用户输入：" + state.UserInput + "\n")
	if preview := previewSearchContext(state.SearchContext); preview != "" {
		user.WriteString("检索到的信息：" + preview + "\n")
	}
	if state.MemoryContext != "" {
		user.WriteString("记忆与偏好：" + state.MemoryContext + "\n")
	}
	if len(state.Analysis) > 0 {
		user.WriteString(fmt.Sprintf("分析维度：%d 项\n", len(state.Analysis)))
	}
	if state.Content != "" {
		user.WriteString("已生成内容长度：" + fmt.Sprint(len([]rune(state.Content))) + " 字\n")
	}
	if len(state.Evaluation) > 0 {
		user.WriteString(fmt.Sprintf("评估维度：%d 项\n", len(state.Evaluation)))
	}

	return []llm.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: user.String()},
	}
}

// previewSearchContext truncates text to searchContextPreviewLimit
// runes, marking truncation so the model doesn't treat the cut as the
// literal end of the search result.
func previewSearchContext(text string) string {
	runes := []rune(text)
	if len(runes) <= searchContextPreviewLimit {
		return text
	}
	return string(runes[:searchContextPreviewLimit]) + "…(已截断)"
}

// fallback builds a deterministic bullet list from step_outputs, one
// line per step that produced a result or an error, bounded to
// MaxLength. A list shorter than MinLength is padded with "。" up to
// the floor.
func fallback(state *types.MetaState) string {
	var sb strings.Builder
	sb.WriteString("我完成了以下步骤：\n")
	for _, out := range state.StepOutputs {
		line := "- " + out.Step
		if out.Error != "" {
			line += "：未能完成（" + out.Error + "）"
		} else if out.Reason != "" {
			line += "：" + out.Reason
		}
		sb.WriteString(line + "\n")
	}
	if state.Content != "" {
		sb.WriteString("最终产出了一份内容，供你参考。")
	}

	text := strings.TrimSpace(sb.String())
	if runes := []rune(text); len(runes) > MaxLength {
		text = string(runes[:MaxLength])
	}
	if len([]rune(text)) < MinLength {
		text += strings.Repeat("。", MinLength-len([]rune(text)))
	}
	return text
}
