// Package followup implements the Follow-up Advisor: a single LLM call
// that proposes at most one next-step suggestion after a turn
// completes, or a terminal suggestion when nothing further is worth
// offering.
package followup

import (
	"context"
	"log/slog"
	"strings"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// LLMInvoker is the narrow LLM Router surface the advisor needs.
type LLMInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error)
}

// stepPrefix is how the model marks an actionable suggestion; a
// response without it is always terminal.
const stepPrefix = "STEP:"

// allowedSteps is the closed set a suggestion's StepName may name.
// Anything else collapses to a terminal suggestion (empty StepName) —
// the advisor only ever proposes stepping back into generate or
// analyze, never into the open step namespace the plan itself draws
// from.
var allowedSteps = map[string]bool{
	types.StepGenerate: true,
	types.StepAnalyze:  true,
}

// Suggestion is the advisor's output. StepName is "" for a terminal
// suggestion (nothing actionable to propose).
type Suggestion struct {
	Message  string
	StepName string
}

// Advisor proposes follow-ups from a finished MetaState.
type Advisor struct {
	router LLMInvoker
	log    *slog.Logger
}

// New builds an Advisor over router.
func New(router LLMInvoker) *Advisor {
	return &Advisor{router: router, log: slog.With("component", "followup_advisor")}
}

// Advise returns exactly one Suggestion. Any LLM failure degrades to a
// terminal suggestion rather than propagating an error — a follow-up
// recommendation is never critical to the turn succeeding.
func (a *Advisor) Advise(ctx context.Context, state *types.MetaState) Suggestion {
	raw, err := a.router.Invoke(ctx, a.buildMessages(state), "chat_reply", "low")
	if err != nil {
		a.log.Warn("followup llm call failed, returning terminal suggestion", "error", err)
		return Suggestion{}
	}
	return parseSuggestion(raw)
}

func (a *Advisor) buildMessages(state *types.MetaState) []llm.Message {
	system := "你是营销助手的后续建议器。根据本轮已完成的工作，判断是否值得建议用户做下一步。" +
		"如果值得，第一行输出 \"STEP:generate\" 或 \"STEP:analyze\"，第二行起给出一句简短建议；" +
		"如果不值得（已经很完整，或没有明显下一步），直接输出一句简短的总结性话语，不要包含 STEP: 前缀。" +
		"最多只给一个建议。"

	var user strings.Builder
	user.WriteString("用户输入：" + state.UserInput + "\n")
	if state.Content != "" {
		user.WriteString("已生成内容：" + state.Content + "\n")
	}
	if len(state.Evaluation) > 0 {
		user.WriteString("评估结果已产出。\n")
	}
	if state.NeedRevision {
		user.WriteString("评估认为当前内容需要修改。\n")
	}

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}

// parseSuggestion splits a STEP:-prefixed first line from the rest of
// the message. A step name outside allowedSteps, or no prefix at all,
// yields a terminal suggestion carrying the whole response as its
// message.
func parseSuggestion(raw string) Suggestion {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, stepPrefix) {
		return Suggestion{Message: text}
	}

	lines := strings.SplitN(text, "\n", 2)
	step := strings.TrimSpace(strings.TrimPrefix(lines[0], stepPrefix))
	message := ""
	if len(lines) > 1 {
		message = strings.TrimSpace(lines[1])
	}

	if !allowedSteps[step] {
		return Suggestion{Message: text}
	}
	return Suggestion{StepName: step, Message: message}
}
