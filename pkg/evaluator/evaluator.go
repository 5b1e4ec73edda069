// Package evaluator implements the evaluate built-in step (§4.9): a
// single LLM call that scores generated content against the brief,
// parses a strict JSON response, and derives a rounded overall score
// and a need_revision flag from it.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// LLMInvoker is the narrow LLM Router surface the evaluator needs.
type LLMInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error)
}

// Evaluator scores a finished turn's generated content.
type Evaluator struct {
	router LLMInvoker
	log    *slog.Logger
}

// New builds an Evaluator over router.
func New(router LLMInvoker) *Evaluator {
	return &Evaluator{router: router, log: slog.With("component", "evaluator")}
}

// scoreResponse is the strict JSON shape requested of the LLM.
type scoreResponse struct {
	Scores struct {
		Consistency float64 `json:"consistency"`
		Creativity  float64 `json:"creativity"`
		Safety      float64 `json:"safety"`
		PlatformFit float64 `json:"platform_fit"`
	} `json:"scores"`
	Overall     float64 `json:"overall"`
	Suggestions string  `json:"suggestions"`
}

// neutralScore is the fallback overall score (out of 10) used whenever
// the LLM call or its response fails to parse. The fallback never sets
// need_revision, even though 5 is below the cutoff of 6, so a failed
// evaluation does not block content delivery.
const neutralScore = 5.0

// revisionThreshold is the §4.9 need_revision cutoff: overall_score < 6.
const revisionThreshold = 6

// Evaluate calls the evaluation prompt and returns the evaluate step's
// delta. Any LLM/parse failure degrades to the neutral-5 fallback
// rather than failing the step closed.
func (e *Evaluator) Evaluate(ctx context.Context, state *types.MetaState, params map[string]interface{}) (types.MetaStateDelta, error) {
	raw, err := e.router.Invoke(ctx, e.buildMessages(state), "evaluation", "medium")
	if err != nil {
		e.log.Warn("evaluator llm call failed, using neutral fallback", "error", err)
		return fallbackDelta(), nil
	}

	resp, perr := parseScoreResponse(raw)
	if perr != nil {
		e.log.Warn("evaluator response unparseable, using neutral fallback", "error", perr)
		return fallbackDelta(), nil
	}

	overallScore := int(math.Round(resp.Overall))
	needRevision := overallScore < revisionThreshold

	evaluation := map[string]interface{}{
		"scores": map[string]interface{}{
			"consistency":  resp.Scores.Consistency,
			"creativity":   resp.Scores.Creativity,
			"safety":       resp.Scores.Safety,
			"platform_fit": resp.Scores.PlatformFit,
		},
		"overall":       resp.Overall,
		"overall_score": overallScore,
		"suggestions":   resp.Suggestions,
	}
	return types.MetaStateDelta{Evaluation: evaluation, NeedRevision: &needRevision}, nil
}

func fallbackDelta() types.MetaStateDelta {
	needRevision := false
	evaluation := map[string]interface{}{
		"overall":       neutralScore,
		"overall_score": int(neutralScore),
		"suggestions":   "",
	}
	return types.MetaStateDelta{Evaluation: evaluation, NeedRevision: &needRevision}
}

func parseScoreResponse(raw string) (scoreResponse, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var resp scoreResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return scoreResponse{}, fmt.Errorf("evaluator: parse score JSON: %w", err)
	}
	return resp, nil
}

func (e *Evaluator) buildMessages(state *types.MetaState) []llm.Message {
	system := "你是营销内容评估器。根据已生成的内容与品牌需求评分，输出严格 JSON：" +
		`{"scores":{"consistency":0-10,"creativity":0-10,"safety":0-10,"platform_fit":0-10},"overall":0-10,"suggestions":"..."}`

	var user strings.Builder
	user.WriteString("用户输入：" + state.UserInput + "\n")
	user.WriteString("生成内容：" + state.Content + "\n")
	if len(state.Analysis) > 0 {
		user.WriteString("分析结果已提供，请结合评估。\n")
	}

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}
