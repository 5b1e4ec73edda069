// Package planner implements the Strategy Planner (§4.8): it turns a
// ProcessedInput into a bounded, typed Plan via an LLM call, with a
// deterministic parse-failure default and a post-filter that enforces
// the "generate only when explicit" invariant.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/marketing-ai/thinkengine/pkg/llm"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// planSchemaDoc pins down the strict JSON shape requested of the LLM
// (see buildMessages) so a plan missing "steps" or carrying the wrong
// field types is rejected before it ever reaches defaultPlan's
// fallback path.
var planSchemaDoc = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"steps"},
	"properties": map[string]interface{}{
		"task_type": map[string]interface{}{"type": "string"},
		"steps": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"step"},
				"properties": map[string]interface{}{
					"step":   map[string]interface{}{"type": "string", "minLength": 1},
					"reason": map[string]interface{}{"type": "string"},
					"params": map[string]interface{}{"type": "object"},
				},
			},
		},
	},
}

var planSchema = compilePlanSchema()

func compilePlanSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("plan.json", planSchemaDoc); err != nil {
		panic(fmt.Sprintf("planner: invalid plan schema resource: %v", err))
	}
	schema, err := c.Compile("plan.json")
	if err != nil {
		panic(fmt.Sprintf("planner: plan schema does not compile: %v", err))
	}
	return schema
}

// LLMInvoker is the narrow surface the planner needs from the LLM
// Router.
type LLMInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, taskType, complexity string) (string, error)
}

// Planner produces plans from ProcessedInput.
type Planner struct {
	router LLMInvoker
	log    *slog.Logger
}

// New builds a Planner over router.
func New(router LLMInvoker) *Planner {
	return &Planner{router: router, log: slog.With("component", "strategy_planner")}
}

// planResponse is the strict JSON shape requested of the LLM.
type planResponse struct {
	Steps []struct {
		Step   string                 `json:"step"`
		Params map[string]interface{} `json:"params"`
		Reason string                 `json:"reason"`
	} `json:"steps"`
	TaskType string `json:"task_type"`
}

// Plan builds a Plan for input, calling the LLM (strategy role, since
// planning is the higher-complexity task the router reserves for it).
// On any LLM/parse failure it falls back to the documented defaults
// and applies the explicit_content_request post-filter regardless of
// how the plan was produced.
func (p *Planner) Plan(ctx context.Context, input types.ProcessedInput, conversationContext string) types.Plan {
	raw, err := p.router.Invoke(ctx, p.buildMessages(input, conversationContext), "planning", "high")
	var plan types.Plan
	if err != nil {
		p.log.Warn("llm planning call failed, using default plan", "error", err)
		plan = defaultPlan(input.ExplicitContentRequest)
	} else if parsed, perr := parsePlan(raw); perr != nil {
		p.log.Warn("llm plan response unparseable, using default plan", "error", perr)
		plan = defaultPlan(input.ExplicitContentRequest)
	} else {
		plan = parsed
	}

	if !input.ExplicitContentRequest {
		if removed := plan.StripGenerate(); removed {
			p.log.Info("post-filter removed generate step: explicit_content_request is false")
		}
	}

	plan = clampPlanSize(plan)
	return plan
}

// defaultPlan is the §4.8 parse-failure fallback.
func defaultPlan(explicitContentRequest bool) types.Plan {
	if explicitContentRequest {
		return types.Plan{
			TaskType: "campaign_or_copy",
			Steps: []types.PlanStep{
				{StepName: types.StepAnalyze, Params: map[string]interface{}{}, Reason: "分析品牌与需求"},
				{StepName: types.StepGenerate, Params: map[string]interface{}{}, Reason: "生成内容"},
				{StepName: types.StepEvaluate, Params: map[string]interface{}{}, Reason: "评估内容质量"},
			},
		}
	}
	return types.Plan{
		TaskType: "default",
		Steps: []types.PlanStep{
			{StepName: types.StepWebSearch, Params: map[string]interface{}{}, Reason: "检索相关市场信息"},
			{StepName: types.StepAnalyze, Params: map[string]interface{}{}, Reason: "分析品牌与市场信息"},
		},
	}
}

func parsePlan(raw string) (types.Plan, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var doc interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return types.Plan{}, fmt.Errorf("planner: parse plan JSON: %w", err)
	}
	if err := planSchema.Validate(doc); err != nil {
		return types.Plan{}, fmt.Errorf("planner: plan JSON failed schema validation: %w", err)
	}

	var resp planResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return types.Plan{}, fmt.Errorf("planner: parse plan JSON: %w", err)
	}
	if len(resp.Steps) == 0 {
		return types.Plan{}, fmt.Errorf("planner: plan has no steps")
	}

	steps := make([]types.PlanStep, 0, len(resp.Steps))
	for _, s := range resp.Steps {
		params := s.Params
		if params == nil {
			params = map[string]interface{}{}
		}
		steps = append(steps, types.PlanStep{StepName: s.Step, Params: params, Reason: s.Reason})
	}
	return types.Plan{Steps: steps, TaskType: resp.TaskType}, nil
}

// clampPlanSize enforces the 2–6 step bound. A too-short plan is
// padded with analyze (keeping at least the minimum useful step); a
// too-long plan is truncated — both are defensive measures against a
// misbehaving model, not part of the documented parse-failure path.
func clampPlanSize(plan types.Plan) types.Plan {
	if len(plan.Steps) > types.MaxPlanSteps {
		plan.Steps = plan.Steps[:types.MaxPlanSteps]
	}
	if len(plan.Steps) < types.MinPlanSteps {
		for len(plan.Steps) < types.MinPlanSteps {
			plan.Steps = append(plan.Steps, types.PlanStep{
				StepName: types.StepAnalyze, Params: map[string]interface{}{}, Reason: "补充分析步骤",
			})
		}
	}
	return plan
}

func (p *Planner) buildMessages(input types.ProcessedInput, conversationContext string) []llm.Message {
	var sb strings.Builder
	sb.WriteString("你是营销策略规划器。根据用户意图生成 2-6 个步骤的执行计划，输出严格 JSON：")
	sb.WriteString(`{"steps":[{"step":"...","params":{},"reason":"..."}],"task_type":"..."}`)
	sb.WriteString("。可用步骤包括 web_search, memory_query, bilibili_hotspot(等平台热点), analyze, generate, evaluate，以及已注册的插件名。")
	sb.WriteString(fmt.Sprintf("仅当 explicit_content_request=%v 时才包含 generate 步骤。", input.ExplicitContentRequest))
	if conversationContext != "" {
		sb.WriteString("\n对话上下文：\n" + conversationContext)
	}

	userPayload, _ := json.Marshal(input)
	return []llm.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: string(userPayload)},
	}
}
