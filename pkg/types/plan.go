package types

// Built-in step names recognized directly by the Orchestrator. Any other
// step name is looked up in the Plugin Registry as a compiled sub-graph.
const (
	StepWebSearch  = "web_search"
	StepMemory     = "memory_query"
	StepAnalyze    = "analyze"
	StepGenerate   = "generate"
	StepEvaluate   = "evaluate"
	StepBilibiliHK = "bilibili_hotspot"
)

// ParallelSafeSteps are run concurrently in the orchestrator's execution
// phase; every other step runs sequentially in plan order.
var ParallelSafeSteps = map[string]bool{
	StepWebSearch:  true,
	StepMemory:     true,
	StepBilibiliHK: true,
}

// IsHotspotStep reports whether name addresses a per-platform hotspot
// plugin (bilibili_hotspot and any future platform variant sharing the
// "_hotspot" suffix convention).
func IsHotspotStep(name string) bool {
	return len(name) > len("_hotspot") && name[len(name)-len("_hotspot"):] == "_hotspot"
}

// PlanStep is one entry of a Plan.
type PlanStep struct {
	StepName string                 `json:"step"`
	Params   map[string]interface{} `json:"params"`
	Reason   string                 `json:"reason"`
}

// Plan is the ordered, bounded step sequence produced by the Strategy
// Planner. TaskType classifies the plan for plugin-list derivation.
type Plan struct {
	Steps    []PlanStep `json:"steps"`
	TaskType string     `json:"task_type"`
}

const (
	MinPlanSteps = 2
	MaxPlanSteps = 6
)

// HasStep reports whether the plan contains a step with the given name.
func (p Plan) HasStep(name string) bool {
	for _, s := range p.Steps {
		if s.StepName == name {
			return true
		}
	}
	return false
}

// StripGenerate removes every "generate" step from the plan, returning
// whether any removal happened. Used by the planner's post-filter when
// explicit_content_request is false.
func (p *Plan) StripGenerate() bool {
	removed := false
	kept := p.Steps[:0:0]
	for _, s := range p.Steps {
		if s.StepName == StepGenerate {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	p.Steps = kept
	return removed
}
