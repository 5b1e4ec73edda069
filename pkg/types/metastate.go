package types

import "time"

// ThinkingLogEntry is one append-only audit line recorded as the
// orchestrator progresses through a plan.
type ThinkingLogEntry struct {
	Step      string    `json:"step"`
	Thought   string    `json:"thought"`
	Timestamp time.Time `json:"timestamp"`
}

// StepOutput is one append-only per-step result record. Exactly one
// entry is produced per plan step, in the order steps settle.
type StepOutput struct {
	Step   string      `json:"step"`
	Reason string      `json:"reason"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// MetaState is the single mutable record threaded through one
// orchestrator invocation. Every field is always present; a node's
// return value is an increment merged field-wise via Merge, never a
// wholesale replacement. Unknown fields are forbidden — callers extend
// this struct, they do not smuggle data through a side map.
type MetaState struct {
	UserInput string `json:"user_input"`

	Analysis   map[string]interface{} `json:"analysis"`
	Content    string                  `json:"content"`
	Evaluation map[string]interface{} `json:"evaluation"`

	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`

	Plan        Plan `json:"plan"`
	CurrentStep int  `json:"current_step"`

	ThinkingLogs []ThinkingLogEntry `json:"thinking_logs"`
	StepOutputs  []StepOutput       `json:"step_outputs"`

	SearchContext string   `json:"search_context"`
	MemoryContext string   `json:"memory_context"`
	KBContext     string   `json:"kb_context"`
	EffectiveTags []string `json:"effective_tags"`

	AnalysisPlugins   []string `json:"analysis_plugins"`
	GenerationPlugins []string `json:"generation_plugins"`

	NeedRevision bool `json:"need_revision"`

	StageDurations map[string]float64 `json:"stage_durations"`
	AnalyzeCacheHit bool               `json:"analyze_cache_hit"`
}

// NewMetaState builds a MetaState with every map/slice field
// initialized, so a fresh record always satisfies "all fields always
// present".
func NewMetaState(sessionID, userID string) *MetaState {
	return &MetaState{
		SessionID:      sessionID,
		UserID:         userID,
		Analysis:       map[string]interface{}{},
		Evaluation:     map[string]interface{}{},
		ThinkingLogs:   []ThinkingLogEntry{},
		StepOutputs:    []StepOutput{},
		EffectiveTags:  []string{},
		StageDurations: map[string]float64{},
	}
}

// Log appends a thinking-log entry. Append-only by construction: callers
// never truncate or reorder ThinkingLogs.
func (m *MetaState) Log(step, thought string) {
	m.ThinkingLogs = append(m.ThinkingLogs, ThinkingLogEntry{
		Step: step, Thought: thought, Timestamp: time.Now(),
	})
}

// RecordStageDuration stores a phase→seconds measurement. A later call
// for the same phase replaces the earlier value.
func (m *MetaState) RecordStageDuration(phase string, seconds float64) {
	if m.StageDurations == nil {
		m.StageDurations = map[string]float64{}
	}
	m.StageDurations[phase] = seconds
}

// MetaStateDelta is the increment shape a step handler returns. Any
// non-zero field is merged field-wise into the MetaState by Merge;
// zero-valued fields are left untouched.
type MetaStateDelta struct {
	Analysis      map[string]interface{}
	Content       string
	Evaluation    map[string]interface{}
	SearchContext string
	MemoryContext string
	KBContext     string
	EffectiveTags   []string
	NeedRevision    *bool
	AnalyzeCacheHit *bool
}

// Merge applies a delta to the MetaState field-wise. Existing keys in
// m.Analysis/m.Evaluation that the delta does not set are preserved —
// this is the "merge associativity" invariant from §8.8: repeated
// application of the same delta is idempotent since MergeMaps always
// overwrites with the same values.
func (m *MetaState) Merge(d MetaStateDelta) {
	if d.Analysis != nil {
		m.Analysis = MergeMaps(m.Analysis, d.Analysis)
	}
	if d.Content != "" {
		m.Content = d.Content
	}
	if d.Evaluation != nil {
		m.Evaluation = MergeMaps(m.Evaluation, d.Evaluation)
	}
	if d.SearchContext != "" {
		m.SearchContext = d.SearchContext
	}
	if d.MemoryContext != "" {
		m.MemoryContext = d.MemoryContext
	}
	if d.KBContext != "" {
		m.KBContext = d.KBContext
	}
	if len(d.EffectiveTags) > 0 {
		m.EffectiveTags = d.EffectiveTags
	}
	if d.NeedRevision != nil {
		m.NeedRevision = *d.NeedRevision
	}
	if d.AnalyzeCacheHit != nil {
		m.AnalyzeCacheHit = *d.AnalyzeCacheHit
	}
}

// MergeMaps merges src into a copy of dst, field-wise. Keys in dst not
// present in src are preserved (§8 invariant 8: merge associativity of
// analysis). A nil dst is treated as empty.
func MergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}
