package types

import "time"

// Predefined PluginEvent types. User-defined types are allowed alongside
// these; the Plugin Bus does not validate EventType against this list.
const (
	EventDocumentUploaded  = "document_uploaded"
	EventDocumentQuery     = "document_query"
	EventIntentRecognized  = "intent_recognized"
	EventAnalysisCompleted = "analysis_completed"
	EventWebSearch         = "web_search"
	EventImageGeneration   = "image_generation"
	EventUserQuery         = "user_query"
	EventReportGenerated   = "report_generated"
	EventUserConfirm       = "user_confirm"
	EventDiagnosisComplete = "diagnosis_completed"
)

// PluginEvent is published on the Plugin Bus. A handler may write an
// enhancement back under Data["enhanced"] for the publisher to consume.
type PluginEvent struct {
	EventType string                 `json:"event_type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewPluginEvent builds an event stamped with the current time.
func NewPluginEvent(eventType, source string, data map[string]interface{}) PluginEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	return PluginEvent{EventType: eventType, Source: source, Timestamp: time.Now(), Data: data}
}

// PluginKind is the lifecycle family a plugin descriptor belongs to.
type PluginKind string

const (
	PluginRealtime PluginKind = "realtime"
	PluginSchedule PluginKind = "scheduled"
	PluginWorkflow PluginKind = "workflow"
	PluginSkill    PluginKind = "skill"
)

// ScheduleConfig configures a scheduled plugin's refresh cadence.
type ScheduleConfig struct {
	IntervalHours float64
}

// Valid reports whether the schedule config satisfies "kind=scheduled
// implies refresh present and interval_hours > 0" (checked by the
// caller which already knows refresh is present).
func (s ScheduleConfig) Valid() bool {
	return s.IntervalHours > 0
}
