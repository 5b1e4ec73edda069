package pluginbus

import (
	"log/slog"

	"github.com/marketing-ai/thinkengine/pkg/masking"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// AuditLogger is a Handler that records every event it sees to the
// structured log, redacting sensitive fields in Data. It never
// produces a follow-up event and never errors, so registering it can
// never perturb the rest of the fan-out.
type AuditLogger struct {
	log *slog.Logger
}

// NewAuditLogger builds an AuditLogger.
func NewAuditLogger() *AuditLogger {
	return &AuditLogger{log: slog.With("component", "plugin_bus_audit")}
}

// CanHandle always returns true: the audit log subscribes to every
// event type.
func (a *AuditLogger) CanHandle(event types.PluginEvent) bool {
	return true
}

// Handle logs event and returns no follow-up.
func (a *AuditLogger) Handle(event types.PluginEvent) (*types.PluginEvent, error) {
	a.log.Info("plugin bus event",
		"event_type", event.EventType,
		"source", event.Source,
		"data", masking.RedactMap(event.Data),
	)
	return nil, nil
}
