package types

import "errors"

// Sentinel errors shared across the engine's components. Callers should
// compare with errors.Is, never with string equality.
var (
	ErrPlanInvalid      = errors.New("plan invalid")
	ErrStepNotFound     = errors.New("step not found")
	ErrPluginNotFound   = errors.New("plugin not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrProviderNotFound = errors.New("llm provider not found")
	ErrRoleNotFound     = errors.New("llm role not found")
	ErrMissingAPIKey    = errors.New("missing api key")
	ErrCacheMiss        = errors.New("cache miss")
)
