// Package plugins holds the concrete plugin registrations loaded into
// a brain's Plugin Center via plugincenter.LoadPluginsForBrain (§4.5).
// Each plugin self-registers its RegisterFunc from an init() function,
// mirroring how the source's register_fn(center, config) convention
// maps to Go's compile-time loader table (plugincenter.RegisterPluginFactory)
// rather than a dynamic import.
//
// Plugins in this package read their port adapters (§6) from a
// package-wide Facade: mock-backed (ports.NewMock*) by default, and
// replaced through SetFacade by cmd/thinkengine, which swaps in the
// Bing search adapter when BING_SEARCH_API_KEY is set. The Plugin
// Center and Orchestrator do not see which adapter is in use.
package plugins

import (
	"github.com/marketing-ai/thinkengine/pkg/ports"
)

// sharedFacade defaults to a mock-backed Facade so the package works
// standalone in tests; cmd/thinkengine calls SetFacade during startup
// to point every plugin at the same Facade instance the orchestrator's
// WebSearch dependency uses, so FailedAdapters reports consistently
// across both call paths.
var sharedFacade = ports.NewMockFacade()

// SetFacade replaces the package-wide Facade every registered plugin
// reads from. Must be called before LoadPluginsForBrain if the caller
// wants plugins to share the engine's real Facade instance.
func SetFacade(f *ports.Facade) {
	sharedFacade = f
}

// stringParam extracts a string field from a plugin call-context map,
// returning fallback when absent or of the wrong type.
func stringParam(callContext map[string]interface{}, key, fallback string) string {
	if v, ok := callContext[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// topic derives the best-effort subject for a plugin call from the
// callContext the Analysis/Generation sub-graphs build
// (§subgraph.buildCallContext): a "topic" param wins, then a "product"
// param, then the raw user input.
func topic(callContext map[string]interface{}) string {
	if v, ok := callContext["topic"].(string); ok && v != "" {
		return v
	}
	if v, ok := callContext["product"].(string); ok && v != "" {
		return v
	}
	if v, ok := callContext["user_input"].(string); ok {
		return v
	}
	return ""
}
