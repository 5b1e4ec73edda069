// Package pluginregistry implements the Plugin Registry (§4.6): a
// single-instance registry of composable sub-workflow builders the
// Orchestrator invokes by step name. Distinct from pkg/plugincenter —
// the Center exposes capability calls (get_output), the Registry
// exposes compiled sub-graphs. Grounded on the same RWMutex-guarded,
// defensive-copy registry shape as config.LLMRegistry.
package pluginregistry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/marketing-ai/thinkengine/pkg/config"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// Workflow is a compiled sub-graph the Orchestrator can invoke for an
// unrecognized plan step: given the current MetaState and the step's
// params, it returns an increment to merge.
type Workflow func(ctx context.Context, state *types.MetaState, params map[string]interface{}) (types.MetaStateDelta, error)

// Builder constructs a Workflow once, at init_plugins time, using cfg
// for any configuration the workflow needs.
type Builder func(cfg *config.Config) (Workflow, error)

// Registry holds registered builders and their compiled workflows.
type Registry struct {
	mu        sync.RWMutex
	builders  map[string]Builder
	compiled  map[string]Workflow
	log       *slog.Logger
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
		compiled: make(map[string]Workflow),
		log:      slog.With("component", "plugin_registry"),
	}
}

// RegisterWorkflow records a builder under name. Call before
// InitPlugins; registering after InitPlugins has run will not compile
// the new entry until InitPlugins runs again.
func (r *Registry) RegisterWorkflow(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// InitPlugins invokes every registered builder once and caches the
// compiled workflow. A builder failure logs and is skipped; the
// corresponding workflow is simply absent from GetWorkflow afterward.
func (r *Registry) InitPlugins(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, builder := range r.builders {
		wf, err := builder(cfg)
		if err != nil {
			r.log.Error("workflow builder failed, skipping", "workflow", name, "error", err)
			continue
		}
		r.compiled[name] = wf
	}
}

// GetWorkflow returns the compiled workflow for name, or ok=false if
// it was never registered or failed to compile.
func (r *Registry) GetWorkflow(name string) (Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.compiled[name]
	return wf, ok
}
