// Package plugincenter implements the per-brain Plugin Center (§4.5):
// a registry of realtime/scheduled/workflow/skill plugin descriptors,
// an in-process periodic scheduler for refreshing cached plugin
// outputs, and a static loader table standing in for the source's
// dynamic plugin import mechanism. Grounded on the teacher's registry
// pattern (ChainRegistry/LLMProviderRegistry: RWMutex-guarded map with
// defensive copies).
package plugincenter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/marketing-ai/thinkengine/pkg/types"
)

// GetOutputFunc produces a plugin's contribution for one call. context
// carries whatever the caller (usually the orchestrator or a
// sub-graph) chooses to pass — MetaState fields, request params, etc.
type GetOutputFunc func(ctx context.Context, name string, callContext map[string]interface{}) (map[string]interface{}, error)

// RefreshFunc refreshes a scheduled plugin's cached output. It is
// responsible for persisting whatever it produces to the Smart Cache
// itself; the scheduler owns no state of its own.
type RefreshFunc func(ctx context.Context) error

// Descriptor is one registered plugin (§3 "Plugin descriptor").
type Descriptor struct {
	Name           string
	Kind           types.PluginKind
	GetOutput      GetOutputFunc
	Refresh        RefreshFunc // only required when Kind == PluginSchedule
	ScheduleConfig types.ScheduleConfig
}

// valid checks the "kind=scheduled ⇒ refresh present and
// interval_hours > 0" invariant.
func (d Descriptor) valid() error {
	if d.Kind == types.PluginSchedule {
		if d.Refresh == nil {
			return fmt.Errorf("plugin %q: kind=scheduled requires a refresh function", d.Name)
		}
		if !d.ScheduleConfig.Valid() {
			return fmt.Errorf("plugin %q: kind=scheduled requires interval_hours > 0", d.Name)
		}
	}
	return nil
}

// Center owns one brain's plugin registry (analysis, generation,
// strategy, ...). Plugin descriptors are exclusively owned by their
// Center.
type Center struct {
	brain string

	mu      sync.RWMutex
	plugins map[string]Descriptor

	scheduler *scheduler
	log       *slog.Logger
}

// New builds an empty Center scoped to brain.
func New(brain string) *Center {
	c := &Center{
		brain:   brain,
		plugins: make(map[string]Descriptor),
		log:     slog.With("component", "plugin_center", "brain", brain),
	}
	c.scheduler = newScheduler(c)
	return c
}

// RegisterPlugin records a plugin descriptor. Returns an error if the
// descriptor violates the scheduled-plugin invariant; the caller
// (typically the loader) logs and skips on failure, per §4.5.
func (c *Center) RegisterPlugin(d Descriptor) error {
	if err := d.valid(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plugins[d.Name] = d
	return nil
}

// HasPlugin reports whether name is registered.
func (c *Center) HasPlugin(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.plugins[name]
	return ok
}

// ListPlugins returns the registered plugin names.
func (c *Center) ListPlugins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		out = append(out, name)
	}
	return out
}

// descriptor returns a copy of the named descriptor, for internal use
// by the scheduler and GetOutput.
func (c *Center) descriptor(name string) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.plugins[name]
	return d, ok
}

// GetOutput invokes the named plugin's GetOutput. A missing plugin, or
// any error/panic from the plugin, returns an empty map and is logged
// — never propagated to the caller (§4.5).
func (c *Center) GetOutput(ctx context.Context, name string, callContext map[string]interface{}) map[string]interface{} {
	d, ok := c.descriptor(name)
	if !ok {
		return map[string]interface{}{}
	}
	return c.safeInvoke(ctx, d, callContext)
}

func (c *Center) safeInvoke(ctx context.Context, d Descriptor, callContext map[string]interface{}) (out map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("plugin panicked", "plugin", d.Name, "recover", r)
			out = map[string]interface{}{}
		}
	}()
	result, err := d.GetOutput(ctx, d.Name, callContext)
	if err != nil {
		c.log.Error("plugin get_output failed", "plugin", d.Name, "error", err)
		return map[string]interface{}{}
	}
	if result == nil {
		return map[string]interface{}{}
	}
	return result
}

// StartScheduledTasks starts the in-process periodic scheduler for
// every registered plugin of kind scheduled.
func (c *Center) StartScheduledTasks() {
	c.scheduler.start()
}

// RunInitialRefresh runs every scheduled plugin's refresh once,
// synchronously, to prime caches after startup without blocking the
// process lifespan on the first periodic tick.
func (c *Center) RunInitialRefresh(ctx context.Context) {
	for _, name := range c.ListPlugins() {
		d, ok := c.descriptor(name)
		if !ok || d.Kind != types.PluginSchedule {
			continue
		}
		c.runRefresh(ctx, d)
	}
}

// StopScheduledTasks stops the scheduler. Idempotent.
func (c *Center) StopScheduledTasks() {
	c.scheduler.stop()
}

func (c *Center) runRefresh(ctx context.Context, d Descriptor) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("scheduled plugin refresh panicked", "plugin", d.Name, "recover", r)
		}
	}()
	if err := d.Refresh(ctx); err != nil {
		c.log.Error("scheduled plugin refresh failed", "plugin", d.Name, "error", err)
	}
}

// MergeOutput implements the §4.5 result-merging convention: a result
// shaped {"analysis": {...}} merges field-wise into analysis, anything
// else is stored under the plugin's name. Existing keys in analysis
// that the plugin doesn't set are preserved.
func MergeOutput(analysis map[string]interface{}, pluginName string, result map[string]interface{}) {
	if nested, ok := result["analysis"].(map[string]interface{}); ok {
		for k, v := range nested {
			analysis[k] = v
		}
		return
	}
	analysis[pluginName] = result
}
