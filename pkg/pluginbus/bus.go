// Package pluginbus implements the Plugin Bus: an in-process,
// ordered-fan-out pub/sub for lifecycle events (§4.4). Grounded on the
// teacher's pkg/events package structure (registration list, publish
// dispatch), simplified to in-process delivery — no WebSocket/NOTIFY
// transport, since the bus here only propagates internal lifecycle
// events rather than serving client-facing channels.
package pluginbus

import (
	"log/slog"
	"sync"

	"github.com/marketing-ai/thinkengine/pkg/masking"
	"github.com/marketing-ai/thinkengine/pkg/types"
)

// Handler is a registered plugin's event handling pair. CanHandle
// decides whether Handle should run for a given event; Handle may
// return a follow-up event to publish recursively, or nil.
type Handler interface {
	CanHandle(event types.PluginEvent) bool
	Handle(event types.PluginEvent) (*types.PluginEvent, error)
}

// Bus is a process-wide ordered list of registered plugins. Publish
// fans an event out to every registered plugin, in registration order,
// under an exception barrier per plugin so one failing plugin never
// aborts the others.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	maxDepth int
	log      *slog.Logger
}

// New builds a Bus whose recursive publish depth is capped at
// maxDepth (§4.4, default 32).
func New(maxDepth int) *Bus {
	if maxDepth <= 0 {
		maxDepth = 32
	}
	return &Bus{maxDepth: maxDepth, log: slog.With("component", "plugin_bus")}
}

// Register appends h to the dispatch list. Registration order is
// dispatch order.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// snapshot returns a defensive copy of the current handler list so a
// concurrent Register during a Publish never races with dispatch.
func (b *Bus) snapshot() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers))
	copy(out, b.handlers)
	return out
}

// Publish fans event out to every registered plugin in order. A
// plugin's CanHandle/Handle error is caught, logged, and skips that
// plugin only. A returned follow-up event is published recursively;
// recursion stops and logs once depth reaches maxDepth.
func (b *Bus) Publish(event types.PluginEvent) {
	b.publish(event, 0)
}

func (b *Bus) publish(event types.PluginEvent, depth int) {
	if depth >= b.maxDepth {
		b.log.Warn("plugin bus max recursion depth reached, dropping event",
			"event_type", event.EventType, "depth", depth)
		return
	}

	for _, h := range b.snapshot() {
		follow, ok := b.dispatch(h, event)
		if ok && follow != nil {
			b.publish(*follow, depth+1)
		}
	}
}

// dispatch runs CanHandle then Handle for one plugin under a recover
// barrier, so a panicking plugin cannot take down the fan-out.
func (b *Bus) dispatch(h Handler, event types.PluginEvent) (follow *types.PluginEvent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("plugin panicked handling event", "event_type", event.EventType, "data", masking.RedactMap(event.Data), "recover", r)
			follow, ok = nil, false
		}
	}()

	if !h.CanHandle(event) {
		return nil, false
	}
	out, err := h.Handle(event)
	if err != nil {
		b.log.Error("plugin failed handling event", "event_type", event.EventType, "data", masking.RedactMap(event.Data), "error", masking.RedactError(err))
		return nil, false
	}
	return out, true
}
