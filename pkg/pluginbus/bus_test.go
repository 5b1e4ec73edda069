package pluginbus

import (
	"errors"
	"sync"
	"testing"

	"github.com/marketing-ai/thinkengine/pkg/types"
	"github.com/stretchr/testify/assert"
)

type fakeHandler struct {
	name       string
	handles    string
	fn         func(event types.PluginEvent) (*types.PluginEvent, error)
	calls      []types.PluginEvent
	mu         sync.Mutex
}

func (f *fakeHandler) CanHandle(event types.PluginEvent) bool {
	return event.EventType == f.handles
}

func (f *fakeHandler) Handle(event types.PluginEvent) (*types.PluginEvent, error) {
	f.mu.Lock()
	f.calls = append(f.calls, event)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(event)
	}
	return nil, nil
}

func TestBus_Publish_DispatchesInRegistrationOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(name string) *fakeHandler {
		return &fakeHandler{name: name, handles: types.EventDocumentUploaded, fn: func(e types.PluginEvent) (*types.PluginEvent, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil, nil
		}}
	}

	bus := New(32)
	bus.Register(record("a"))
	bus.Register(record("b"))
	bus.Register(record("c"))

	bus.Publish(types.NewPluginEvent(types.EventDocumentUploaded, "test", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBus_Publish_IsolatesPluginErrors(t *testing.T) {
	failing := &fakeHandler{handles: types.EventUserQuery, fn: func(e types.PluginEvent) (*types.PluginEvent, error) {
		return nil, errors.New("boom")
	}}
	succeeding := &fakeHandler{handles: types.EventUserQuery}

	bus := New(32)
	bus.Register(failing)
	bus.Register(succeeding)

	bus.Publish(types.NewPluginEvent(types.EventUserQuery, "test", nil))
	assert.Len(t, succeeding.calls, 1)
}

func TestBus_Publish_IsolatesPluginPanics(t *testing.T) {
	panicking := &fakeHandler{handles: types.EventUserQuery, fn: func(e types.PluginEvent) (*types.PluginEvent, error) {
		panic("nope")
	}}
	succeeding := &fakeHandler{handles: types.EventUserQuery}

	bus := New(32)
	bus.Register(panicking)
	bus.Register(succeeding)

	bus.Publish(types.NewPluginEvent(types.EventUserQuery, "test", nil))
	assert.Len(t, succeeding.calls, 1)
}

func TestBus_Publish_RecursesAndStopsAtMaxDepth(t *testing.T) {
	var depthReached int
	chain := &fakeHandler{handles: types.EventAnalysisCompleted, fn: func(e types.PluginEvent) (*types.PluginEvent, error) {
		depthReached++
		next := types.NewPluginEvent(types.EventAnalysisCompleted, "chain", nil)
		return &next, nil
	}}

	bus := New(3)
	bus.Register(chain)
	bus.Publish(types.NewPluginEvent(types.EventAnalysisCompleted, "test", nil))

	assert.Equal(t, 3, depthReached)
}

func TestBus_Publish_SkipsNonMatchingHandlers(t *testing.T) {
	other := &fakeHandler{handles: types.EventDocumentQuery}
	bus := New(32)
	bus.Register(other)

	bus.Publish(types.NewPluginEvent(types.EventUserQuery, "test", nil))
	assert.Empty(t, other.calls)
}
