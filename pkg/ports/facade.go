package ports

import (
	"context"
	"sync"
)

// Facade is the Capabilities Facade (§2, §10.1 supplemented feature): a
// single composite accessor the engine wires once at startup, bundling
// every port behind one struct so callers (the orchestrator's
// WebSearch/hotspot dependencies, generation/analysis plugins) don't
// each need their own constructor wiring. Grounded on the teacher's
// mcp.Client, which bundles multiple server sessions behind one struct
// and tracks per-server health in failedAdapters the same way.
type Facade struct {
	Search             Search
	Knowledge          Knowledge
	Multimodal         Multimodal
	Prediction         Prediction
	VideoDecomposition VideoDecomposition
	SampleLibrary      SampleLibrary
	PlatformRules      PlatformRules
	Methodology        Methodology
	CaseTemplate       CaseTemplate
	DataLoop           DataLoop

	mu       sync.RWMutex
	failed   map[string]string // adapter name → last error message
}

// NewMockFacade builds a Facade with every port backed by its
// deterministic mock adapter — the default for tests and for a
// deployment without external vendor credentials configured.
func NewMockFacade() *Facade {
	return &Facade{
		Search:             NewMockSearch(),
		Knowledge:          NewMockKnowledge(),
		Multimodal:         NewMockMultimodal(),
		Prediction:         NewMockPrediction(),
		VideoDecomposition: NewMockVideoDecomposition(),
		SampleLibrary:      NewMockSampleLibrary(),
		PlatformRules:      NewMockPlatformRules(),
		Methodology:        NewMockMethodology(),
		CaseTemplate:       NewMockCaseTemplate(),
		DataLoop:           NewMockDataLoop(),
		failed:             map[string]string{},
	}
}

// MarkFailed records adapter as degraded with err's message. Called by
// the narrow wrapper types below (e.g. WebSearchAdapter) so a
// timeout/error surfaces in FailedAdapters without each call site
// needing its own bookkeeping.
func (f *Facade) MarkFailed(adapter string, err error) {
	if err == nil {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.failed, adapter)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[adapter] = err.Error()
}

// FailedAdapters reports which port adapters are currently degraded,
// for the engine's /health endpoint (§10 supplemented feature 1).
func (f *Facade) FailedAdapters() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.failed))
	for k, v := range f.failed {
		out[k] = v
	}
	return out
}

// WebSearchAdapter satisfies orchestrator.WebSearch by composing the
// Search port's Search + FormatResultsAsContext calls, so the
// orchestrator depends only on its own narrow interface and never on
// this package.
type WebSearchAdapter struct {
	facade *Facade
}

// NewWebSearchAdapter wraps facade's Search port for the orchestrator.
func NewWebSearchAdapter(facade *Facade) *WebSearchAdapter {
	return &WebSearchAdapter{facade: facade}
}

// Search implements orchestrator.WebSearch.
func (a *WebSearchAdapter) Search(ctx context.Context, query string, params map[string]interface{}) (string, error) {
	numResults := 5
	if v, ok := params["num_results"].(int); ok && v > 0 {
		numResults = v
	}
	searchType, _ := params["search_type"].(string)

	results, err := a.facade.Search.Search(ctx, query, numResults, searchType)
	a.facade.MarkFailed("search", err)
	if err != nil {
		return "", err
	}
	return a.facade.Search.FormatResultsAsContext(results), nil
}
