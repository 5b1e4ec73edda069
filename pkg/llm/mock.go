package llm

import "context"

// MockClient is a deterministic Client for tests: it never calls out,
// and either returns a fixed response or a fixed error.
type MockClient struct {
	Response string
	Err      error
	Calls    []Options
}

func (m *MockClient) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	m.Calls = append(m.Calls, opts)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockClient) Close() error { return nil }
