package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient implements the Client interface for testing. Responses are
// consumed in order; when the script runs out the last entry repeats.
type MockClient struct {
	mu        sync.Mutex
	model     string
	responses []string
	err       error
	requests  []CompletionRequest
}

// NewMockClient builds a mock that replays the given responses.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{model: "mock-model", responses: responses}
}

// NewFailingMockClient builds a mock whose calls always fail with err.
func NewFailingMockClient(err error) *MockClient {
	return &MockClient{model: "mock-model", err: err}
}

func (m *MockClient) Model() string {
	return m.model
}

// Complete returns the next scripted response.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock has no scripted responses")
	}

	content := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}

	return &CompletionResponse{
		Content:    content,
		StopReason: "stop",
		Usage:      TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// Requests returns a copy of every request the mock has seen.
func (m *MockClient) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
