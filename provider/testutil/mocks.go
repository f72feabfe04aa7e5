package testutil

import (
	"context"
	"errors"
	"sync"

	"slackagent/model"
)

// MockProvider implements model.Provider for testing.
type MockProvider struct {
	// CompleteFunc answers each request. Defaults to a fixed reply.
	CompleteFunc func(ctx context.Context, req model.Request) (*model.Response, error)

	mu           sync.Mutex
	requests     []model.Request
	currentModel string
}

// NewMockProvider creates a mock provider with a default implementation.
func NewMockProvider(modelName string) *MockProvider {
	m := &MockProvider{currentModel: modelName}
	m.CompleteFunc = func(ctx context.Context, req model.Request) (*model.Response, error) {
		return &model.Response{Content: "Mock response"}, nil
	}
	return m
}

// NewScriptedProvider returns responses in order, one per call. Calls beyond
// the script fail.
func NewScriptedProvider(modelName string, responses ...*model.Response) *MockProvider {
	m := &MockProvider{currentModel: modelName}
	var (
		mu   sync.Mutex
		next int
	)
	m.CompleteFunc = func(ctx context.Context, req model.Request) (*model.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(responses) {
			return nil, errors.New("scripted provider exhausted")
		}
		resp := responses[next]
		next++
		return resp, nil
	}
	return m
}

// NewFailingProvider returns a provider whose every call fails with err.
func NewFailingProvider(modelName string, err error) *MockProvider {
	m := &MockProvider{currentModel: modelName}
	m.CompleteFunc = func(ctx context.Context, req model.Request) (*model.Response, error) {
		return nil, err
	}
	return m
}

func (m *MockProvider) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	m.mu.Lock()
	req.Messages = req.Messages.Clone()
	m.requests = append(m.requests, req)
	fn := m.CompleteFunc
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

// Requests returns every request received so far.
func (m *MockProvider) Requests() []model.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Request(nil), m.requests...)
}

// Calls returns the number of Complete calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
