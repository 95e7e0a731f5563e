package agents

import (
	"context"
	"fmt"
	"sync"

	"projectpilot/internal/domain"
)

// MockInvoker is a programmable Invoker for tests.
type MockInvoker struct {
	mu       sync.Mutex
	handlers map[string]func(ctx context.Context, inv Invocation) (domain.AgentResponse, error)
	calls    []Invocation
}

// Ensure MockInvoker implements Invoker.
var _ Invoker = (*MockInvoker)(nil)

// NewMockInvoker creates an empty mock.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		handlers: make(map[string]func(ctx context.Context, inv Invocation) (domain.AgentResponse, error)),
	}
}

// On installs a handler for an agent name.
func (m *MockInvoker) On(agent string, fn func(ctx context.Context, inv Invocation) (domain.AgentResponse, error)) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[agent] = fn
	return m
}

// Reply installs a fixed response for an agent name.
func (m *MockInvoker) Reply(agent string, resp domain.AgentResponse) *MockInvoker {
	return m.On(agent, func(context.Context, Invocation) (domain.AgentResponse, error) {
		return resp, nil
	})
}

// Invoke records the call and dispatches to the installed handler.
func (m *MockInvoker) Invoke(ctx context.Context, inv Invocation) (domain.AgentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, inv)
	fn := m.handlers[inv.Agent]
	m.mu.Unlock()
	if fn == nil {
		return domain.AgentResponse{}, fmt.Errorf("%w: %s", ErrUnknownAgent, inv.Agent)
	}
	return fn(ctx, inv)
}

// Calls returns a copy of every invocation seen so far.
func (m *MockInvoker) Calls() []Invocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Invocation, len(m.calls))
	copy(out, m.calls)
	return out
}
