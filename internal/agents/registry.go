// Package agents holds the closed registry of agent handlers and the
// invocation boundary the executor calls through.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"projectpilot/internal/domain"
)

// ErrUnknownAgent is returned for names outside the closed agent set.
var ErrUnknownAgent = errors.New("unknown agent")

// Invocation carries one agent call's inputs. History is already pruned for
// the target agent by the caller.
type Invocation struct {
	Agent   string
	Action  string
	Message string
	History []domain.ConversationMessage
	State   domain.ProjectState
	Extra   []domain.AgentResponse
}

// Invoker invokes a named agent. Backed by the registry in production and by
// test doubles elsewhere.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation) (domain.AgentResponse, error)
}

// Handler runs one agent kind.
type Handler interface {
	Name() string
	Run(ctx context.Context, inv Invocation) (domain.AgentResponse, error)
}

// Registry stores handlers keyed by agent name. It is constructed explicitly
// and passed in; there is no process-wide instance. Registration happens at
// startup and rejects names outside the closed set.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// Ensure Registry implements Invoker.
var _ Invoker = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Unknown names and duplicates are configuration
// errors.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("handler is required")
	}
	name := h.Name()
	if !knownAgent(name) {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler already registered for %s", name)
	}
	r.handlers[name] = h
	return nil
}

// MustRegister adds a handler or panics. Used for the startup wiring where a
// bad registration is a programming error.
func (r *Registry) MustRegister(h Handler) {
	if err := r.Register(h); err != nil {
		panic(err)
	}
}

// Invoke resolves the named handler and runs it.
func (r *Registry) Invoke(ctx context.Context, inv Invocation) (domain.AgentResponse, error) {
	r.mu.RLock()
	h := r.handlers[inv.Agent]
	r.mu.RUnlock()
	if h == nil {
		return domain.AgentResponse{}, fmt.Errorf("%w: %s", ErrUnknownAgent, inv.Agent)
	}
	return h.Run(ctx, inv)
}

// Names returns the registered agent names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

func knownAgent(name string) bool {
	for _, known := range domain.KnownAgents {
		if known == name {
			return true
		}
	}
	return false
}
