// Package plan maps classified intents onto static workflow plans.
package plan

import (
	"errors"
	"fmt"

	"projectpilot/internal/domain"
)

// ErrUnknownIntent marks an intent with no plan mapping. This is a
// configuration error, not a runtime-recoverable one.
var ErrUnknownIntent = errors.New("no plan for intent")

// Selector resolves intents against a fixed plan table.
type Selector struct {
	plans map[domain.Intent]domain.WorkflowPlan
}

// NewSelector builds a selector over the given table. Passing nil uses the
// shipped default table.
func NewSelector(table map[domain.Intent]domain.WorkflowPlan) *Selector {
	if table == nil {
		table = DefaultPlans()
	}
	return &Selector{plans: table}
}

// Select returns the plan for an intent, failing fast on unknown labels.
func (s *Selector) Select(intent domain.Intent) (domain.WorkflowPlan, error) {
	p, ok := s.plans[intent]
	if !ok {
		return domain.WorkflowPlan{}, fmt.Errorf("%w: %s", ErrUnknownIntent, intent)
	}
	return p, nil
}
