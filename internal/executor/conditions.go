package executor

import "projectpilot/internal/domain"

// Aggregate is what a step condition sees: the project state the plan was
// started with plus every output collected so far.
type Aggregate struct {
	State   domain.ProjectState
	Outputs []domain.AgentResponse
}

// Predicate resolves a step condition against the aggregate.
type Predicate func(Aggregate) bool

// predicates is the closed condition set. Plans referencing anything else
// fail at execution with a configuration error.
var predicates = map[string]Predicate{
	domain.ConditionItemsRecorded: func(agg Aggregate) bool {
		for _, out := range agg.Outputs {
			if out.Metadata == nil {
				continue
			}
			if out.Metadata.ShouldRecord || len(out.Metadata.ItemsToRecord) > 0 {
				return true
			}
		}
		return false
	},
	domain.ConditionHasOpenItems: func(agg Aggregate) bool {
		return len(agg.State.Exploring) > 0
	},
	domain.ConditionNoErrors: func(agg Aggregate) bool {
		for _, out := range agg.Outputs {
			if out.Metadata != nil && out.Metadata.Error {
				return false
			}
		}
		return true
	},
}
