package domain

// WorkflowStep is one declared step of a plan. Parallel marks membership in a
// maximal run of adjacent concurrent steps; a sequential step closes any open
// run and waits for all of its members. Steps carry no mutable state.
type WorkflowStep struct {
	Agent     string `json:"agent"`
	Action    string `json:"action"`
	Parallel  bool   `json:"parallel"`
	Condition string `json:"condition,omitempty"`
}

// WorkflowPlan is the ordered step list selected for one classified intent.
// Plans are transient: constructed per request from a static table.
type WorkflowPlan struct {
	Intent Intent         `json:"intent"`
	Steps  []WorkflowStep `json:"steps"`
}

// Step condition predicate names. Resolved by the executor against the
// aggregate of project state and outputs collected so far.
const (
	ConditionItemsRecorded = "items_recorded"
	ConditionHasOpenItems  = "has_open_items"
	ConditionNoErrors      = "no_errors"
)
