// Package policy gates record instructions through an OPA policy before they
// reach storage.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"projectpilot/internal/domain"
)

// Decisions a policy can return.
const (
	DecisionRecord = "record"
	DecisionSkip   = "skip"
)

// Engine is a prepared rego query over record instructions.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the given policy content for evaluation.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.recording.decision"),
		rego.Module("recording.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// recordInput is the policy input document for one instruction.
type recordInput struct {
	Agent      string `json:"agent"`
	Item       string `json:"item"`
	State      string `json:"state"`
	Confidence int    `json:"confidence"`
}

// Evaluate returns the decision for one record instruction. Inputs the policy
// does not match fall back to record.
func (e *Engine) Evaluate(ctx context.Context, agent string, item string, state domain.ItemState, confidence int) (string, error) {
	input := recordInput{
		Agent:      agent,
		Item:       item,
		State:      string(state),
		Confidence: confidence,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionRecord, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionRecord, nil
}

// DefaultPolicy records everything with substance and skips empty or
// near-zero-confidence instructions.
const DefaultPolicy = `
package recording

import rego.v1

default decision := "record"

decision := "skip" if {
	trim_space(input.item) == ""
}

decision := "skip" if {
	input.confidence < 10
}
`
