// Package executor walks a workflow plan, invoking each step's agent with its
// pruned context. Adjacent parallel steps run concurrently behind a barrier;
// outputs are always returned in step-declaration order.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"projectpilot/internal/agents"
	"projectpilot/internal/domain"
	"projectpilot/internal/pruner"
)

// ErrUnknownCondition marks a step condition outside the closed predicate
// set. A configuration error, surfaced as a plan failure.
var ErrUnknownCondition = errors.New("unknown step condition")

// Executor runs workflow plans against an injected agent invoker.
type Executor struct {
	invoker     agents.Invoker
	pruner      *pruner.Pruner
	stepTimeout time.Duration
	log         zerolog.Logger
}

// New builds an Executor. A zero stepTimeout disables per-step deadlines.
func New(invoker agents.Invoker, p *pruner.Pruner, stepTimeout time.Duration, log zerolog.Logger) *Executor {
	return &Executor{
		invoker:     invoker,
		pruner:      p,
		stepTimeout: stepTimeout,
		log:         log,
	}
}

// Execute walks the plan in declared order. A failed parallel member becomes
// an error-tagged response without aborting its batch; a step timeout
// degrades to an error-tagged response; any other sequential failure aborts
// the remaining steps but the partial output list is still returned.
func (e *Executor) Execute(ctx context.Context, plan domain.WorkflowPlan, message string, state domain.ProjectState, history []domain.ConversationMessage, extra []domain.AgentResponse) ([]domain.AgentResponse, error) {
	outputs := make([]domain.AgentResponse, 0, len(plan.Steps))
	outputs = append(outputs, extra...)
	// extra seeds condition evaluation but is not part of this run's output
	skip := len(extra)

	steps := plan.Steps
	for i := 0; i < len(steps); {
		if steps[i].Parallel {
			// Maximal run of adjacent parallel steps.
			j := i
			for j < len(steps) && steps[j].Parallel {
				j++
			}
			batch, err := e.runBatch(ctx, steps[i:j], message, state, history, outputs)
			if err != nil {
				return outputs[skip:], err
			}
			outputs = append(outputs, batch...)
			i = j
			continue
		}

		out, run, err := e.runSequential(ctx, steps[i], message, state, history, outputs)
		if err != nil {
			return outputs[skip:], err
		}
		if run {
			outputs = append(outputs, out)
		}
		i++
	}

	return outputs[skip:], nil
}

// ExecuteStep runs a single step outside a plan. Used by the coordinator for
// the foreground conversation step.
func (e *Executor) ExecuteStep(ctx context.Context, step domain.WorkflowStep, message string, state domain.ProjectState, history []domain.ConversationMessage) (domain.AgentResponse, error) {
	return e.invokeStep(ctx, step, message, state, history, nil)
}

// runSequential resolves the step condition, then invokes the agent and
// waits. run is false when the condition skipped the step.
func (e *Executor) runSequential(ctx context.Context, step domain.WorkflowStep, message string, state domain.ProjectState, history []domain.ConversationMessage, collected []domain.AgentResponse) (out domain.AgentResponse, run bool, err error) {
	ok, err := e.conditionHolds(step, state, collected)
	if err != nil {
		return domain.AgentResponse{}, false, err
	}
	if !ok {
		e.log.Debug().Str("agent", step.Agent).Str("condition", step.Condition).Msg("step skipped by condition")
		return domain.AgentResponse{}, false, nil
	}

	out, err = e.invokeStep(ctx, step, message, state, history, collected)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			e.log.Warn().Str("agent", step.Agent).Msg("step timed out")
			return domain.ErrorResponse(step.Agent, err), true, nil
		}
		return domain.AgentResponse{}, false, fmt.Errorf("step %s failed: %w", step.Agent, err)
	}
	return out, true, nil
}

// runBatch invokes all members concurrently and waits for full settlement.
// A member's failure is recorded as an error-tagged response; the batch call
// itself fails only on a condition configuration error.
func (e *Executor) runBatch(ctx context.Context, steps []domain.WorkflowStep, message string, state domain.ProjectState, history []domain.ConversationMessage, collected []domain.AgentResponse) ([]domain.AgentResponse, error) {
	type slot struct {
		resp domain.AgentResponse
		run  bool
	}
	slots := make([]slot, len(steps))

	g, gctx := errgroup.WithContext(ctx)
	for idx, step := range steps {
		ok, err := e.conditionHolds(step, state, collected)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.log.Debug().Str("agent", step.Agent).Str("condition", step.Condition).Msg("step skipped by condition")
			continue
		}

		g.Go(func() error {
			out, err := e.invokeStep(gctx, step, message, state, history, collected)
			if err != nil {
				e.log.Warn().Err(err).Str("agent", step.Agent).Msg("parallel step failed")
				out = domain.ErrorResponse(step.Agent, err)
			}
			slots[idx] = slot{resp: out, run: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Workers never return errors; settlement is the only contract here.
		return nil, err
	}

	// Normalize to declaration order, not completion order.
	outputs := make([]domain.AgentResponse, 0, len(steps))
	for _, s := range slots {
		if s.run {
			outputs = append(outputs, s.resp)
		}
	}
	return outputs, nil
}

// invokeStep prunes the history for the step's agent and calls it under the
// per-step deadline.
func (e *Executor) invokeStep(ctx context.Context, step domain.WorkflowStep, message string, state domain.ProjectState, history []domain.ConversationMessage, collected []domain.AgentResponse) (domain.AgentResponse, error) {
	if e.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	pruned := e.pruner.Prune(step.Agent, history, state)
	start := time.Now()
	out, err := e.invoker.Invoke(ctx, agents.Invocation{
		Agent:   step.Agent,
		Action:  step.Action,
		Message: message,
		History: pruned.History,
		State:   state,
		Extra:   collected,
	})
	e.log.Debug().
		Str("agent", step.Agent).
		Str("action", step.Action).
		Int("context_messages", pruned.Stats.Kept).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("step finished")
	if err != nil {
		return domain.AgentResponse{}, err
	}
	if out.Agent == "" {
		out.Agent = step.Agent
	}
	return out, nil
}

func (e *Executor) conditionHolds(step domain.WorkflowStep, state domain.ProjectState, collected []domain.AgentResponse) (bool, error) {
	if step.Condition == "" {
		return true, nil
	}
	pred, ok := predicates[step.Condition]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCondition, step.Condition)
	}
	return pred(Aggregate{State: state, Outputs: collected}), nil
}
