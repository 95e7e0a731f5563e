package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"projectpilot/internal/agents"
	"projectpilot/internal/domain"
	"projectpilot/internal/logging"
	"projectpilot/internal/pruner"
)

func newTestExecutor(invoker agents.Invoker, stepTimeout time.Duration) *Executor {
	return New(invoker, pruner.New(pruner.DefaultConfig()), stepTimeout, logging.Nop())
}

func reply(agent, message string) domain.AgentResponse {
	return domain.AgentResponse{Agent: agent, Message: message}
}

func TestExecuteOrderingInvariant(t *testing.T) {
	// A resolves last but must still come first in the output.
	mock := agents.NewMockInvoker().
		On(domain.AgentIdeaTracker, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			time.Sleep(50 * time.Millisecond)
			return reply(domain.AgentIdeaTracker, "A"), nil
		}).
		On(domain.AgentGapAnalyzer, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			return reply(domain.AgentGapAnalyzer, "B"), nil
		}).
		Reply(domain.AgentReviewer, reply(domain.AgentReviewer, "C"))

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Intent: domain.IntentReviewing,
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentIdeaTracker, Parallel: true},
			{Agent: domain.AgentGapAnalyzer, Parallel: true},
			{Agent: domain.AgentReviewer},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.NoError(t, err)
	if assert.Len(t, outputs, 3) {
		assert.Equal(t, "A", outputs[0].Message)
		assert.Equal(t, "B", outputs[1].Message)
		assert.Equal(t, "C", outputs[2].Message)
	}
}

func TestExecuteBarrierInvariant(t *testing.T) {
	var (
		mu         sync.Mutex
		aCompleted time.Time
		cStarted   time.Time
	)

	mock := agents.NewMockInvoker().
		On(domain.AgentIdeaTracker, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			time.Sleep(100 * time.Millisecond)
			mu.Lock()
			aCompleted = time.Now()
			mu.Unlock()
			return reply(domain.AgentIdeaTracker, "A"), nil
		}).
		On(domain.AgentGapAnalyzer, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			time.Sleep(10 * time.Millisecond)
			return reply(domain.AgentGapAnalyzer, "B"), nil
		}).
		On(domain.AgentReviewer, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			mu.Lock()
			cStarted = time.Now()
			mu.Unlock()
			return reply(domain.AgentReviewer, "C"), nil
		})

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentIdeaTracker, Parallel: true},
			{Agent: domain.AgentGapAnalyzer, Parallel: true},
			{Agent: domain.AgentReviewer},
		},
	}

	_, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	if !cStarted.After(aCompleted) {
		t.Fatalf("sequential step started at %v, before slow parallel member completed at %v", cStarted, aCompleted)
	}
}

func TestExecutePartialFailureContainment(t *testing.T) {
	mock := agents.NewMockInvoker().
		On(domain.AgentIdeaTracker, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			return domain.AgentResponse{}, errors.New("model exploded")
		}).
		Reply(domain.AgentGapAnalyzer, reply(domain.AgentGapAnalyzer, "B"))

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentIdeaTracker, Parallel: true},
			{Agent: domain.AgentGapAnalyzer, Parallel: true},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.NoError(t, err)
	if assert.Len(t, outputs, 2) {
		assert.True(t, outputs[0].Metadata.Error)
		assert.Equal(t, domain.AgentIdeaTracker, outputs[0].Agent)
		assert.Equal(t, "B", outputs[1].Message)
	}
}

func TestExecuteSequentialFailureAbortsWithPartialOutputs(t *testing.T) {
	invoked := false
	mock := agents.NewMockInvoker().
		Reply(domain.AgentIdeaTracker, reply(domain.AgentIdeaTracker, "A")).
		On(domain.AgentReviewer, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			return domain.AgentResponse{}, errors.New("model exploded")
		}).
		On(domain.AgentGapAnalyzer, func(context.Context, agents.Invocation) (domain.AgentResponse, error) {
			invoked = true
			return reply(domain.AgentGapAnalyzer, "never"), nil
		})

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentIdeaTracker},
			{Agent: domain.AgentReviewer},
			{Agent: domain.AgentGapAnalyzer},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.Error(t, err)
	if assert.Len(t, outputs, 1) {
		assert.Equal(t, "A", outputs[0].Message)
	}
	assert.False(t, invoked, "steps after the failing one must not run")
}

func TestExecuteConditionSkips(t *testing.T) {
	mock := agents.NewMockInvoker().
		Reply(domain.AgentDecisionTracker, reply(domain.AgentDecisionTracker, "nothing to record")).
		Reply(domain.AgentReviewer, reply(domain.AgentReviewer, "review"))

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentDecisionTracker},
			{Agent: domain.AgentReviewer, Condition: domain.ConditionItemsRecorded},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1, "reviewer should be skipped when nothing was recorded")
}

func TestExecuteConditionFires(t *testing.T) {
	recorded := domain.AgentResponse{
		Agent: domain.AgentDecisionTracker,
		Metadata: &domain.ResponseMetadata{
			ShouldRecord: true,
			Item:         "Use PostgreSQL",
			State:        domain.ItemStateDecided,
		},
	}
	mock := agents.NewMockInvoker().
		Reply(domain.AgentDecisionTracker, recorded).
		Reply(domain.AgentReviewer, reply(domain.AgentReviewer, "review"))

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentDecisionTracker},
			{Agent: domain.AgentReviewer, Condition: domain.ConditionItemsRecorded},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.NoError(t, err)
	assert.Len(t, outputs, 2)
}

func TestExecuteUnknownCondition(t *testing.T) {
	mock := agents.NewMockInvoker().
		Reply(domain.AgentReviewer, reply(domain.AgentReviewer, "review"))

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentReviewer, Condition: "phase_of_the_moon"},
		},
	}

	_, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	if !errors.Is(err, ErrUnknownCondition) {
		t.Fatalf("expected ErrUnknownCondition, got %v", err)
	}
}

func TestExecuteStepTimeoutDegradesToErrorResponse(t *testing.T) {
	mock := agents.NewMockInvoker().
		On(domain.AgentReviewer, func(ctx context.Context, _ agents.Invocation) (domain.AgentResponse, error) {
			<-ctx.Done()
			return domain.AgentResponse{}, ctx.Err()
		}).
		Reply(domain.AgentGapAnalyzer, reply(domain.AgentGapAnalyzer, "after"))

	e := newTestExecutor(mock, 20*time.Millisecond)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentReviewer},
			{Agent: domain.AgentGapAnalyzer},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, nil)
	assert.NoError(t, err)
	if assert.Len(t, outputs, 2) {
		assert.True(t, outputs[0].Metadata.Error)
		assert.Equal(t, "after", outputs[1].Message)
	}
}

func TestExecuteExtraSeedsConditionsButNotOutput(t *testing.T) {
	seed := domain.AgentResponse{
		Agent: domain.AgentConversation,
		Metadata: &domain.ResponseMetadata{
			ShouldRecord: true,
			Item:         "Use PostgreSQL",
			State:        domain.ItemStateDecided,
		},
	}
	mock := agents.NewMockInvoker().
		Reply(domain.AgentReviewer, reply(domain.AgentReviewer, "review"))

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{
		Steps: []domain.WorkflowStep{
			{Agent: domain.AgentReviewer, Condition: domain.ConditionItemsRecorded},
		},
	}

	outputs, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, nil, []domain.AgentResponse{seed})
	assert.NoError(t, err)
	if assert.Len(t, outputs, 1) {
		assert.Equal(t, domain.AgentReviewer, outputs[0].Agent)
	}
}

func TestExecutePrunesPerStep(t *testing.T) {
	var got []domain.ConversationMessage
	mock := agents.NewMockInvoker().
		On(domain.AgentConversation, func(_ context.Context, inv agents.Invocation) (domain.AgentResponse, error) {
			got = inv.History
			return reply(domain.AgentConversation, "hi"), nil
		})

	history := make([]domain.ConversationMessage, 40)
	for i := range history {
		history[i] = domain.ConversationMessage{Role: domain.RoleUser, Content: "m"}
	}

	e := newTestExecutor(mock, 0)
	p := domain.WorkflowPlan{Steps: []domain.WorkflowStep{{Agent: domain.AgentConversation}}}

	_, err := e.Execute(context.Background(), p, "msg", domain.ProjectState{}, history, nil)
	assert.NoError(t, err)
	assert.Len(t, got, 20, "conversation consumer is configured for a 20-message window")
}
