package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"projectpilot/internal/domain"
)

func TestSelectUnknownIntent(t *testing.T) {
	s := NewSelector(nil)

	_, err := s.Select(domain.Intent("not_a_real_intent"))
	if !errors.Is(err, ErrUnknownIntent) {
		t.Fatalf("expected ErrUnknownIntent, got %v", err)
	}
}

func TestEveryIntentHasAPlan(t *testing.T) {
	s := NewSelector(nil)

	for _, intent := range domain.Intents {
		p, err := s.Select(intent)
		assert.NoError(t, err, "intent %s", intent)
		assert.Equal(t, intent, p.Intent)
		assert.NotEmpty(t, p.Steps, "intent %s", intent)
	}
}

func TestEveryPlanStartsWithConversation(t *testing.T) {
	for intent, p := range DefaultPlans() {
		found := false
		for _, step := range p.Steps {
			if step.Agent == domain.AgentConversation {
				found = true
				break
			}
		}
		assert.True(t, found, "plan for %s has no conversation step", intent)
	}
}

func TestDecidingPlanShape(t *testing.T) {
	s := NewSelector(nil)

	p, err := s.Select(domain.IntentDeciding)
	assert.NoError(t, err)
	assert.Len(t, p.Steps, 4)
	assert.False(t, p.Steps[0].Parallel)
	assert.True(t, p.Steps[1].Parallel)
	assert.True(t, p.Steps[2].Parallel)
	assert.False(t, p.Steps[3].Parallel)
	assert.Equal(t, domain.ConditionItemsRecorded, p.Steps[3].Condition)
}

func TestCustomTable(t *testing.T) {
	table := map[domain.Intent]domain.WorkflowPlan{
		domain.IntentGeneral: {Intent: domain.IntentGeneral},
	}
	s := NewSelector(table)

	_, err := s.Select(domain.IntentGeneral)
	assert.NoError(t, err)
	_, err = s.Select(domain.IntentDeciding)
	assert.Error(t, err)
}
