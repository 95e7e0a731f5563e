package plan

import "projectpilot/internal/domain"

// Actions passed through to the agents.
const (
	ActionRespond = "respond"
	ActionExtract = "extract"
	ActionAnalyze = "analyze"
	ActionReview  = "review"
)

// DefaultPlans is the hand-authored intent-to-plan table. Every plan starts
// with the conversation step the facade runs in the foreground; the rest is
// background work.
func DefaultPlans() map[domain.Intent]domain.WorkflowPlan {
	conversation := domain.WorkflowStep{Agent: domain.AgentConversation, Action: ActionRespond}

	table := map[domain.Intent]domain.WorkflowPlan{
		domain.IntentGeneral: {
			Intent: domain.IntentGeneral,
			Steps:  []domain.WorkflowStep{conversation},
		},
		domain.IntentBrainstorming: {
			Intent: domain.IntentBrainstorming,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentIdeaTracker, Action: ActionExtract, Parallel: true},
				{Agent: domain.AgentGapAnalyzer, Action: ActionAnalyze, Parallel: true},
			},
		},
		domain.IntentDeciding: {
			Intent: domain.IntentDeciding,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentDecisionTracker, Action: ActionExtract, Parallel: true},
				{Agent: domain.AgentGapAnalyzer, Action: ActionAnalyze, Parallel: true},
				{Agent: domain.AgentReviewer, Action: ActionReview, Condition: domain.ConditionItemsRecorded},
			},
		},
		domain.IntentModifying: {
			Intent: domain.IntentModifying,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentDecisionTracker, Action: ActionExtract},
			},
		},
		domain.IntentExploring: {
			Intent: domain.IntentExploring,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentIdeaTracker, Action: ActionExtract, Parallel: true},
				{Agent: domain.AgentTaskExtractor, Action: ActionExtract, Parallel: true},
			},
		},
		domain.IntentParking: {
			Intent: domain.IntentParking,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentDecisionTracker, Action: ActionExtract},
			},
		},
		domain.IntentReviewing: {
			Intent: domain.IntentReviewing,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentReviewer, Action: ActionReview},
				{Agent: domain.AgentGapAnalyzer, Action: ActionAnalyze, Condition: domain.ConditionHasOpenItems},
			},
		},
		domain.IntentDocumentResearch: {
			Intent: domain.IntentDocumentResearch,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentResearchAssistant, Action: ActionAnalyze, Parallel: true},
				{Agent: domain.AgentTaskExtractor, Action: ActionExtract, Parallel: true},
			},
		},
		domain.IntentReferenceIntegration: {
			Intent: domain.IntentReferenceIntegration,
			Steps: []domain.WorkflowStep{
				conversation,
				{Agent: domain.AgentReferenceIntegrator, Action: ActionAnalyze},
			},
		},
	}
	return table
}
