package domain

// ItemState is the lifecycle bucket of a project item.
type ItemState string

const (
	ItemStateDecided   ItemState = "decided"
	ItemStateExploring ItemState = "exploring"
	ItemStateParked    ItemState = "parked"
)

// Valid reports whether s is one of the three known states.
func (s ItemState) Valid() bool {
	switch s {
	case ItemStateDecided, ItemStateExploring, ItemStateParked:
		return true
	}
	return false
}

// Intent is a closed-set label describing what the user's message is trying
// to accomplish.
type Intent string

const (
	IntentBrainstorming        Intent = "brainstorming"
	IntentDeciding             Intent = "deciding"
	IntentModifying            Intent = "modifying"
	IntentExploring            Intent = "exploring"
	IntentParking              Intent = "parking"
	IntentReviewing            Intent = "reviewing"
	IntentDocumentResearch     Intent = "document_research"
	IntentReferenceIntegration Intent = "reference_integration"
	IntentGeneral              Intent = "general"
)

// Intents lists every known intent label.
var Intents = []Intent{
	IntentBrainstorming,
	IntentDeciding,
	IntentModifying,
	IntentExploring,
	IntentParking,
	IntentReviewing,
	IntentDocumentResearch,
	IntentReferenceIntegration,
	IntentGeneral,
}

// ParseIntent maps a raw label onto the closed intent set.
func ParseIntent(s string) (Intent, bool) {
	for _, it := range Intents {
		if string(it) == s {
			return it, true
		}
	}
	return "", false
}

// Agent names. The registry rejects anything outside this set.
const (
	AgentConversation        = "conversation"
	AgentDecisionTracker     = "decision_tracker"
	AgentIdeaTracker         = "idea_tracker"
	AgentTaskExtractor       = "task_extractor"
	AgentGapAnalyzer         = "gap_analyzer"
	AgentReviewer            = "reviewer"
	AgentResearchAssistant   = "research_assistant"
	AgentReferenceIntegrator = "reference_integrator"
	AgentIntentClassifier    = "intent_classifier"
)

// KnownAgents lists every agent name the registry may hold.
var KnownAgents = []string{
	AgentConversation,
	AgentDecisionTracker,
	AgentIdeaTracker,
	AgentTaskExtractor,
	AgentGapAnalyzer,
	AgentReviewer,
	AgentResearchAssistant,
	AgentReferenceIntegrator,
	AgentIntentClassifier,
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
