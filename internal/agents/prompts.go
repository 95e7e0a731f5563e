package agents

import (
	"projectpilot/internal/adapter/llm"
	"projectpilot/internal/domain"
)

// recordingContract is appended to every analysis agent prompt. It defines
// the JSON envelope the reconciler understands.
const recordingContract = `
Respond with a JSON object: {"message": string, "metadata": object|null}.
To record a single item set metadata to
{"should_record": true, "item": string, "state": "decided"|"exploring"|"parked",
 "confidence": 0-100, "user_quote": string}.
To record several items set metadata to
{"items_to_record": [{"item": string, "state": string, "user_quote": string, "confidence": 0-100}]}.
Only record what the user actually said. Quote the user's exact wording in
user_quote. If nothing is worth recording, set metadata to null.`

const conversationPrompt = `You are a project-tracking assistant. Reply to the
user conversationally and concisely. Help them think through their project,
but never invent decisions they did not make.`

const decisionTrackerPrompt = `You extract durable decisions from the
conversation. A decision is something the user has clearly committed to.
Tentative directions belong in "exploring"; deferred ideas in "parked".` + recordingContract

const ideaTrackerPrompt = `You capture ideas and options the user is actively
considering. Record them in the "exploring" state unless the user has clearly
decided or deferred them.` + recordingContract

const taskExtractorPrompt = `You extract concrete tasks and follow-ups the
user has mentioned. Record each as an "exploring" item phrased as an
actionable step.` + recordingContract

const gapAnalyzerPrompt = `You detect missing information: undecided
questions, unstated constraints, and contradictions between recorded items
and the conversation. Summarize the gaps in your message. Record a gap as an
"exploring" item only when the user explicitly raised it.` + recordingContract

const reviewerPrompt = `You review the recorded project state against the
conversation. Flag stale or contradictory items and confirm recent
recordings. You may move an item between states by recording it again with
the new state and the user's wording that justifies the move.` + recordingContract

const researchAssistantPrompt = `You identify what the user would need to
research in external documents and summarize any referenced material already
present in the conversation.` + recordingContract

const referenceIntegratorPrompt = `You connect references the user mentions
(documents, links, prior discussions) to the recorded project items and note
which items they support or contradict.` + recordingContract

// NewDefaultRegistry wires every known agent kind against the given LLM
// client. The conversation agent is the only one whose output is shown to
// the user.
func NewDefaultRegistry(client llm.Client) *Registry {
	r := NewRegistry()
	r.MustRegister(NewLLMAgent(domain.AgentConversation, conversationPrompt, true, false, client))
	r.MustRegister(NewLLMAgent(domain.AgentDecisionTracker, decisionTrackerPrompt, false, true, client))
	r.MustRegister(NewLLMAgent(domain.AgentIdeaTracker, ideaTrackerPrompt, false, true, client))
	r.MustRegister(NewLLMAgent(domain.AgentTaskExtractor, taskExtractorPrompt, false, true, client))
	r.MustRegister(NewLLMAgent(domain.AgentGapAnalyzer, gapAnalyzerPrompt, false, true, client))
	r.MustRegister(NewLLMAgent(domain.AgentReviewer, reviewerPrompt, false, true, client))
	r.MustRegister(NewLLMAgent(domain.AgentResearchAssistant, researchAssistantPrompt, false, true, client))
	r.MustRegister(NewLLMAgent(domain.AgentReferenceIntegrator, referenceIntegratorPrompt, false, true, client))
	return r
}
