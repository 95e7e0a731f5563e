package domain

// ChatRequest is the synchronous per-message input contract.
type ChatRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

// ChatResponse is the synchronous output. Updates reflects only what was
// reconciled before the call returned, which is empty on first return since
// reconciliation runs in the background.
type ChatResponse struct {
	Responses []AgentResponse `json:"responses"`
	Updates   Updates         `json:"updates"`
	Workflow  Intent          `json:"workflow"`
}
