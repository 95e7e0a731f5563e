// Package domain defines the core domain models for the orchestration pipeline.
package domain

import (
	"encoding/json"
	"time"
)

// Project is the container a conversation and its items belong to.
type Project struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationMessage is a single message in a project's conversation.
// Messages are immutable once persisted and ordered by creation time.
type ConversationMessage struct {
	MessageID string          `json:"message_id"`
	ProjectID string          `json:"project_id"`
	Role      string          `json:"role"` // user, assistant
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Citation is the provenance record attached to a recorded item. Every
// decided item must carry a user quote traceable to an actual user message.
type Citation struct {
	UserQuote  string    `json:"user_quote"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence int       `json:"confidence"` // 0-100
	Source     string    `json:"source,omitempty"`
}

// CitationSourceBatch marks items recorded through the batch reconciliation path.
const CitationSourceBatch = "batch"

// ProjectItem is a durable decision, open question, or parked idea. Items are
// created only by the reconciler; their ids are never reused.
type ProjectItem struct {
	ItemID    string    `json:"item_id"`
	Text      string    `json:"text"`
	State     ItemState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	Citation  *Citation `json:"citation,omitempty"`
}

// ProjectState is the three-bucket partition of a project's item list.
// It is derived on read, never stored.
type ProjectState struct {
	Decided   []ProjectItem `json:"decided"`
	Exploring []ProjectItem `json:"exploring"`
	Parked    []ProjectItem `json:"parked"`
}

// PartitionItems splits an item list into the three state buckets,
// preserving item order within each bucket.
func PartitionItems(items []ProjectItem) ProjectState {
	var st ProjectState
	for _, it := range items {
		switch it.State {
		case ItemStateDecided:
			st.Decided = append(st.Decided, it)
		case ItemStateExploring:
			st.Exploring = append(st.Exploring, it)
		case ItemStateParked:
			st.Parked = append(st.Parked, it)
		}
	}
	return st
}

// Total returns the number of items across all buckets.
func (s ProjectState) Total() int {
	return len(s.Decided) + len(s.Exploring) + len(s.Parked)
}

// RecordInstruction is one entry of a batch recording request.
type RecordInstruction struct {
	Item       string    `json:"item"`
	State      ItemState `json:"state"`
	UserQuote  string    `json:"user_quote,omitempty"`
	Confidence *int      `json:"confidence,omitempty"`
}

// ResponseMetadata carries the structured side of an agent's output. The
// single form (ShouldRecord + Item) and the batch form (ItemsToRecord) are
// mutually exclusive; a response with neither is a no-op for reconciliation.
type ResponseMetadata struct {
	ShouldRecord  bool                `json:"should_record,omitempty"`
	Item          string              `json:"item,omitempty"`
	State         ItemState           `json:"state,omitempty"`
	Confidence    *int                `json:"confidence,omitempty"`
	UserQuote     string              `json:"user_quote,omitempty"`
	ItemsToRecord []RecordInstruction `json:"items_to_record,omitempty"`
	Error         bool                `json:"error,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
}

// AgentResponse is the sole channel through which a step communicates both
// user-facing text and recording instructions.
type AgentResponse struct {
	Agent      string            `json:"agent"`
	Message    string            `json:"message"`
	ShowToUser bool              `json:"show_to_user"`
	Metadata   *ResponseMetadata `json:"metadata,omitempty"`
}

// ErrorResponse builds an error-tagged AgentResponse for a failed step.
func ErrorResponse(agent string, err error) AgentResponse {
	return AgentResponse{
		Agent:      agent,
		ShowToUser: false,
		Metadata: &ResponseMetadata{
			Error:        true,
			ErrorMessage: err.Error(),
		},
	}
}

// Classification is the intent classifier's clamped output.
type Classification struct {
	Type       Intent `json:"type"`
	Confidence int    `json:"confidence"` // 0-100
}

// Updates summarizes reconciliation side effects.
type Updates struct {
	ItemsAdded    int `json:"items_added"`
	ItemsModified int `json:"items_modified"`
	ItemsMoved    int `json:"items_moved"`
}

// ActivityEntry is one record in the per-project activity log.
type ActivityEntry struct {
	ActivityID string          `json:"activity_id"`
	ProjectID  string          `json:"project_id"`
	Agent      string          `json:"agent"`
	Action     string          `json:"action"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
