package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"projectpilot/internal/adapter/llm"
	"projectpilot/internal/domain"
)

// LLMAgent is a Handler backed by a chat completion call. Each agent kind
// differs only in its system prompt, visibility, and output mode.
type LLMAgent struct {
	name        string
	showToUser  bool
	jsonMode    bool
	system      string
	temperature float32
	client      llm.Client
}

// Ensure LLMAgent implements Handler.
var _ Handler = (*LLMAgent)(nil)

// NewLLMAgent builds a handler for one agent kind.
func NewLLMAgent(name, system string, showToUser, jsonMode bool, client llm.Client) *LLMAgent {
	return &LLMAgent{
		name:        name,
		showToUser:  showToUser,
		jsonMode:    jsonMode,
		system:      system,
		temperature: 0.3,
		client:      client,
	}
}

// Name returns the agent name.
func (a *LLMAgent) Name() string { return a.name }

// Run shapes the call input, invokes the model, and parses its output into an
// AgentResponse.
func (a *LLMAgent) Run(ctx context.Context, inv Invocation) (domain.AgentResponse, error) {
	resp, err := a.client.Complete(ctx, llm.Request{
		Messages:    a.buildMessages(inv),
		Temperature: a.temperature,
		JSONMode:    a.jsonMode,
	})
	if err != nil {
		return domain.AgentResponse{}, fmt.Errorf("agent %s failed: %w", a.name, err)
	}
	return ParseAgentOutput(a.name, a.showToUser, resp.Content), nil
}

func (a *LLMAgent) buildMessages(inv Invocation) []llm.Message {
	system := a.system
	if summary := renderState(inv.State); summary != "" {
		system += "\n\nCurrent project state:\n" + summary
	}
	if inv.Action != "" {
		system += "\n\nRequested action: " + inv.Action
	}

	messages := make([]llm.Message, 0, len(inv.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: system})
	for _, m := range inv.History {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: domain.RoleUser, Content: inv.Message})
	return messages
}

// renderState flattens the three buckets into a short plain-text summary.
func renderState(state domain.ProjectState) string {
	var b strings.Builder
	writeBucket := func(label string, items []domain.ProjectItem) {
		if len(items) == 0 {
			return
		}
		b.WriteString(label + ":\n")
		for _, it := range items {
			b.WriteString("- " + it.Text + "\n")
		}
	}
	writeBucket("Decided", state.Decided)
	writeBucket("Exploring", state.Exploring)
	writeBucket("Parked", state.Parked)
	return strings.TrimRight(b.String(), "\n")
}

// agentOutput is the JSON shape analysis agents are prompted to emit.
type agentOutput struct {
	Message  string                   `json:"message"`
	Metadata *domain.ResponseMetadata `json:"metadata"`
}

// ParseAgentOutput converts raw model output into an AgentResponse. Fenced
// JSON is unwrapped first; anything that does not parse as the expected shape
// degrades to a plain text reply with no metadata.
func ParseAgentOutput(agent string, showToUser bool, content string) domain.AgentResponse {
	raw := stripFences(content)

	var out agentOutput
	if err := json.Unmarshal([]byte(raw), &out); err == nil && (out.Message != "" || out.Metadata != nil) {
		return domain.AgentResponse{
			Agent:      agent,
			Message:    out.Message,
			ShowToUser: showToUser,
			Metadata:   sanitizeMetadata(out.Metadata),
		}
	}

	return domain.AgentResponse{
		Agent:      agent,
		Message:    strings.TrimSpace(content),
		ShowToUser: showToUser,
	}
}

// sanitizeMetadata drops recording instructions with invalid states so a
// confused model cannot push items outside the three buckets.
func sanitizeMetadata(md *domain.ResponseMetadata) *domain.ResponseMetadata {
	if md == nil {
		return nil
	}
	if md.ShouldRecord && !md.State.Valid() {
		md.ShouldRecord = false
	}
	if len(md.ItemsToRecord) > 0 {
		valid := md.ItemsToRecord[:0]
		for _, ins := range md.ItemsToRecord {
			if ins.State.Valid() {
				valid = append(valid, ins)
			}
		}
		md.ItemsToRecord = valid
	}
	return md
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
