// Package intent classifies user messages into the closed intent label set.
// The external model does the judging; this package only shapes the call
// input and validates the output.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"projectpilot/internal/adapter/llm"
	"projectpilot/internal/domain"
	"projectpilot/internal/pruner"
)

const systemPrompt = `Classify the user's latest message into exactly one of
these intents: brainstorming, deciding, modifying, exploring, parking,
reviewing, document_research, reference_integration, general.
Respond with JSON: {"type": string, "confidence": 0-100}.`

// Classifier maps (message, history) to a Classification.
type Classifier struct {
	client llm.Client
	pruner *pruner.Pruner
}

// NewClassifier builds a classifier over the given LLM client and pruner.
func NewClassifier(client llm.Client, p *pruner.Pruner) *Classifier {
	return &Classifier{client: client, pruner: p}
}

// Classify trims the history for the classifier consumer, calls the model,
// and clamps its output into the closed label set and confidence range.
// Unparseable output falls back to general with confidence 0; only a failed
// model call is an error.
func (c *Classifier) Classify(ctx context.Context, message string, history []domain.ConversationMessage, state domain.ProjectState) (domain.Classification, error) {
	pruned := c.pruner.Prune(domain.AgentIntentClassifier, history, state)

	messages := make([]llm.Message, 0, len(pruned.History)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range pruned.History {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: domain.RoleUser, Content: message})

	resp, err := c.client.Complete(ctx, llm.Request{
		Messages: messages,
		JSONMode: true,
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("intent classification failed: %w", err)
	}

	return clamp(resp.Content), nil
}

// rawClassification is the loosely typed model output.
type rawClassification struct {
	Type       string `json:"type"`
	Confidence int    `json:"confidence"`
}

// clamp validates model output into the closed set and 0-100 range.
func clamp(content string) domain.Classification {
	fallback := domain.Classification{Type: domain.IntentGeneral, Confidence: 0}

	var raw rawClassification
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return fallback
	}

	label, ok := domain.ParseIntent(strings.ToLower(strings.TrimSpace(raw.Type)))
	if !ok {
		return fallback
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return domain.Classification{Type: label, Confidence: confidence}
}
