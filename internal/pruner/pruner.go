// Package pruner reduces conversation history to the subset relevant to one
// consumer, to bound per-step context size. Pruning is a pure function of its
// inputs: no hidden state, no I/O, no randomness.
package pruner

import (
	"strings"

	"projectpilot/internal/domain"
)

// StrategyKind identifies a pruning strategy.
type StrategyKind string

const (
	StrategyRecency   StrategyKind = "recency"
	StrategyDecisions StrategyKind = "decisions"
	StrategyTasks     StrategyKind = "tasks"
)

const (
	defaultRecencyWindow = 20
	decisionsTailWindow  = 5
	tasksTailWindow      = 10
)

// Strategy is one consumer's pruning rule. Window only applies to the
// recency kind.
type Strategy struct {
	Kind   StrategyKind
	Window int
}

// Config maps consumer names to strategies. Consumers without an entry fall
// back to recency with the default window.
type Config map[string]Strategy

// DefaultConfig is the shipped consumer table.
func DefaultConfig() Config {
	return Config{
		domain.AgentConversation:        {Kind: StrategyRecency, Window: 20},
		domain.AgentIntentClassifier:    {Kind: StrategyRecency, Window: 10},
		domain.AgentDecisionTracker:     {Kind: StrategyDecisions},
		domain.AgentReviewer:            {Kind: StrategyDecisions},
		domain.AgentIdeaTracker:         {Kind: StrategyRecency, Window: 15},
		domain.AgentTaskExtractor:       {Kind: StrategyTasks},
		domain.AgentGapAnalyzer:         {Kind: StrategyRecency, Window: 30},
		domain.AgentResearchAssistant:   {Kind: StrategyRecency, Window: 10},
		domain.AgentReferenceIntegrator: {Kind: StrategyRecency, Window: 10},
	}
}

// Stats describes what a prune call kept.
type Stats struct {
	Strategy StrategyKind `json:"strategy"`
	Total    int          `json:"total"`
	Kept     int          `json:"kept"`
}

// Result is a pruned history plus bookkeeping.
type Result struct {
	History []domain.ConversationMessage `json:"history"`
	Stats   Stats                        `json:"stats"`
}

// Pruner selects and applies per-consumer strategies.
type Pruner struct {
	config Config
}

// New builds a Pruner over an injected consumer table.
func New(cfg Config) *Pruner {
	if cfg == nil {
		cfg = Config{}
	}
	return &Pruner{config: cfg}
}

// Prune returns the reduced history for the named consumer. The input slices
// are never mutated.
func (p *Pruner) Prune(consumer string, history []domain.ConversationMessage, state domain.ProjectState) Result {
	strat, ok := p.config[consumer]
	if !ok {
		strat = Strategy{Kind: StrategyRecency, Window: defaultRecencyWindow}
	}

	var kept []domain.ConversationMessage
	switch strat.Kind {
	case StrategyDecisions:
		kept = filterWithTail(history, decisionsTailWindow, func(m domain.ConversationMessage) bool {
			return producedItem(m, state)
		})
	case StrategyTasks:
		kept = filterWithTail(history, tasksTailWindow, func(m domain.ConversationMessage) bool {
			return producedItem(m, state) || hasTaskKeyword(m.Content)
		})
	default:
		window := strat.Window
		if window <= 0 {
			window = defaultRecencyWindow
		}
		kept = lastN(history, window)
	}

	return Result{
		History: kept,
		Stats: Stats{
			Strategy: strat.Kind,
			Total:    len(history),
			Kept:     len(kept),
		},
	}
}

// lastN copies the final n messages of history.
func lastN(history []domain.ConversationMessage, n int) []domain.ConversationMessage {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]domain.ConversationMessage, len(history))
	copy(out, history)
	return out
}

// filterWithTail keeps messages matching the predicate, unioned with the last
// tail messages, deduplicated by message identity. Order is a stable merge of
// the original sequence, not a re-sort by recency.
func filterWithTail(history []domain.ConversationMessage, tail int, match func(domain.ConversationMessage) bool) []domain.ConversationMessage {
	tailStart := len(history) - tail
	if tailStart < 0 {
		tailStart = 0
	}
	out := make([]domain.ConversationMessage, 0, len(history))
	for i, m := range history {
		if i >= tailStart || match(m) {
			out = append(out, m)
		}
	}
	return out
}

// producedItem reports whether a message is cited by any recorded item.
func producedItem(m domain.ConversationMessage, state domain.ProjectState) bool {
	if m.Role != domain.RoleUser {
		return false
	}
	for _, bucket := range [][]domain.ProjectItem{state.Decided, state.Exploring, state.Parked} {
		for _, item := range bucket {
			if item.Citation != nil && item.Citation.UserQuote != "" &&
				strings.Contains(m.Content, item.Citation.UserQuote) {
				return true
			}
		}
	}
	return false
}

var taskKeywords = []string{
	"todo", "to-do", "task", "action item", "need to", "have to",
	"should ", "must ", "don't forget", "remember to", "next step",
}

// hasTaskKeyword applies the task/todo keyword heuristics.
func hasTaskKeyword(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range taskKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
