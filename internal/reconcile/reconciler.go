// Package reconcile turns structured agent output into persisted project-item
// mutations.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"projectpilot/internal/domain"
	"projectpilot/internal/policy"
	store "projectpilot/internal/repository"
)

const defaultConfidence = 100

// Reconciler applies record instructions found in agent responses.
type Reconciler struct {
	store  store.Store
	policy *policy.Engine
	log    zerolog.Logger
}

// New builds a Reconciler. The policy engine is optional; without one every
// instruction is recorded.
func New(st store.Store, eng *policy.Engine, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, policy: eng, log: log}
}

// instruction is a normalized record request with citation defaults applied.
type instruction struct {
	agent      string
	text       string
	state      domain.ItemState
	userQuote  string
	confidence int
	source     string
}

// Reconcile scans the responses in order for the two mutually exclusive
// recordable shapes and applies them with a single read of the current item
// list and a single persisted write. A response carrying neither shape is a
// logged no-op.
func (r *Reconciler) Reconcile(ctx context.Context, projectID string, responses []domain.AgentResponse, userMessage string) (domain.Updates, error) {
	var updates domain.Updates

	instructions := r.collect(responses, userMessage)
	if len(instructions) == 0 {
		return updates, nil
	}

	instructions, err := r.applyPolicy(ctx, instructions)
	if err != nil {
		return updates, err
	}
	if len(instructions) == 0 {
		return updates, nil
	}

	// Fetch the current item list once.
	items, err := r.store.GetItems(ctx, projectID)
	if err != nil {
		return updates, fmt.Errorf("failed to load items: %w", err)
	}

	now := time.Now()
	var appended []domain.ProjectItem
	rewritten := false

	for _, ins := range instructions {
		citation := &domain.Citation{
			UserQuote:  ins.userQuote,
			Timestamp:  now,
			Confidence: ins.confidence,
			Source:     ins.source,
		}

		if idx := findItem(items, ins.text); idx >= 0 {
			if items[idx].State == ins.state {
				// Re-recording with the same state refreshes provenance.
				items[idx].Citation = citation
				updates.ItemsModified++
			} else {
				items[idx].State = ins.state
				items[idx].Citation = citation
				updates.ItemsMoved++
			}
			rewritten = true
			continue
		}

		item := domain.ProjectItem{
			ItemID:    "item_" + uuid.New().String()[:8],
			Text:      ins.text,
			State:     ins.state,
			CreatedAt: now,
			Citation:  citation,
		}
		items = append(items, item)
		appended = append(appended, item)
		updates.ItemsAdded++
	}

	// Persist once: a pure append goes through the append path, anything
	// that touched an existing item rewrites the whole document.
	if rewritten {
		err = r.store.ReplaceItems(ctx, projectID, items)
	} else {
		err = r.store.AppendItems(ctx, projectID, appended)
	}
	if err != nil {
		return domain.Updates{}, fmt.Errorf("failed to persist items: %w", err)
	}

	r.log.Info().
		Str("project_id", projectID).
		Int("added", updates.ItemsAdded).
		Int("modified", updates.ItemsModified).
		Int("moved", updates.ItemsMoved).
		Msg("reconciled")
	return updates, nil
}

// collect normalizes the recordable shapes out of the response list.
func (r *Reconciler) collect(responses []domain.AgentResponse, userMessage string) []instruction {
	var out []instruction
	for _, resp := range responses {
		md := resp.Metadata
		switch {
		case md == nil:
			continue
		case md.Error:
			continue
		case len(md.ItemsToRecord) > 0:
			for _, ins := range md.ItemsToRecord {
				out = append(out, normalize(resp.Agent, ins.Item, ins.State, ins.UserQuote, ins.Confidence, userMessage, domain.CitationSourceBatch))
			}
		case md.ShouldRecord && md.Item != "":
			out = append(out, normalize(resp.Agent, md.Item, md.State, md.UserQuote, md.Confidence, userMessage, ""))
		default:
			r.log.Debug().Str("agent", resp.Agent).Msg("response carried no recordable shape")
		}
	}
	return out
}

// normalize applies the citation defaults: the triggering user message when
// the agent supplied no quote, and full confidence when none was given.
func normalize(agent, text string, state domain.ItemState, quote string, confidence *int, userMessage, source string) instruction {
	if quote == "" {
		quote = userMessage
	}
	conf := defaultConfidence
	if confidence != nil {
		conf = *confidence
	}
	return instruction{
		agent:      agent,
		text:       strings.TrimSpace(text),
		state:      state,
		userQuote:  quote,
		confidence: conf,
		source:     source,
	}
}

// applyPolicy drops instructions the recording policy skips.
func (r *Reconciler) applyPolicy(ctx context.Context, instructions []instruction) ([]instruction, error) {
	if r.policy == nil {
		return instructions, nil
	}
	kept := instructions[:0]
	for _, ins := range instructions {
		decision, err := r.policy.Evaluate(ctx, ins.agent, ins.text, ins.state, ins.confidence)
		if err != nil {
			return nil, fmt.Errorf("recording policy failed: %w", err)
		}
		if decision == policy.DecisionSkip {
			r.log.Info().Str("agent", ins.agent).Str("item", ins.text).Msg("recording skipped by policy")
			continue
		}
		kept = append(kept, ins)
	}
	return kept, nil
}

// findItem locates an existing item by case-insensitive text match.
func findItem(items []domain.ProjectItem, text string) int {
	for i, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.Text), text) {
			return i
		}
	}
	return -1
}
