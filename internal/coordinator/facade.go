// Package coordinator is the per-message entry point: classify, select a
// plan, answer in the foreground, then run the rest of the plan and the
// reconciler in the background.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"projectpilot/internal/domain"
	"projectpilot/internal/executor"
	"projectpilot/internal/intent"
	"projectpilot/internal/plan"
	"projectpilot/internal/reconcile"
	store "projectpilot/internal/repository"
)

const historyWindow = 50

// Facade coordinates one user message through the pipeline.
type Facade struct {
	store      store.Store
	classifier *intent.Classifier
	selector   *plan.Selector
	executor   *executor.Executor
	reconciler *reconcile.Reconciler
	log        zerolog.Logger
	bgTimeout  time.Duration

	// Reconciliation is the only read-modify-write in the system; serialize
	// it per project so concurrent messages cannot interleave lost-update
	// style on the item list.
	mu        sync.Mutex
	projLocks map[string]*sync.Mutex
}

// New wires the facade.
func New(st store.Store, classifier *intent.Classifier, selector *plan.Selector, exec *executor.Executor, rec *reconcile.Reconciler, bgTimeout time.Duration, log zerolog.Logger) *Facade {
	return &Facade{
		store:      st,
		classifier: classifier,
		selector:   selector,
		executor:   exec,
		reconciler: rec,
		log:        log,
		bgTimeout:  bgTimeout,
		projLocks:  make(map[string]*sync.Mutex),
	}
}

// HandleMessage runs the foreground path and returns the conversational reply
// together with the background task handle. Updates in the response reflect
// only what was reconciled before returning, which is nothing: reconciliation
// is backgrounded.
func (f *Facade) HandleMessage(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, *Task, error) {
	if req.ProjectID == "" {
		return nil, nil, fmt.Errorf("project_id is required")
	}
	if req.Message == "" {
		return nil, nil, fmt.Errorf("message is required")
	}

	if _, err := f.store.GetOrCreateProject(ctx, req.ProjectID, req.UserID); err != nil {
		return nil, nil, fmt.Errorf("failed to get/create project: %w", err)
	}

	// History is fetched before the current message is persisted: agents
	// receive the message separately and must not see it twice.
	history, err := f.store.GetRecentMessages(ctx, req.ProjectID, historyWindow)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	items, err := f.store.GetItems(ctx, req.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load items: %w", err)
	}
	state := domain.PartitionItems(items)

	f.persistMessage(ctx, req.ProjectID, domain.RoleUser, req.Message)

	classification, err := f.classifier.Classify(ctx, req.Message, history, state)
	if err != nil {
		return nil, nil, err
	}
	wplan, err := f.selector.Select(classification.Type)
	if err != nil {
		return nil, nil, err
	}
	f.log.Info().
		Str("project_id", req.ProjectID).
		Str("intent", string(classification.Type)).
		Int("confidence", classification.Confidence).
		Int("steps", len(wplan.Steps)).
		Msg("plan selected")

	// The reply is produced before any background step starts, regardless of
	// what the plan says.
	convStep, rest := splitConversationStep(wplan)
	reply, err := f.executor.ExecuteStep(ctx, convStep, req.Message, state, history)
	if err != nil {
		return nil, nil, fmt.Errorf("conversation step failed: %w", err)
	}
	f.persistMessage(ctx, req.ProjectID, domain.RoleAssistant, reply.Message)

	task := newTask()
	go f.runBackground(req.ProjectID, req.Message, domain.WorkflowPlan{Intent: wplan.Intent, Steps: rest}, state, history, reply, task)

	return &domain.ChatResponse{
		Responses: []domain.AgentResponse{reply},
		Updates:   domain.Updates{},
		Workflow:  classification.Type,
	}, task, nil
}

// runBackground executes the deferred plan steps and reconciles their output.
// Everything here is caught and logged; nothing propagates to the caller.
func (f *Facade) runBackground(projectID, message string, wplan domain.WorkflowPlan, state domain.ProjectState, history []domain.ConversationMessage, reply domain.AgentResponse, task *Task) {
	var (
		updates domain.Updates
		bgErr   error
	)
	defer func() {
		if r := recover(); r != nil {
			f.log.Error().
				Str("project_id", projectID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("background task panicked")
			bgErr = fmt.Errorf("background task panicked: %v", r)
		}
		task.finish(updates, bgErr)
	}()

	ctx := context.Background()
	if f.bgTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.bgTimeout)
		defer cancel()
	}

	responses := []domain.AgentResponse{reply}
	if len(wplan.Steps) > 0 {
		outputs, err := f.executor.Execute(ctx, wplan, message, state, history, responses)
		if err != nil {
			// Partial outputs are still reconciled.
			f.log.Error().Err(err).Str("project_id", projectID).Msg("background execution failed")
			bgErr = err
		}
		responses = append(responses, outputs...)
	}

	unlock := f.lockProject(projectID)
	u, err := f.reconciler.Reconcile(ctx, projectID, responses, message)
	unlock()
	if err != nil {
		f.log.Error().Err(err).Str("project_id", projectID).Msg("reconciliation failed")
		if bgErr == nil {
			bgErr = err
		}
	} else {
		updates = u
	}

	f.recordActivity(ctx, projectID, string(wplan.Intent), responses, updates)
}

// GetItems returns the derived three-bucket project state.
func (f *Facade) GetItems(ctx context.Context, projectID string) (domain.ProjectState, error) {
	items, err := f.store.GetItems(ctx, projectID)
	if err != nil {
		return domain.ProjectState{}, err
	}
	return domain.PartitionItems(items), nil
}

// GetMessages returns the recent conversation in chronological order.
func (f *Facade) GetMessages(ctx context.Context, projectID string, limit int) ([]domain.ConversationMessage, error) {
	return f.store.GetRecentMessages(ctx, projectID, limit)
}

// ListActivity returns recent activity log entries.
func (f *Facade) ListActivity(ctx context.Context, projectID string, limit int) ([]domain.ActivityEntry, error) {
	return f.store.ListActivity(ctx, projectID, limit)
}

// persistMessage appends a conversation message. Storage failure does not
// block the turn.
func (f *Facade) persistMessage(ctx context.Context, projectID, role, content string) {
	msg := &domain.ConversationMessage{
		MessageID: "msg_" + uuid.New().String()[:8],
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := f.store.CreateMessage(ctx, msg); err != nil {
		f.log.Error().Err(err).Str("project_id", projectID).Str("role", role).Msg("failed to save message")
	}
}

// recordActivity writes to the activity sink. Fire-and-forget: failures are
// logged, never propagated.
func (f *Facade) recordActivity(ctx context.Context, projectID, intentLabel string, responses []domain.AgentResponse, updates domain.Updates) {
	agentNames := make([]string, 0, len(responses))
	for _, r := range responses {
		agentNames = append(agentNames, r.Agent)
	}
	details, _ := json.Marshal(map[string]any{
		"intent":  intentLabel,
		"agents":  agentNames,
		"updates": updates,
	})
	entry := &domain.ActivityEntry{
		ActivityID: "act_" + uuid.New().String()[:8],
		ProjectID:  projectID,
		Agent:      domain.AgentConversation,
		Action:     "workflow_completed",
		Details:    details,
		CreatedAt:  time.Now(),
	}
	if err := f.store.RecordActivity(ctx, entry); err != nil {
		f.log.Error().Err(err).Str("project_id", projectID).Msg("failed to record activity")
	}
}

// lockProject acquires the per-project reconciliation lock.
func (f *Facade) lockProject(projectID string) (unlock func()) {
	f.mu.Lock()
	l, ok := f.projLocks[projectID]
	if !ok {
		l = &sync.Mutex{}
		f.projLocks[projectID] = l
	}
	f.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// splitConversationStep extracts the designated foreground step from the
// plan. Plans without one get the default conversation step.
func splitConversationStep(wplan domain.WorkflowPlan) (domain.WorkflowStep, []domain.WorkflowStep) {
	for i, step := range wplan.Steps {
		if step.Agent == domain.AgentConversation {
			rest := make([]domain.WorkflowStep, 0, len(wplan.Steps)-1)
			rest = append(rest, wplan.Steps[:i]...)
			rest = append(rest, wplan.Steps[i+1:]...)
			return step, rest
		}
	}
	return domain.WorkflowStep{Agent: domain.AgentConversation, Action: "respond"}, wplan.Steps
}
