package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"projectpilot/internal/adapter/llm"
	"projectpilot/internal/agents"
	"projectpilot/internal/coordinator"
	"projectpilot/internal/domain"
	"projectpilot/internal/executor"
	"projectpilot/internal/intent"
	"projectpilot/internal/logging"
	"projectpilot/internal/plan"
	"projectpilot/internal/pruner"
	"projectpilot/internal/reconcile"
	"projectpilot/tests/helpers"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	p := pruner.New(nil)
	invoker := agents.NewMockInvoker()
	invoker.Reply(domain.AgentConversation, domain.AgentResponse{
		Agent:      domain.AgentConversation,
		Message:    "got it",
		ShowToUser: true,
	})
	facade := coordinator.New(
		db,
		intent.NewClassifier(llm.NewMockClient(`{"type": "general", "confidence": 90}`), p),
		plan.NewSelector(nil),
		executor.New(invoker, p, time.Second, logging.Nop()),
		reconcile.New(db, nil, logging.Nop()),
		time.Minute,
		logging.Nop(),
	)

	e := echo.New()
	NewHandler(facade, logging.Nop()).RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestPostMessage(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/projects/p1/messages",
		`{"user_id": "u1", "message": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if assert.Len(t, resp.Responses, 1) {
		assert.Equal(t, "got it", resp.Responses[0].Message)
	}
	assert.Equal(t, domain.Updates{}, resp.Updates)
	assert.Equal(t, domain.IntentGeneral, resp.Workflow)
}

func TestPostMessageEmptyBody(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/projects/p1/messages", `{"user_id": "u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message is required")
}

func TestPostMessageMalformedJSON(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/projects/p1/messages", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessages(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/projects/p1/messages",
		`{"user_id": "u1", "message": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/projects/p1/messages?limit=10", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Messages []domain.ConversationMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if assert.Len(t, body.Messages, 2) {
		assert.Equal(t, domain.RoleUser, body.Messages[0].Role)
		assert.Equal(t, domain.RoleAssistant, body.Messages[1].Role)
	}
}

func TestGetItemsUnknownProject(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/v1/projects/nope/items", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetItems(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodPost, "/v1/projects/p1/messages",
		`{"user_id": "u1", "message": "hello"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/v1/projects/p1/items", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var state domain.ProjectState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.Empty(t, state.Decided)
}

func TestGetActivity(t *testing.T) {
	e := newTestServer(t)

	rec := doRequest(e, http.MethodGet, "/v1/projects/p1/activity", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "activity")
}
