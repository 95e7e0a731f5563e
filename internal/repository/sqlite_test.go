package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"projectpilot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreateProject(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetOrCreateProject(ctx, "p1", "u1")
	assert.NoError(t, err)
	assert.Equal(t, "p1", p.ProjectID)
	assert.Equal(t, "u1", p.UserID)

	// Second call returns the existing row, keeping the original owner.
	again, err := s.GetOrCreateProject(ctx, "p1", "someone-else")
	assert.NoError(t, err)
	assert.Equal(t, "u1", again.UserID)

	items, err := s.GetItems(ctx, "p1")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetItemsUnknownProject(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetItems(context.Background(), "nope")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAppendAndReplaceItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreateProject(ctx, "p1", "u1"); err != nil {
		t.Fatalf("GetOrCreateProject failed: %v", err)
	}

	first := domain.ProjectItem{ItemID: "item_1", Text: "Use PostgreSQL", State: domain.ItemStateDecided, CreatedAt: time.Now()}
	second := domain.ProjectItem{ItemID: "item_2", Text: "Try Redis", State: domain.ItemStateExploring, CreatedAt: time.Now()}

	assert.NoError(t, s.AppendItems(ctx, "p1", []domain.ProjectItem{first}))
	assert.NoError(t, s.AppendItems(ctx, "p1", []domain.ProjectItem{second}))

	items, err := s.GetItems(ctx, "p1")
	assert.NoError(t, err)
	if assert.Len(t, items, 2) {
		assert.Equal(t, "item_1", items[0].ItemID)
		assert.Equal(t, "item_2", items[1].ItemID)
	}

	items[1].State = domain.ItemStateDecided
	assert.NoError(t, s.ReplaceItems(ctx, "p1", items))

	items, err = s.GetItems(ctx, "p1")
	assert.NoError(t, err)
	if assert.Len(t, items, 2) {
		assert.Equal(t, domain.ItemStateDecided, items[1].State)
	}
}

func TestAppendItemsEmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreateProject(ctx, "p1", "u1"); err != nil {
		t.Fatalf("GetOrCreateProject failed: %v", err)
	}

	assert.NoError(t, s.AppendItems(ctx, "p1", nil))
}

func TestReplaceItemsUnknownProject(t *testing.T) {
	s := newTestStore(t)

	err := s.ReplaceItems(context.Background(), "nope", []domain.ProjectItem{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMessageRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreateProject(ctx, "p1", "u1"); err != nil {
		t.Fatalf("GetOrCreateProject failed: %v", err)
	}

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		msg := &domain.ConversationMessage{
			MessageID: fmt.Sprintf("msg_%02d", i),
			ProjectID: "p1",
			Role:      domain.RoleUser,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if i == 4 {
			msg.Metadata = json.RawMessage(`{"intent":"deciding"}`)
		}
		assert.NoError(t, s.CreateMessage(ctx, msg))
	}

	// Limited fetch keeps the most recent messages in chronological order.
	messages, err := s.GetRecentMessages(ctx, "p1", 3)
	assert.NoError(t, err)
	if assert.Len(t, messages, 3) {
		assert.Equal(t, "msg_02", messages[0].MessageID)
		assert.Equal(t, "msg_04", messages[2].MessageID)
		assert.JSONEq(t, `{"intent":"deciding"}`, string(messages[2].Metadata))
	}

	all, err := s.GetRecentMessages(ctx, "p1", 0)
	assert.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestActivityLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.GetOrCreateProject(ctx, "p1", "u1"); err != nil {
		t.Fatalf("GetOrCreateProject failed: %v", err)
	}

	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		entry := &domain.ActivityEntry{
			ActivityID: fmt.Sprintf("act_%02d", i),
			ProjectID:  "p1",
			Agent:      domain.AgentDecisionTracker,
			Action:     "workflow_completed",
			Details:    json.RawMessage(`{"items_added":1}`),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		assert.NoError(t, s.RecordActivity(ctx, entry))
	}

	entries, err := s.ListActivity(ctx, "p1", 2)
	assert.NoError(t, err)
	if assert.Len(t, entries, 2) {
		// Newest first.
		assert.Equal(t, "act_02", entries[0].ActivityID)
		assert.Equal(t, "act_01", entries[1].ActivityID)
	}
}
