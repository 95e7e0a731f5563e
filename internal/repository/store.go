// Package store persists projects, conversations, and the activity log.
package store

import (
	"context"

	"projectpilot/internal/domain"
)

// Store is the persistence boundary the orchestration core depends on.
// The item list is stored as one JSON document per project: AppendItems and
// ReplaceItems are whole-document writes, so a reconciliation run is a single
// all-or-nothing replace.
type Store interface {
	GetOrCreateProject(ctx context.Context, projectID, userID string) (*domain.Project, error)

	GetItems(ctx context.Context, projectID string) ([]domain.ProjectItem, error)
	// AppendItems reads the full item collection and writes it back with
	// newItems appended (read-then-write, whole-document replace).
	AppendItems(ctx context.Context, projectID string, newItems []domain.ProjectItem) error
	// ReplaceItems overwrites the full item collection.
	ReplaceItems(ctx context.Context, projectID string, items []domain.ProjectItem) error

	CreateMessage(ctx context.Context, msg *domain.ConversationMessage) error
	// GetRecentMessages returns the last limit messages in chronological order.
	GetRecentMessages(ctx context.Context, projectID string, limit int) ([]domain.ConversationMessage, error)

	RecordActivity(ctx context.Context, entry *domain.ActivityEntry) error
	ListActivity(ctx context.Context, projectID string, limit int) ([]domain.ActivityEntry, error)

	Close() error
}
