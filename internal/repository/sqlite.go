package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"projectpilot/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			project_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			items TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			metadata TEXT,
			FOREIGN KEY (project_id) REFERENCES projects(project_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS activity (
			activity_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			agent TEXT NOT NULL,
			action TEXT NOT NULL,
			details TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(project_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_project ON activity(project_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// GetOrCreateProject fetches a project, creating it on first use.
func (s *SQLiteStore) GetOrCreateProject(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id, user_id, created_at FROM projects WHERE project_id = ?`,
		projectID,
	).Scan(&p.ProjectID, &p.UserID, &p.CreatedAt)
	if err == nil {
		return &p, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p = domain.Project{ProjectID: projectID, UserID: userID, CreatedAt: time.Now()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (project_id, user_id, items, created_at) VALUES (?, ?, '[]', ?)`,
		p.ProjectID, p.UserID, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &p, nil
}

// GetItems unmarshals the project's item document.
func (s *SQLiteStore) GetItems(ctx context.Context, projectID string) ([]domain.ProjectItem, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT items FROM projects WHERE project_id = ?`, projectID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s not found", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	var items []domain.ProjectItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

// AppendItems reads the full collection and writes it back with the new
// items appended.
func (s *SQLiteStore) AppendItems(ctx context.Context, projectID string, newItems []domain.ProjectItem) error {
	if len(newItems) == 0 {
		return nil
	}
	items, err := s.GetItems(ctx, projectID)
	if err != nil {
		return err
	}
	return s.ReplaceItems(ctx, projectID, append(items, newItems...))
}

// ReplaceItems overwrites the item document.
func (s *SQLiteStore) ReplaceItems(ctx context.Context, projectID string, items []domain.ProjectItem) error {
	if items == nil {
		items = []domain.ProjectItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET items = ? WHERE project_id = ?`, string(raw), projectID,
	)
	if err != nil {
		return fmt.Errorf("failed to write items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write items: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("project %s not found", projectID)
	}
	return nil
}

// CreateMessage appends one message to the conversation.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.ConversationMessage) error {
	var metadata any
	if len(msg.Metadata) > 0 {
		metadata = string(msg.Metadata)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, project_id, role, content, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ProjectID, msg.Role, msg.Content, msg.CreatedAt, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetRecentMessages returns the last limit messages in chronological order.
func (s *SQLiteStore) GetRecentMessages(ctx context.Context, projectID string, limit int) ([]domain.ConversationMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, project_id, role, content, created_at, metadata
		 FROM messages WHERE project_id = ?
		 ORDER BY created_at DESC, message_id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ConversationMessage
	for rows.Next() {
		var m domain.ConversationMessage
		var metadata sql.NullString
		if err := rows.Scan(&m.MessageID, &m.ProjectID, &m.Role, &m.Content, &m.CreatedAt, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if metadata.Valid {
			m.Metadata = json.RawMessage(metadata.String)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	// Newest-first from the query; flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// RecordActivity appends one activity log entry.
func (s *SQLiteStore) RecordActivity(ctx context.Context, entry *domain.ActivityEntry) error {
	var details any
	if len(entry.Details) > 0 {
		details = string(entry.Details)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (activity_id, project_id, agent, action, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ActivityID, entry.ProjectID, entry.Agent, entry.Action, details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivity returns the most recent activity entries, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, projectID string, limit int) ([]domain.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT activity_id, project_id, agent, action, details, created_at
		 FROM activity WHERE project_id = ?
		 ORDER BY created_at DESC, activity_id DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var details sql.NullString
		if err := rows.Scan(&e.ActivityID, &e.ProjectID, &e.Agent, &e.Action, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if details.Valid {
			e.Details = json.RawMessage(details.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
