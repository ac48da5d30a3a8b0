package feature

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iris-glasses/iris-core/internal/infrastructure/database"
)

// Item is one persisted todo entry.
type Item struct {
	ID          int64
	Text        string
	Done        bool
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// TodoStore persists todo items in the todos table.
type TodoStore struct {
	db *database.DB
}

// NewTodoStore creates a store backed by db. The todos table is
// created by the embedded migrations at startup.
func NewTodoStore(db *database.DB) *TodoStore {
	return &TodoStore{db: db}
}

// Add inserts a new item and returns its id.
func (s *TodoStore) Add(ctx context.Context, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (text, done, created_at) VALUES (?, 0, ?)`,
		text, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading todo id: %w", err)
	}
	return id, nil
}

// List returns all items in insertion order.
func (s *TodoStore) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, done, created_at, completed_at FROM todos ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item      Item
			done      int
			created   string
			completed sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Text, &done, &created, &completed); err != nil {
			return nil, fmt.Errorf("scanning todo: %w", err)
		}
		item.Done = done != 0
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			item.CreatedAt = t
		}
		if completed.Valid {
			if t, err := time.Parse(time.RFC3339, completed.String); err == nil {
				item.CompletedAt = &t
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return items, nil
}

// MarkDone marks the item completed.
func (s *TodoStore) MarkDone(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE todos SET done = 1, completed_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("marking todo %d done: %w", id, err)
	}
	return nil
}

// Delete removes the item.
func (s *TodoStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	return nil
}

// ClearDone removes all completed items and returns how many went.
func (s *TodoStore) ClearDone(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE done = 1`)
	if err != nil {
		return 0, fmt.Errorf("clearing done todos: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clearing done todos: %w", err)
	}
	return n, nil
}
