package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ThreadStore persists the chat-to-thread mapping. It is the source of
// truth behind the in-memory cache kept by the thread directory.
type ThreadStore struct {
	db *Database
}

// NewThreadStore creates a new thread store.
func NewThreadStore(db *Database) *ThreadStore {
	return &ThreadStore{db: db}
}

// Get returns the thread id mapped to a chat, or ErrNotFound.
func (s *ThreadStore) Get(ctx context.Context, chatID int64) (string, error) {
	var row ChatThread
	query := `SELECT chat_id, thread_id, updated_at FROM chat_threads WHERE chat_id = ?`
	err := s.db.GetContext(ctx, &row, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get thread for chat %d: %v", ErrUnavailable, chatID, err)
	}
	return row.ThreadID, nil
}

// Upsert inserts or replaces the thread mapping for a chat, refreshing
// updated_at. Conflicting writers resolve last-write-wins at the storage
// layer.
func (s *ThreadStore) Upsert(ctx context.Context, chatID int64, threadID string) error {
	query := `
		INSERT INTO chat_threads (chat_id, thread_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(chat_id) DO UPDATE SET
			thread_id = excluded.thread_id,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, chatID, threadID); err != nil {
		return fmt.Errorf("%w: upsert thread for chat %d: %v", ErrUnavailable, chatID, err)
	}
	return nil
}
