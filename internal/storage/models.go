// Package storage provides database operations and data models.
package storage

import "time"

// ProcessedUpdate records an update identifier that has been admitted for
// processing. Rows are written once and never updated.
type ProcessedUpdate struct {
	UpdateID    int64     `db:"update_id"`
	ProcessedAt time.Time `db:"processed_at"`
}

// ChatThread maps a Telegram chat to its agent conversation thread.
type ChatThread struct {
	ChatID    int64     `db:"chat_id"`
	ThreadID  string    `db:"thread_id"`
	UpdatedAt time.Time `db:"updated_at"`
}
