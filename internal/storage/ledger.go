package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpdateLedger records which update identifiers have already been admitted
// for processing. Uniqueness is enforced by the primary key, so concurrent
// admissions of the same identifier resolve at the storage layer.
type UpdateLedger struct {
	db *Database
}

// NewUpdateLedger creates a new update ledger.
func NewUpdateLedger(db *Database) *UpdateLedger {
	return &UpdateLedger{db: db}
}

// Admit atomically records an update identifier. It returns true if this
// call was the first to record it, false if it was already recorded. An
// existing row is the normal duplicate signal, not an error.
func (l *UpdateLedger) Admit(ctx context.Context, updateID int64) (bool, error) {
	query := `INSERT OR IGNORE INTO processed_updates (update_id) VALUES (?)`
	res, err := l.db.ExecContext(ctx, query, updateID)
	if err != nil {
		return false, fmt.Errorf("%w: admit update %d: %v", ErrUnavailable, updateID, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: admit update %d: %v", ErrUnavailable, updateID, err)
	}
	return inserted == 1, nil
}

// Contains reports whether an update identifier has already been recorded.
func (l *UpdateLedger) Contains(ctx context.Context, updateID int64) (bool, error) {
	var rec ProcessedUpdate
	query := `SELECT update_id, processed_at FROM processed_updates WHERE update_id = ?`
	err := l.db.GetContext(ctx, &rec, query, updateID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: lookup update %d: %v", ErrUnavailable, updateID, err)
	}
	return true, nil
}
