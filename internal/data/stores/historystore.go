package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/redline/internal/core/history"
	"github.com/colonyops/redline/internal/data/db"
)

const historyColumns = `id, diff_id, strategy, outcome, original_text, replacement,
	instruction, fallback, failure, resolved_at`

// HistoryStore implements history.Store using SQLite.
type HistoryStore struct {
	db *db.DB
}

var _ history.Store = (*HistoryStore)(nil)

// NewHistoryStore creates a new SQLite-backed history store.
func NewHistoryStore(db *db.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// List returns all history entries, newest first.
func (s *HistoryStore) List(ctx context.Context) ([]history.Entry, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		"SELECT "+historyColumns+" FROM history ORDER BY seq DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns a history entry by entry ID or diff ID. Returns ErrNotFound if not found.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Entry, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		"SELECT "+historyColumns+" FROM history WHERE id = ? OR diff_id = ? ORDER BY seq DESC LIMIT 1",
		id, id,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, history.ErrNotFound
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("get history: %w", err)
	}
	return e, nil
}

// Save adds a new history entry, pruning old entries to stay within maxEntries.
func (s *HistoryStore) Save(ctx context.Context, entry history.Entry, maxEntries int) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM history WHERE id = ?", entry.ID).Scan(&n); err != nil {
			return fmt.Errorf("check history: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", history.ErrDuplicate, entry.ID)
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO history ("+historyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			entry.ID, entry.DiffID, entry.Strategy, string(entry.Outcome), entry.OriginalText,
			entry.Replacement, entry.Instruction, entry.Fallback, entry.Failure, entry.ResolvedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}

		if maxEntries > 0 {
			_, err = tx.ExecContext(ctx,
				"DELETE FROM history WHERE seq NOT IN (SELECT seq FROM history ORDER BY seq DESC LIMIT ?)",
				maxEntries,
			)
			if err != nil {
				return fmt.Errorf("prune history: %w", err)
			}
		}
		return nil
	})
}

// Clear removes all history entries.
func (s *HistoryStore) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM history"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// LastAccepted returns the most recent entry whose proposal was applied.
// Returns ErrNotFound if none.
func (s *HistoryStore) LastAccepted(ctx context.Context) (history.Entry, error) {
	row := s.db.Conn().QueryRowContext(ctx,
		"SELECT "+historyColumns+" FROM history WHERE outcome = ? AND fallback = 0 ORDER BY seq DESC LIMIT 1",
		string(history.OutcomeAccepted),
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Entry{}, history.ErrNotFound
	}
	if err != nil {
		return history.Entry{}, fmt.Errorf("last accepted: %w", err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (history.Entry, error) {
	var (
		e        history.Entry
		outcome  string
		resolved int64
	)
	err := row.Scan(&e.ID, &e.DiffID, &e.Strategy, &outcome, &e.OriginalText,
		&e.Replacement, &e.Instruction, &e.Fallback, &e.Failure, &resolved)
	if err != nil {
		return history.Entry{}, err
	}
	e.Outcome = history.Outcome(outcome)
	e.ResolvedAt = time.Unix(0, resolved).UTC()
	return e, nil
}
