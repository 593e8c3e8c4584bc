package stores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/colonyops/redline/internal/core/notify"
	"github.com/colonyops/redline/internal/data/db"
)

// NotifyStore implements notify.Store on the notifications table. Like
// notify.Memory it keeps at most limit rows, dropping the oldest.
type NotifyStore struct {
	db    *db.DB
	limit int
}

var _ notify.Store = (*NotifyStore)(nil)

// NewNotifyStore returns a store keeping at most limit notifications. A
// limit of zero or less keeps everything.
func NewNotifyStore(db *db.DB, limit int) *NotifyStore {
	return &NotifyStore{db: db, limit: limit}
}

// Save inserts n, stamping CreatedAt when unset, and returns its row ID.
func (s *NotifyStore) Save(ctx context.Context, n notify.Notification) (int64, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO notifications (level, message, created_at) VALUES (?, ?, ?)",
			string(n.Level), n.Message, n.CreatedAt.UnixNano(),
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		if s.limit > 0 {
			_, err = tx.ExecContext(ctx, "DELETE FROM notifications WHERE id <= ?", id-int64(s.limit))
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save notification: %w", err)
	}
	return id, nil
}

// List returns notifications in reverse insertion order.
func (s *NotifyStore) List(ctx context.Context) ([]notify.Notification, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		"SELECT id, level, message, created_at FROM notifications ORDER BY id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]notify.Notification, 0)
	for rows.Next() {
		var (
			n       notify.Notification
			level   string
			created int64
		)
		if err := rows.Scan(&n.ID, &level, &n.Message, &created); err != nil {
			return nil, fmt.Errorf("list notifications: %w", err)
		}
		n.Level = notify.Level(level)
		n.CreatedAt = time.Unix(0, created)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *NotifyStore) Clear(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

func (s *NotifyStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&n); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}
