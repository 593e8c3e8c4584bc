package db

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type direction string

const (
	dirUp   direction = "up"
	dirDown direction = "down"
)

// migration is one numbered schema change read from a
// NNNN_name.up.sql / NNNN_name.down.sql pair.
type migration struct {
	version int
	name    string
	up      string
	down    string
}

// embeddedMigrations returns the migration files compiled into the binary.
func embeddedMigrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err) // the embed pattern guarantees the directory
	}
	return sub
}

// readMigrations loads every .sql file at the root of src. Each version
// needs exactly one up and one down file.
func readMigrations(src fs.FS) ([]migration, error) {
	files, err := fs.Glob(src, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	byVersion := make(map[int]*migration)
	for _, fname := range files {
		version, name, dir, err := parseFilename(fname)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", fname, err)
		}
		body, err := fs.ReadFile(src, fname)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fname, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{version: version, name: name}
			byVersion[version] = m
		}
		if m.name != name {
			return nil, fmt.Errorf("migration %04d: names %q and %q disagree", version, m.name, name)
		}

		slot := &m.up
		if dir == dirDown {
			slot = &m.down
		}
		if *slot != "" {
			return nil, fmt.Errorf("migration %04d: duplicate %s file", version, dir)
		}
		*slot = string(body)
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		switch {
		case m.up == "":
			return nil, fmt.Errorf("migration %04d (%s): missing up file", m.version, m.name)
		case m.down == "":
			return nil, fmt.Errorf("migration %04d (%s): missing down file", m.version, m.name)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out, nil
}

// parseFilename splits "NNNN_name.up.sql" into its version, name and
// direction.
func parseFilename(filename string) (int, string, direction, error) {
	var dir direction
	base, ok := strings.CutSuffix(filename, ".up.sql")
	if ok {
		dir = dirUp
	} else if base, ok = strings.CutSuffix(filename, ".down.sql"); ok {
		dir = dirDown
	} else {
		return 0, "", "", fmt.Errorf("want .up.sql or .down.sql suffix")
	}

	num, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", "", fmt.Errorf("want NNNN_name.{up,down}.sql")
	}

	version, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", "", fmt.Errorf("version %q: %w", num, err)
	}
	if version <= 0 {
		return 0, "", "", fmt.Errorf("version must be positive, got %d", version)
	}

	return version, name, dir, nil
}

// migrator applies migrations from src to conn, recording each applied
// version in schema_migrations.
type migrator struct {
	conn *sql.DB
	src  fs.FS
}

func newMigrator(conn *sql.DB, src fs.FS) *migrator {
	return &migrator{conn: conn, src: src}
}

// up applies every pending migration in version order and returns how many
// ran. A database carrying a version this binary does not know is refused.
func (m *migrator) up(ctx context.Context) (int, error) {
	migrations, applied, err := m.state(ctx)
	if err != nil {
		return 0, err
	}

	known := make(map[int]bool, len(migrations))
	for _, mg := range migrations {
		known[mg.version] = true
	}
	for v := range applied {
		if !known[v] {
			return 0, fmt.Errorf("database has schema version %04d which this build does not know", v)
		}
	}

	n := 0
	for _, mg := range migrations {
		if applied[mg.version] {
			continue
		}
		log.Debug().Int("version", mg.version).Str("name", mg.name).Msg("applying migration")
		err := m.exec(ctx, mg.up,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			mg.version, mg.name, time.Now().UnixNano(),
		)
		if err != nil {
			return n, fmt.Errorf("migration %04d (%s): %w", mg.version, mg.name, err)
		}
		n++
	}
	return n, nil
}

// down reverts the newest n applied migrations.
func (m *migrator) down(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("n must be positive, got %d", n)
	}

	migrations, applied, err := m.state(ctx)
	if err != nil {
		return err
	}

	var revert []migration
	for _, mg := range slices.Backward(migrations) {
		if applied[mg.version] {
			revert = append(revert, mg)
		}
	}
	if n > len(revert) {
		return fmt.Errorf("requested %d down migrations but only %d are applied", n, len(revert))
	}

	for _, mg := range revert[:n] {
		log.Debug().Int("version", mg.version).Str("name", mg.name).Msg("reverting migration")
		err := m.exec(ctx, mg.down, "DELETE FROM schema_migrations WHERE version = ?", mg.version)
		if err != nil {
			return fmt.Errorf("revert migration %04d (%s): %w", mg.version, mg.name, err)
		}
	}
	return nil
}

// state loads the migration files and the set of applied versions, creating
// the tracking table on first use.
func (m *migrator) state(ctx context.Context) ([]migration, map[int]bool, error) {
	migrations, err := readMigrations(m.src)
	if err != nil {
		return nil, nil, err
	}

	_, err = m.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := m.conn.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, nil, fmt.Errorf("scan version: %w", err)
		}
		applied[v] = true
	}
	return migrations, applied, rows.Err()
}

// exec runs a migration body and its bookkeeping statement in one
// transaction.
func (m *migrator) exec(ctx context.Context, body, record string, args ...any) error {
	tx, err := m.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
