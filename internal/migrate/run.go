// Package migrate owns the role store schema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// advisoryLockKey is held per migration so replicas starting together apply each file once.
const advisoryLockKey = 7314_0001

const (
	createLedgerSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	lockSQL    = `SELECT pg_advisory_xact_lock($1)`
	appliedSQL = `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`
	recordSQL  = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// Run brings the role store schema up to date. Calling it again is a no-op.
func Run(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	return RunFS(ctx, db, sub)
}

// RunFS applies every top-level *.sql file in fsys, in name order, skipping versions
// already listed in schema_migrations. The version is the file name without ".sql".
func RunFS(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, createLedgerSQL); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	files, err := listMigrations(fsys)
	if err != nil {
		return err
	}

	m := migrator{db: db, fsys: fsys, log: slog.Default().With("component", "migrations")}
	for _, name := range files {
		if err := m.apply(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func listMigrations(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && path.Ext(e.Name()) == ".sql" {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

type migrator struct {
	db   *sql.DB
	fsys fs.FS
	log  *slog.Logger
}

// apply runs one file inside its own transaction, under the advisory lock.
func (m migrator) apply(ctx context.Context, name string) error {
	version := strings.TrimSuffix(name, ".sql")
	body, err := fs.ReadFile(m.fsys, name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rb := tx.Rollback(); rb != nil && !errors.Is(rb, sql.ErrTxDone) {
			m.log.ErrorContext(ctx, "migration rollback failed", "migration_file", name, "err", rb)
		}
	}()

	if _, err := tx.ExecContext(ctx, lockSQL, advisoryLockKey); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	var applied bool
	if err := tx.QueryRowContext(ctx, appliedSQL, version).Scan(&applied); err != nil {
		return fmt.Errorf("check migration %s: %w", name, err)
	}
	if applied {
		return nil
	}

	m.log.InfoContext(ctx, "applying migration", "version", version)
	steps := []struct {
		what  string
		query string
		args  []any
	}{
		{"exec", string(body), nil},
		{"record", recordSQL, []any{version}},
	}
	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("%s migration %s: %w", s.what, name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
