package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"net"
	"net/url"
	"strconv"
	"testing"
	"time"

	// database/sql driver "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dscatalog/catalog-admin/internal/migrate"
)

const (
	dbPingTimeout  = 2 * time.Second
	dbSetupTimeout = 10 * time.Second
)

// TestDBConfig locates the integration database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* with local docker-compose defaults (port 55432).
// CI points TEST_DB_HOST and TEST_DB_PORT at its service container.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "55432"),
		User:     envOr("TEST_DB_USER", "catalog"),
		Password: envOr("TEST_DB_PASSWORD", "catalog"),
		DBName:   envOr("TEST_DB_NAME", "catalog"),
	}
}

// DSN renders cfg as a postgres URL. DB_SSL_MODE defaults to disable.
func (cfg TestDBConfig) DSN() string {
	return cfg.url(nil).String()
}

func (cfg TestDBConfig) url(extra url.Values) *url.URL {
	q := url.Values{"sslmode": {envOr("DB_SSL_MODE", "disable")}}
	for k, v := range extra {
		q[k] = v
	}
	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
}

// SkipIfNoTestDB skips t unless the integration database answers a ping.
func SkipIfNoTestDB(t testing.TB) {
	t.Helper()
	db, err := sql.Open("pgx", DefaultTestDBConfig().DSN())
	if err != nil {
		unavailable(t, "TEST_REQUIRE_DB", "test database not available:", err)
		return
	}
	defer closeQuietly(t, "probe db", db)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		unavailable(t, "TEST_REQUIRE_DB", "test database not available:", err)
	}
}

// WithAutoDB runs fn against a migrated role store. With TEST_DB_EPHEMERAL set each call gets
// a private schema that is dropped afterwards; otherwise the shared database is emptied of
// users and grants before and after fn.
func WithAutoDB(t testing.TB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)
	if envBool("TEST_DB_EPHEMERAL") {
		fn(ephemeralSchemaDB(t))
		return
	}

	db := openMigrated(t, DefaultTestDBConfig().DSN())
	defer closeQuietly(t, "test db", db)
	truncateUsers(t, db)
	defer truncateUsers(t, db)
	fn(db)
}

func openMigrated(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatal("open test db:", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), dbSetupTimeout)
	defer cancel()
	if err := migrate.Run(ctx, db); err != nil {
		closeQuietly(t, "test db", db)
		t.Fatal("migrate test db:", err)
	}
	return db
}

// truncateUsers keeps the seeded roles.
func truncateUsers(t testing.TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), dbSetupTimeout)
	defer cancel()
	for _, stmt := range [...]string{"DELETE FROM tb_user_role", "DELETE FROM tb_user"} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
}

func ephemeralSchemaDB(t testing.TB) *sql.DB {
	t.Helper()
	cfg := DefaultTestDBConfig()
	admin, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		t.Fatal("open admin db:", err)
	}

	schema := schemaName()
	ctx, cancel := context.WithTimeout(context.Background(), dbSetupTimeout)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		closeQuietly(t, "admin db", admin)
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		dctx, dcancel := context.WithTimeout(context.Background(), dbPingTimeout)
		defer dcancel()
		if _, err := admin.ExecContext(dctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		closeQuietly(t, "admin db", admin)
	})

	db := openMigrated(t, cfg.url(url.Values{"search_path": {schema + ",public"}}).String())
	t.Cleanup(func() { closeQuietly(t, "schema db", db) })
	t.Logf("role store schema %s", schema)
	return db
}

func schemaName() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "t_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "t_" + hex.EncodeToString(b[:])
}
