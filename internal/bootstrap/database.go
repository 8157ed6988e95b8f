package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	// Register the pgx driver with database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/dscatalog/catalog-admin/config"
	"github.com/dscatalog/catalog-admin/internal/migrate"
)

// Role store pool sizing. Lookups happen once per login, so the pool stays small.
const (
	roleStoreMaxOpen     = 10
	roleStoreMaxIdle     = 2
	roleStoreMaxLifetime = 5 * time.Minute

	connectPingTimeout = 5 * time.Second
)

// DatabaseConfig groups what the store connectors need.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB opens the Postgres role store and verifies it answers.
func ConnectDB(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DBConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("open role store: %w", err)
	}
	db.SetMaxOpenConns(roleStoreMaxOpen)
	db.SetMaxIdleConns(roleStoreMaxIdle)
	db.SetConnMaxLifetime(roleStoreMaxLifetime)

	if err := pingOrClose(ctx, "role store", db.PingContext, db); err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "role store connected",
			slog.String("host", cfg.DBConfig.Host),
			slog.Int("port", cfg.DBConfig.Port),
			slog.String("database", cfg.DBConfig.Name),
		)
	}
	return db, nil
}

// ConnectRedis opens the session store, either directly or through Sentinel.
//
//nolint:ireturn // callers get a single or failover client depending on config.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	client, desc, err := newRedisClient(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := pingOrClose(ctx, "session store", ping, client); err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "session store connected", slog.String("addr", redactRedisAddr(desc)))
	}
	return client, nil
}

// pingOrClose pings within connectPingTimeout and closes the handle on failure.
func pingOrClose(ctx context.Context, what string, ping func(context.Context) error, c io.Closer) error {
	pctx, cancel := context.WithTimeout(ctx, connectPingTimeout)
	defer cancel()

	err := ping(pctx)
	if err == nil {
		return nil
	}
	if cerr := c.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close %s: %w", what, cerr))
	}
	return fmt.Errorf("ping %s: %w", what, err)
}

// newRedisClient builds the client and a description of where it points, for logging.
//
//nolint:ireturn // see ConnectRedis.
func newRedisClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if cfg.UseSentinel {
		if len(cfg.SentinelNodes) == 0 {
			return nil, "", errors.New("redis sentinel mode needs at least one node in REDIS_SENTINEL_NODES")
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    cfg.SentinelNodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}), "sentinel:" + cfg.SentinelMasterName, nil
	}

	target := strings.TrimSpace(cfg.URI)
	switch {
	case target == "":
		return nil, "", errors.New("redis direct mode needs REDIS_URI")
	case strings.HasPrefix(target, "redis://"), strings.HasPrefix(target, "rediss://"):
		opt, err := redis.ParseURL(target)
		if err != nil {
			return nil, "", fmt.Errorf("parse REDIS_URI: %w", err)
		}
		return redis.NewClient(opt), target, nil
	default:
		return redis.NewClient(&redis.Options{Addr: target, Password: cfg.Password, DB: cfg.DB}), target, nil
	}
}

// redactRedisAddr hides credentials in addr so it can be logged.
func redactRedisAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if _, host, found := strings.Cut(addr, "@"); found {
		return host
	}
	return addr
}

// RunMigrations brings the role store schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := migrate.Run(ctx, db); err != nil {
		return fmt.Errorf("migrate role store: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "role store schema up to date")
	}
	return nil
}
