package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dscatalog/catalog-admin/internal/bootstrap"
	"github.com/dscatalog/catalog-admin/internal/data"
)

var errRoleStoreDisabled = errors.New("role store is disabled (DB_ENABLED=false)")

func connectDB(ctx context.Context, cmdCtx *commandContext) (*sql.DB, error) {
	if !cmdCtx.Config.Postgres.Enabled {
		return nil, errRoleStoreDisabled
	}
	db, err := bootstrap.ConnectDB(ctx, bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// withRoleStore opens the role store, runs fn against it and closes the connection.
func withRoleStore(ctx context.Context, cmdCtx *commandContext, fn func(*data.UserRoleRepo) error) error {
	db, err := connectDB(ctx, cmdCtx)
	if err != nil {
		return err
	}

	runErr := fn(data.NewUserRoleRepo(db, cmdCtx.Logger))
	if closeErr := db.Close(); closeErr != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close db: %w", closeErr))
	}
	return runErr
}

// connectRedis returns a connected session store client.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func connectRedis(ctx context.Context, cmdCtx *commandContext) (redis.UniversalClient, error) {
	client, err := bootstrap.ConnectRedis(ctx, bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
