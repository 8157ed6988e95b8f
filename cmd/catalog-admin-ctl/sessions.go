package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/dscatalog/catalog-admin/internal/adapters/redis"
)

const sessionScanBatch = 100

type clearSessionsOptions struct {
	DryRun bool
	Yes    bool
}

type sessionDeleteStats struct {
	Matched int
	Deleted int64
}

func runClearSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearSessionsFlags(args)
	if err != nil {
		return err
	}

	prefix := sessionPrefix(cmdCtx.Config.Auth.SessionPrefix)
	if confirmErr := confirmAction(confirmation{
		Action: "delete all admin sessions",
		Target: fmt.Sprintf("keys matching %q", prefix+"*"),
		DryRun: opts.DryRun,
		Yes:    opts.Yes,
	}, os.Stdin, os.Stdout); confirmErr != nil {
		return confirmErr
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	client, err := connectRedis(ctx, cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}()

	stats, err := deleteSessions(ctx, &deleteSessionsRequest{
		Client: client,
		Prefix: prefix,
		DryRun: opts.DryRun,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	if opts.DryRun {
		return writef(os.Stdout, "Dry run: %d session(s) would be deleted\n", stats.Matched)
	}
	return writef(os.Stdout, "Deleted %d session(s)\n", stats.Deleted)
}

func parseClearSessionsFlags(args []string) (clearSessionsOptions, error) {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts clearSessionsOptions
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Count matching sessions without deleting them")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return clearSessionsOptions{}, err
	}
	return opts, nil
}

func sessionPrefix(configured string) string {
	if configured == "" {
		return redisadapter.DefaultSessionPrefix
	}
	return configured
}

type deleteSessionsRequest struct {
	Client redis.UniversalClient
	Prefix string
	DryRun bool
	Logger *slog.Logger
}

// deleteSessions scans Prefix* and deletes matches in batches.
func deleteSessions(ctx context.Context, req *deleteSessionsRequest) (sessionDeleteStats, error) {
	var (
		stats sessionDeleteStats
		batch = make([]string, 0, sessionScanBatch)
	)

	flush := func() error {
		if len(batch) == 0 || req.DryRun {
			batch = batch[:0]
			return nil
		}
		n, err := req.Client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		stats.Deleted += n
		batch = batch[:0]
		return nil
	}

	iter := req.Client.Scan(ctx, 0, req.Prefix+"*", sessionScanBatch).Iterator()
	for iter.Next(ctx) {
		stats.Matched++
		batch = append(batch, iter.Val())
		if len(batch) >= sessionScanBatch {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("scan sessions: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}

	if req.Logger != nil {
		req.Logger.InfoContext(ctx, "session sweep complete",
			"prefix", req.Prefix, "matched", stats.Matched, "deleted", stats.Deleted, "dry_run", req.DryRun)
	}
	return stats, nil
}
