// Package testutil gates integration tests on a reachable Postgres or Redis.
//
// Tests skip when the backing service is down. Set TEST_REQUIRE_DB, TEST_REQUIRE_REDIS
// or TEST_REQUIRE_INFRA to make a missing service fail the test instead.
package testutil

import (
	"io"
	"os"
	"strings"
	"testing"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	default:
		return false
	}
}

// unavailable skips, or fails when requireKey (or TEST_REQUIRE_INFRA) is set.
func unavailable(t testing.TB, requireKey string, args ...any) {
	t.Helper()
	if envBool(requireKey) || envBool("TEST_REQUIRE_INFRA") {
		t.Fatal(args...)
	}
	t.Skip(args...)
}

func closeQuietly(t testing.TB, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		t.Logf("close %s: %v", what, err)
	}
}
