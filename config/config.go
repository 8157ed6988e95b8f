// Package config loads the catalog admin configuration from environment variables.
package config

import (
	"os"
	"strings"
)

// AppConfig is the complete configuration, parsed from the environment with caarlos0/env.
// Each group lives in its own file: auth.go, database.go, http.go and observability.go.
type AppConfig struct {
	// IsDev reads templates and static files from disk and renders template errors inline.
	IsDev bool `env:"DEV"`

	Auth AuthConfig

	// Postgres is the role store; Redis holds sessions.
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP          HTTPConfig
	Observability ObservabilityConfig
}

// Sanitize normalizes values after parsing.
// NODE_ENV=development also enables IsDev, so frontend tooling can share one .env.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Postgres.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()

	if !c.IsDev {
		c.IsDev = isDevNodeEnv(os.Getenv("NODE_ENV"))
	}
}

func isDevNodeEnv(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "development", "dev":
		return true
	}
	return false
}
