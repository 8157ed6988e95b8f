package config

import (
	"strings"
	"time"
)

// HTTP defaults, also applied by Sanitize when a value is blank or not positive.
const (
	DefaultHTTPAddr          = ":8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

// HTTPConfig configures the console's HTTP server.
type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain scopes the session cookie. Empty means the request host.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT"        envDefault:"120s"`
	// ShutdownTimeout bounds how long in-flight requests get to finish on SIGTERM.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize fills in defaults for blank or non-positive values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr = strings.TrimSpace(h.Addr); h.Addr == "" {
		h.Addr = DefaultHTTPAddr
	}
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)
	positiveOr(&h.ReadHeaderTimeout, DefaultReadHeaderTimeout)
	positiveOr(&h.IdleTimeout, DefaultIdleTimeout)
	positiveOr(&h.ShutdownTimeout, DefaultShutdownTimeout)
}

func positiveOr(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}
