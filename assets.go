// Package catalogadmin provides embedded assets for production builds.
package catalogadmin

import "embed"

// In dev mode assets are read from disk; otherwise these embedded copies are served.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
