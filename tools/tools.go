//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// They are installed with `go install` and kept out of go.mod.
package tools

// Development tools (install via `go install`):
//
// Air - live reload while editing templates and handlers (DEV=true serves templates from disk)
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
//
// mockgen - regenerates internal/mocks from internal/ports
//   Run: go generate ./internal/mocks
//   Pinned through the go:generate directive (go.uber.org/mock v0.6.0).
