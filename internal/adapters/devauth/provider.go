// Package devauth signs in a fixed identity from configuration, for local work without an IdP.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/ports"
)

const (
	defaultSessionDuration = 8 * time.Hour
	handshakeLen           = 24
	callbackPath           = "/auth/callback"
)

// Config is the identity every dev login produces. UserID and Email are required.
type Config struct {
	UserID          string
	FirstName       string
	LastName        string
	Email           string
	Groups          []string
	Roles           []string // ROLE_* names; blanks are dropped
	SessionDuration time.Duration
}

// Provider is a ports.AuthProvider whose "IdP" is the local callback.
type Provider struct {
	identity domainauth.Identity
	ttl      time.Duration
}

func NewProvider(cfg Config) (*Provider, error) {
	switch {
	case cfg.UserID == "":
		return nil, errors.New("dev auth: UserID is required")
	case cfg.Email == "":
		return nil, errors.New("dev auth: Email is required")
	}
	ttl := cfg.SessionDuration
	if ttl <= 0 {
		ttl = defaultSessionDuration
	}
	return &Provider{
		identity: domainauth.Identity{
			UserID:    cfg.UserID,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Email:     cfg.Email,
			Groups:    slices.Clone(cfg.Groups),
			Roles:     domainauth.ParseRoles(cfg.Roles),
		},
		ttl: ttl,
	}, nil
}

// Begin points the browser straight at the callback with code "dev" and a fresh state.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(handshakeLen)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(handshakeLen)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return callbackPath + "?" + q.Encode(), state, nonce, nil
}

// Exchange hands back a copy of the configured identity. The HTTP layer has already matched state.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	id := p.identity
	id.Groups = slices.Clone(p.identity.Groups)
	id.Roles = slices.Clone(p.identity.Roles)
	id.ExpiresAt = time.Now().Add(p.ttl)
	return id, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	raw := make([]byte, base64.RawURLEncoding.DecodedLen(n)+1)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:n], nil
}
