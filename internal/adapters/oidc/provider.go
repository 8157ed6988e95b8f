// Package oidc signs admins in against an OpenID Connect identity provider.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/ports"
)

const (
	handshakeTokenLen  = 32
	discoveryTimeout   = 30 * time.Second
	fallbackSessionTTL = time.Hour
)

// Provider is the ports.AuthProvider backed by an OIDC authorization-code flow.
type Provider struct {
	config   *oauth2.Config
	roles    RoleExtractor
	op       *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
}

// ProviderConfig configures NewProvider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string // space separated
	DiscoveryURL string
	// RolesClaim is a JMESPath expression selecting role names in the claims, e.g. "authorities".
	RolesClaim string
	HTTPClient *http.Client
}

func (c ProviderConfig) validate() error {
	for _, req := range []struct{ value, name string }{
		{c.ClientID, "client ID"},
		{c.ClientSecret, "client secret"},
		{c.RedirectURL, "redirect URL"},
		{c.DiscoveryURL, "discovery URL"},
	} {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	return nil
}

// DiscoveryDocument is the part of /.well-known/openid-configuration the provider relies on.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider runs discovery against cfg.DiscoveryURL and returns a ready provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	roles, err := NewRoleExtractor(cfg.RolesClaim)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: discoveryTimeout}
	}
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, client), issuerFromDiscoveryURL(cfg.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     op.Endpoint(),
		},
		roles:    roles,
		op:       op,
		verifier: op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// issuerFromDiscoveryURL accepts either the issuer or its discovery document URL.
func issuerFromDiscoveryURL(u string) string {
	return strings.TrimSuffix(strings.TrimSuffix(u, "/"), "/.well-known/openid-configuration")
}

// Begin builds the IdP authorization URL with a fresh state and nonce.
// The OAuth redirect_uri is always the configured callback; in.RedirectURL is the local page to return to.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (authURL, state, nonce string, err error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	if state, err = generateRandomString(handshakeTokenLen); err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	if nonce, err = generateRandomString(handshakeTokenLen); err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	authURL = p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange redeems the code and assembles the identity from the ID token,
// falling back to the userinfo endpoint for anything the token left out.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	tok, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	var f idFields
	if p.hasOpenIDScope() {
		if f, err = p.idTokenFields(ctx, tok, in.Nonce); err != nil {
			return domainauth.Identity{}, fmt.Errorf("id_token: %w", err)
		}
	}
	if !f.complete() {
		extra, uerr := p.userInfoFields(ctx, tok)
		if uerr != nil {
			return domainauth.Identity{}, fmt.Errorf("user info: %w", uerr)
		}
		fillMissing(&f, extra)
	}

	expires := tok.Expiry
	if expires.IsZero() {
		expires = time.Now().Add(fallbackSessionTTL)
	}
	return domainauth.Identity{
		UserID:    f.userID,
		FirstName: f.givenName,
		LastName:  f.familyName,
		Email:     f.email,
		Groups:    f.groups,
		Roles:     f.roles,
		ExpiresAt: expires,
	}, nil
}

func (p *Provider) idTokenFields(ctx context.Context, tok *oauth2.Token, nonce string) (idFields, error) {
	raw, err := getIDTokenFromToken(tok)
	if err != nil {
		return idFields{}, err
	}
	idTok, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return idFields{}, fmt.Errorf("verify: %w", err)
	}
	if idTok.Nonce != nonce {
		return idFields{}, errors.New("nonce mismatch")
	}
	return p.fieldsFrom(idTok.Claims)
}

func (p *Provider) userInfoFields(ctx context.Context, tok *oauth2.Token) (idFields, error) {
	info, err := p.op.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return idFields{}, fmt.Errorf("fetch: %w", err)
	}
	return p.fieldsFrom(info.Claims)
}

// fieldsFrom decodes claims twice: once into the known claim names and once raw for the roles expression.
func (p *Provider) fieldsFrom(decode func(any) error) (idFields, error) {
	var std standardClaims
	if err := decode(&std); err != nil {
		return idFields{}, fmt.Errorf("decode claims: %w", err)
	}
	var raw map[string]any
	if err := decode(&raw); err != nil {
		return idFields{}, fmt.Errorf("decode raw claims: %w", err)
	}

	f := mapClaims(std)
	roles, err := p.roles.Extract(raw)
	if err != nil {
		return idFields{}, err
	}
	f.roles = roles
	return f, nil
}

func (p *Provider) hasOpenIDScope() bool {
	return slices.Contains(p.config.Scopes, gooidc.ScopeOpenID)
}

// generateRandomString returns n URL-safe random characters.
func generateRandomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	buf := make([]byte, base64.RawURLEncoding.DecodedLen(n)+1)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}

func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		return raw, nil
	}
	return "", errors.New("missing id_token in token response")
}
