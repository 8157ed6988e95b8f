// Package service holds the admin console's application services.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	apperrors "github.com/dscatalog/catalog-admin/internal/errors"
	"github.com/dscatalog/catalog-admin/internal/ports"
)

// AuthServiceOptions wires an AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper
	// Stored grants roles by email. Nil means IdP-derived roles only.
	Stored ports.RoleRepository
	// OnRoleLookup is called with the outcome of each stored-role lookup.
	OnRoleLookup func(err error)
	Logger       *slog.Logger
}

// AuthService signs principals in, works out their roles and keeps their sessions.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	mapper   ports.RoleMapper
	stored   ports.RoleRepository
	onLookup func(error)
	logger   *slog.Logger
}

var errSessionExpired = errors.New("session expired")

func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		mapper:   opts.Roles,
		stored:   opts.Stored,
		onLookup: opts.OnRoleLookup,
		logger:   logger.With(slog.String("component", "auth_service")),
	}
}

// BeginLoginResult is where to send the browser and what to remember until the callback.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin asks the provider for an authorization URL. redirectURL is the local page to land on afterwards.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput is what the callback received plus the nonce stored at BeginLogin.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

func (in CompleteLoginInput) validate() error {
	switch {
	case in.Code == "":
		return errors.New("authorization code is required")
	case in.State == "":
		return errors.New("state parameter is required")
	case in.Nonce == "":
		return errors.New("nonce parameter is required")
	}
	return nil
}

// CompleteLoginResult carries the session that was just stored.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin redeems the code, resolves roles and stores a new session.
// Nothing is stored when role resolution fails.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	id, err := s.provider.Exchange(ctx, ports.ExchangeInput(input))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	roles, err := s.ResolveRoles(ctx, id)
	if err != nil {
		return nil, err
	}

	sess := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    id.UserID,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
		Roles:     roles,
		ExpiresAt: id.ExpiresAt,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "login completed",
		slog.String("user_id", sess.UserID),
		slog.Any("roles", sess.Roles),
	)
	return &CompleteLoginResult{Session: sess}, nil
}

// ResolveRoles unions the roles the IdP asserted, the roles mapped from its groups
// and the roles stored for the email. The group mapping and the store lookup run concurrently.
// When the role store is unavailable the stored roles are left out and login proceeds.
// The result is sorted.
func (s *AuthService) ResolveRoles(ctx context.Context, id domainauth.Identity) ([]domainauth.Role, error) {
	var fromGroups, fromStore []domainauth.Role

	g, gctx := errgroup.WithContext(ctx)
	if s.mapper != nil {
		g.Go(func() error {
			fromGroups = s.mapper.Map(id.Groups)
			return nil
		})
	}
	if s.stored != nil && id.Email != "" {
		g.Go(func() error {
			found, err := s.stored.RolesForEmail(gctx, id.Email)
			if s.onLookup != nil {
				s.onLookup(err)
			}
			switch {
			case apperrors.IsUnavailable(err):
				s.logger.WarnContext(gctx, "role store unavailable; using IdP roles only",
					slog.String("user_id", id.UserID), slog.Any("error", err))
				return nil
			case err != nil:
				return fmt.Errorf("resolve stored roles: %w", err)
			}
			fromStore = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return domainauth.NewRoleSet(id.Roles...).
		Union(domainauth.NewRoleSet(fromGroups...)).
		Union(domainauth.NewRoleSet(fromStore...)).
		Slice(), nil
}

// GetSession loads a live session. Expired sessions are deleted on sight.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !time.Now().After(sess.ExpiresAt) {
		return &sess, nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", err))
	}
	return nil, errSessionExpired
}

// Logout deletes the session. An empty ID is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
