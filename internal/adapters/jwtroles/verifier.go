// Package jwtroles verifies HS256 bearer tokens whose authorities claim carries the caller's roles.
package jwtroles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

var (
	// ErrInvalidToken indicates the token failed signature or claim validation.
	ErrInvalidToken = errors.New("invalid token")

	errMissingSecret = errors.New("jwt secret is not configured")
)

// Claims is the token payload. authorities and user_name follow the Spring OAuth2 access-token layout.
type Claims struct {
	Authorities []string `json:"authorities"`
	UserName    string   `json:"user_name"`
	FirstName   string   `json:"first_name,omitempty"`
	jwt.RegisteredClaims
}

// Config configures a Verifier.
type Config struct {
	Secret string
	// Issuer is optional; when set, tokens must carry the same iss.
	Issuer string
	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
}

// Verifier validates bearer tokens and maps them to sessions.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewVerifier returns a Verifier for cfg.
func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errMissingSecret
	}
	return &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(cfg.Issuer),
		leeway: cfg.Leeway,
		now:    time.Now,
	}, nil
}

// Verify parses raw and returns the principal it describes.
// Any parse or validation failure is reported as ErrInvalidToken.
func (v *Verifier) Verify(_ context.Context, raw string) (domainauth.Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domainauth.Session{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err := parseOutcome(parsed, err); err != nil {
		return domainauth.Session{}, err
	}

	name := firstNonEmpty(claims.UserName, claims.Subject)
	if name == "" {
		return domainauth.Session{}, fmt.Errorf("%w: principal missing", ErrInvalidToken)
	}

	return domainauth.Session{
		ID:        claims.ID,
		UserID:    name,
		FirstName: claims.FirstName,
		Email:     emailOf(name),
		Roles:     domainauth.NewRoleSet(domainauth.ParseRoles(claims.Authorities)...).Slice(),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func parseOutcome(parsed *jwt.Token, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	case parsed == nil || !parsed.Valid:
		return fmt.Errorf("%w: token not valid", ErrInvalidToken)
	default:
		return nil
	}
}

// IssueInput describes a token to sign.
type IssueInput struct {
	UserName  string
	FirstName string
	Roles     []domainauth.Role
	TTL       time.Duration
}

// Issue signs a token for in. Used by the admin CLI and tests.
func (v *Verifier) Issue(in IssueInput) (string, error) {
	name := strings.TrimSpace(in.UserName)
	if name == "" {
		return "", errors.New("user name is required")
	}
	if in.TTL <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}

	authorities := make([]string, 0, len(in.Roles))
	for _, r := range in.Roles {
		authorities = append(authorities, string(r))
	}

	now := v.now().UTC()
	claims := Claims{
		Authorities: authorities,
		UserName:    name,
		FirstName:   in.FirstName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(in.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func emailOf(name string) string {
	if strings.Contains(name, "@") {
		return name
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
