package jwtroles

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

func newTestVerifier(t *testing.T, issuer string) *Verifier {
	t.Helper()
	v, err := NewVerifier(Config{Secret: "test-secret", Issuer: issuer})
	require.NoError(t, err)
	return v
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := NewVerifier(Config{Secret: "  "})
	require.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	v := newTestVerifier(t, "catalog")

	tok, err := v.Issue(IssueInput{
		UserName:  "maria@gmail.com",
		FirstName: "Maria",
		Roles:     []domainauth.Role{domainauth.RoleUser, domainauth.RoleAdmin, domainauth.RoleUser},
		TTL:       time.Hour,
	})
	require.NoError(t, err)

	sess, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "maria@gmail.com", sess.UserID)
	assert.Equal(t, "maria@gmail.com", sess.Email)
	assert.Equal(t, "Maria", sess.FirstName)
	assert.Equal(t, []domainauth.Role{domainauth.RoleAdmin, domainauth.RoleUser}, sess.Roles)
	assert.NotEmpty(t, sess.ID)
	assert.True(t, sess.HasAnyRoles(domainauth.RoleAdmin))
}

func TestVerify_NoAuthorities(t *testing.T) {
	v := newTestVerifier(t, "")
	tok, err := v.Issue(IssueInput{UserName: "alex", TTL: time.Minute})
	require.NoError(t, err)

	sess, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Empty(t, sess.Roles)
	assert.Empty(t, sess.Email)
}

func TestVerify_Rejects(t *testing.T) {
	v := newTestVerifier(t, "catalog")
	good, err := v.Issue(IssueInput{UserName: "alex", TTL: time.Minute})
	require.NoError(t, err)

	other := newTestVerifier(t, "someone-else")
	foreign, err := other.Issue(IssueInput{UserName: "alex", TTL: time.Minute})
	require.NoError(t, err)

	wrongKey, err := NewVerifier(Config{Secret: "other-secret", Issuer: "catalog"})
	require.NoError(t, err)
	forged, err := wrongKey.Issue(IssueInput{UserName: "alex", TTL: time.Minute})
	require.NoError(t, err)

	expiredV := newTestVerifier(t, "catalog")
	expiredV.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredV.Issue(IssueInput{UserName: "alex", TTL: time.Minute})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserName: "alex",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "catalog",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"wrong issuer":   foreign,
		"wrong key":      forged,
		"expired":        expired,
		"alg none":       unsigned,
		"truncated good": good[:len(good)-4],
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tok)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err = v.Verify(context.Background(), good)
	require.NoError(t, err)
}

func TestParseOutcome(t *testing.T) {
	require.NoError(t, parseOutcome(&jwt.Token{Valid: true}, nil))

	err := parseOutcome(&jwt.Token{Valid: false}, nil)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "invalid token: token not valid", err.Error())
	assert.NotContains(t, err.Error(), "%!")

	err = parseOutcome(nil, jwt.ErrTokenExpired)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_MissingPrincipal(t *testing.T) {
	v := newTestVerifier(t, "")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Authorities: []string{"ROLE_ADMIN"},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssue_Validates(t *testing.T) {
	v := newTestVerifier(t, "")
	_, err := v.Issue(IssueInput{UserName: "", TTL: time.Minute})
	require.Error(t, err)
	_, err = v.Issue(IssueInput{UserName: "alex"})
	require.Error(t, err)
}
