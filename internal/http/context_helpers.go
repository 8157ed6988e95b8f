package httpx

import (
	"context"
	"net/http"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

// SetSessionInContext attaches session to ctx. A nil session leaves ctx untouched.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionCtxKey, session)
}

// GetSessionFromContext returns the session attached by the auth middleware, or nil for anonymous requests.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	s, _ := ctx.Value(sessionCtxKey).(*domainauth.Session)
	return s
}

// rolesFromRequest is the only place the navbar learns who is asking.
// Anonymous requests hold no roles.
func rolesFromRequest(r *http.Request) domainauth.RoleSet {
	if s := GetSessionFromContext(r.Context()); s != nil {
		return s.RoleSet()
	}
	return domainauth.RoleSet{}
}
