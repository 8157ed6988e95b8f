// Package auth has hand-written fakes for the auth ports, for tests that want behaviour rather than expectations.
package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
	"github.com/dscatalog/catalog-admin/internal/ports"
)

var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.RoleMapper     = StaticRoleMapper{}
	_ ports.RoleRepository = StaticRoleRepository{}
)

// ErrNotFound is what MemorySessionStore.Get returns for an unknown ID.
var ErrNotFound = errors.New("not found")

// MockAuthProvider plays the IdP. Begin hands out numbered state and nonce values
// ("state-1", "nonce-1", ...) and Exchange signs in DefaultUser.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	begun atomic.Int64
}

func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: catalogUser(),
	}
}

// catalogUser is a plain catalog user: the "users" group and nothing else.
func catalogUser() domainauth.Identity {
	return domainauth.Identity{
		UserID:    "mock-user-1",
		FirstName: "Mock",
		LastName:  "User",
		Email:     "mock.user@example.com",
		Groups:    []string{"users"},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	n := strconv.FormatInt(m.begun.Add(1), 10)
	return orDefault(m.AuthURL, "https://mock-idp/auth"),
		orDefault(m.StatePrefix, "state") + "-" + n,
		orDefault(m.NoncePrefix, "nonce") + "-" + n,
		nil
}

// Exchange returns DefaultUser (or the catalog user when unset) valid for one hour.
func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	id := m.DefaultUser
	if id.UserID == "" {
		id = catalogUser()
	}
	id.ExpiresAt = time.Now().Add(time.Hour)
	return id, nil
}

// MemorySessionStore keeps sessions in a map. The zero value is ready to use.
// SaveErr and DeleteErr, when set, are returned instead of touching the map.
type MemorySessionStore struct {
	SaveErr   error
	DeleteErr error

	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[string]domainauth.Session{}}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = map[string]domainauth.Session{}
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}
	return domainauth.Session{}, ErrNotFound
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StaticRoleMapper maps AdminGroup to ROLE_ADMIN and UserGroup to ROLE_USER.
type StaticRoleMapper struct {
	AdminGroup string
	UserGroup  string
}

func (m StaticRoleMapper) Map(groups []string) []domainauth.Role {
	var roles []domainauth.Role
	for _, g := range groups {
		if g == "" {
			continue
		}
		if g == m.AdminGroup {
			roles = append(roles, domainauth.RoleAdmin)
		} else if g == m.UserGroup {
			roles = append(roles, domainauth.RoleUser)
		}
	}
	return roles
}

// StaticRoleRepository serves grants from ByEmail, or fails every lookup with Err.
type StaticRoleRepository struct {
	ByEmail map[string][]domainauth.Role
	Err     error
}

func (r StaticRoleRepository) RolesForEmail(_ context.Context, email string) ([]domainauth.Role, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.ByEmail[email], nil
}
