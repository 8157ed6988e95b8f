// Package redis keeps console sessions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/dscatalog/catalog-admin/internal/domain/auth"
)

// DefaultSessionPrefix is prepended to session IDs to form keys.
const DefaultSessionPrefix = "catalog:session:"

// ErrNotFound means the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// sessionRecord is the stored JSON shape. The key itself carries the ID.
type sessionRecord struct {
	UserID    string            `json:"uid"`
	FirstName string            `json:"fn,omitempty"`
	LastName  string            `json:"ln,omitempty"`
	Email     string            `json:"email,omitempty"`
	Roles     []domainauth.Role `json:"roles,omitempty"`
	ExpiresAt time.Time         `json:"exp"`
}

func recordOf(s domainauth.Session) sessionRecord {
	return sessionRecord{
		UserID:    s.UserID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Roles:     s.Roles,
		ExpiresAt: s.ExpiresAt,
	}
}

func (r sessionRecord) session(id string) domainauth.Session {
	return domainauth.Session{
		ID:        id,
		UserID:    r.UserID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Roles:     r.Roles,
		ExpiresAt: r.ExpiresAt,
	}
}

// SessionStore is the ports.SessionStore on Redis. Each key expires when its session does.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// SessionStoreOption configures NewSessionStore.
type SessionStoreOption func(*SessionStore)

// WithPrefix replaces DefaultSessionPrefix. An empty prefix is ignored.
func WithPrefix(prefix string) SessionStoreOption {
	return func(s *SessionStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewSessionStore(client redis.UniversalClient, opts ...SessionStoreOption) *SessionStore {
	s := &SessionStore{client: client, prefix: DefaultSessionPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

// Save writes sess with EXAT set to its expiry. Expired sessions are refused.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	switch {
	case sess.ID == "":
		return errors.New("session ID cannot be empty")
	case !sess.ExpiresAt.After(s.now()):
		return errors.New("session is expired")
	}

	payload, err := json.Marshal(recordOf(sess))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.SetArgs(ctx, s.key(sess.ID), payload, redis.SetArgs{ExpireAt: sess.ExpiresAt}).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get loads a session. A record past its expiry that Redis has not evicted yet is deleted and reported missing.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return domainauth.Session{}, ErrNotFound
	case err != nil:
		return domainauth.Session{}, fmt.Errorf("load session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if s.now().After(rec.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("evict expired session: %w", err)
		}
		return domainauth.Session{}, ErrNotFound
	}
	return rec.session(id), nil
}

// Delete removes the session. Unknown and empty IDs are not errors.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
