package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIDCookie names the cookie that holds a server-side session identifier.
const DefaultIDCookie = "sid"

// Backend persists values for server-side sessions.
//
// Implementations must be safe for concurrent use, and Take must remove the value in the same operation
// that reads it.
type Backend interface {
	Get(ctx context.Context, sid, key string) (string, bool, error)
	Set(ctx context.Context, sid, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, sid, key string) error
	Take(ctx context.Context, sid, key string) (string, bool, error)
}

// ServerStore keeps an opaque identifier in the browser and the values in a [Backend].
type ServerStore struct {
	backend Backend
	options CookieOptions
	name    string
}

// NewServerStore creates a [ServerStore] over backend.
func NewServerStore(backend Backend, options CookieOptions) *ServerStore {
	return &ServerStore{backend: backend, options: options, name: DefaultIDCookie}
}

// Open implements [Store]. A session identifier is only issued on the first write.
func (s *ServerStore) Open(w http.ResponseWriter, r *http.Request) Session {
	sess := &serverSession{store: s, w: w}
	if c, err := r.Cookie(s.name); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			sess.id = id.String()
		}
	}
	return sess
}

type serverSession struct {
	store *ServerStore
	w     http.ResponseWriter

	mu sync.Mutex
	id string
}

func (s *serverSession) sid(create bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id == "" && create {
		s.id = uuid.New().String()
		http.SetCookie(s.w, s.store.options.cookie(s.store.name, s.id, 0))
	}
	return s.id
}

// Renew issues a fresh identifier and drops every value stored under the previous one.
func (s *serverSession) Renew(ctx context.Context) error {
	s.mu.Lock()
	previous := s.id
	s.id = uuid.New().String()
	http.SetCookie(s.w, s.store.options.cookie(s.store.name, s.id, 0))
	s.mu.Unlock()

	if previous == "" {
		return nil
	}
	for _, key := range Keys {
		if err := s.store.backend.Delete(ctx, previous, key); err != nil {
			return fmt.Errorf("failed to discard previous session: %w", err)
		}
	}
	return nil
}

func (s *serverSession) Get(ctx context.Context, key string) (string, bool, error) {
	sid := s.sid(false)
	if sid == "" {
		return "", false, nil
	}
	return s.store.backend.Get(ctx, sid, key)
}

func (s *serverSession) Put(ctx context.Context, key, value string, opts Options) error {
	return s.store.backend.Set(ctx, s.sid(true), key, value, opts.MaxAge)
}

func (s *serverSession) Delete(ctx context.Context, key string) error {
	sid := s.sid(false)
	if sid == "" {
		return nil
	}
	return s.store.backend.Delete(ctx, sid, key)
}

func (s *serverSession) Take(ctx context.Context, key string) (string, bool, error) {
	sid := s.sid(false)
	if sid == "" {
		return "", false, nil
	}
	return s.store.backend.Take(ctx, sid, key)
}
