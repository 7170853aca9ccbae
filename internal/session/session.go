// Package session holds short-lived, per-browser credentials for the OAuth handshake and the API calls that follow it.
//
// # Contract
//
// A [Session] is a per-request view keyed by name. Reads of a missing key are not errors: they report
// absence through the boolean result. [Session.Delete] is idempotent. [Session.Take] reads and removes a
// value as one step and is how the handshake consumes its anti-forgery state. [Session.Renew] is called
// once a handshake succeeds, so an identifier planted in the browser beforehand never carries credentials.
//
// # Substrates
//
// [CookieStore] keeps every value in its own sealed cookie, so the session travels entirely with the
// request/response cycle. [ServerStore] keeps only an identifier in the browser and delegates values to a
// [Backend]: [MemoryBackend], the sqlite repository in internal/repositories, or [RedisBackend]. Callers
// never see the difference.
package session

import (
	"context"
	"net/http"
	"time"
)

// Well-known keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyTokenExpiry  = "token_expiry"
	KeyAuthState    = "auth_state"
)

// CredentialKeys are the keys written by a successful handshake.
var CredentialKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry}

// Keys lists every key a session may hold.
var Keys = []string{KeyAuthState, KeyAccessToken, KeyRefreshToken, KeyTokenExpiry}

// Options controls how long a stored value lives.
type Options struct {
	// MaxAge bounds the value's lifetime. Zero sets no explicit expiry.
	MaxAge time.Duration
}

// Session is the per-request view of one browser's stored values.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string, opts Options) error
	Delete(ctx context.Context, key string) error
	Take(ctx context.Context, key string) (string, bool, error)
	// Renew moves the session to a fresh identity before it is granted credentials. Values held under the
	// previous identity are discarded.
	Renew(ctx context.Context) error
}

// Store opens the [Session] that belongs to a request.
//
// Writes made through the returned session are attached to w, so they must happen before the response
// header is written.
type Store interface {
	Open(w http.ResponseWriter, r *http.Request) Session
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by [Middleware].
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}

// Middleware opens a session for every request and makes it available through [FromContext].
func Middleware(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := store.Open(w, r)
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
		})
	}
}

// CookieOptions are the attributes shared by every cookie a store writes.
type CookieOptions struct {
	Path   string
	Domain string
	Secure bool
}

func (o CookieOptions) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	path := o.Path
	if path == "" {
		path = "/"
	}

	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   o.Domain,
		Secure:   o.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	}
	return c
}

func (o CookieOptions) expired(name string) *http.Cookie {
	c := o.cookie(name, "", 0)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}
