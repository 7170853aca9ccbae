package session

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CookieStore carries each session value in its own sealed cookie.
//
// There is no server-side state. Consequently [Session.Take] cannot be atomic across two requests racing
// with the same cookie jar; use a [ServerStore] when that matters.
type CookieStore struct {
	codec   *Codec
	options CookieOptions
	now     func() time.Time
}

// NewCookieStore creates a [CookieStore] sealing values with codec.
func NewCookieStore(codec *Codec, options CookieOptions) *CookieStore {
	return &CookieStore{codec: codec, options: options, now: time.Now}
}

// Open implements [Store].
func (s *CookieStore) Open(w http.ResponseWriter, r *http.Request) Session {
	return &cookieSession{store: s, w: w, r: r, pending: make(map[string]*string)}
}

type cookieSession struct {
	store *CookieStore
	w     http.ResponseWriter
	r     *http.Request

	mu      sync.Mutex
	pending map[string]*string // writes made during this request; nil means deleted
}

func (s *cookieSession) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

func (s *cookieSession) get(key string) (string, bool, error) {
	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	c, err := s.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}

	plaintext, err := s.store.codec.Open(key, c.Value)
	if err != nil {
		return "", false, nil
	}

	value, ok := s.store.unpack(string(plaintext))
	return value, ok, nil
}

func (s *cookieSession) Put(_ context.Context, key, value string, opts Options) error {
	var expires int64
	if opts.MaxAge > 0 {
		expires = s.store.now().Add(opts.MaxAge).Unix()
	}

	sealed, err := s.store.codec.Seal(key, []byte(strconv.FormatInt(expires, 10)+":"+value))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	http.SetCookie(s.w, s.store.options.cookie(key, sealed, opts.MaxAge))
	s.pending[key] = &value
	return nil
}

func (s *cookieSession) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delete(key)
	return nil
}

func (s *cookieSession) delete(key string) {
	http.SetCookie(s.w, s.store.options.expired(key))
	s.pending[key] = nil
}

func (s *cookieSession) Take(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok, err := s.get(key)
	s.delete(key)
	return value, ok, err
}

// Renew is a no-op. Sealed cookies carry no identifier that could be planted.
func (s *cookieSession) Renew(context.Context) error {
	return nil
}

// unpack splits "<expires>:<value>" and drops values past their expiry.
func (s *CookieStore) unpack(payload string) (string, bool) {
	prefix, value, ok := strings.Cut(payload, ":")
	if !ok {
		return "", false
	}
	expires, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return "", false
	}
	if expires > 0 && s.now().Unix() >= expires {
		return "", false
	}
	return value, true
}
