package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCookieStore(t *testing.T) *CookieStore {
	t.Helper()
	codec, err := NewCodec(testSecret)
	require.NoError(t, err)
	return NewCookieStore(codec, CookieOptions{})
}

func TestCookieStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is absent, not an error", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}
		j.roundTrip(t, store, func(s Session) {
			v, ok, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, v)
		})
	})

	t.Run("put is visible in the same request and the next", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		rec := j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyAccessToken, "AT1", Options{}))

			v, ok, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "AT1", v)
		})

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, KeyAccessToken, cookies[0].Name)
		assert.NotEqual(t, "AT1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Zero(t, cookies[0].MaxAge, "credentials carry no explicit expiry")

		j.roundTrip(t, store, func(s Session) {
			v, ok, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "AT1", v)
		})
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyRefreshToken, "RT1", Options{}))
		})
		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Delete(ctx, KeyRefreshToken))
			require.NoError(t, s.Delete(ctx, KeyRefreshToken))

			_, ok, err := s.Get(ctx, KeyRefreshToken)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		assert.NotContains(t, j, KeyRefreshToken)
	})

	t.Run("take consumes the value", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyAuthState, "state-1", Options{MaxAge: time.Minute}))
		})
		require.Contains(t, j, KeyAuthState)
		assert.Equal(t, 60, j[KeyAuthState].MaxAge)

		j.roundTrip(t, store, func(s Session) {
			v, ok, err := s.Take(ctx, KeyAuthState)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "state-1", v)

			_, ok, err = s.Take(ctx, KeyAuthState)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		assert.NotContains(t, j, KeyAuthState)
	})

	t.Run("take of a missing key still clears the cookie", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		rec := j.roundTrip(t, store, func(s Session) {
			_, ok, err := s.Take(ctx, KeyAuthState)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Negative(t, cookies[0].MaxAge)
	})

	t.Run("expired value is absent even if the browser resends it", func(t *testing.T) {
		store := newCookieStore(t)
		now := time.Now()
		store.now = func() time.Time { return now }
		j := jar{}

		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyAuthState, "state-1", Options{MaxAge: time.Minute}))
		})

		store.now = func() time.Time { return now.Add(2 * time.Minute) }
		j.roundTrip(t, store, func(s Session) {
			_, ok, err := s.Get(ctx, KeyAuthState)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	})

	t.Run("forged cookie is absent", func(t *testing.T) {
		store := newCookieStore(t)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: "AT-forged"})

		s := store.Open(httptest.NewRecorder(), r)
		_, ok, err := s.Get(ctx, KeyAccessToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("value swapped between cookie names is rejected", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyRefreshToken, "RT1", Options{}))
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: KeyAccessToken, Value: j[KeyRefreshToken].Value})

		s := store.Open(httptest.NewRecorder(), r)
		_, ok, err := s.Get(ctx, KeyAccessToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("values may contain the separator", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyTokenExpiry, "2026-10-15T10:00:00Z", Options{}))
		})
		j.roundTrip(t, store, func(s Session) {
			v, ok, err := s.Get(ctx, KeyTokenExpiry)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "2026-10-15T10:00:00Z", v)
		})
	})

	t.Run("renew keeps the sealed values", func(t *testing.T) {
		store := newCookieStore(t)
		j := jar{}

		j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Put(ctx, KeyAccessToken, "AT1", Options{}))
		})
		rec := j.roundTrip(t, store, func(s Session) {
			require.NoError(t, s.Renew(ctx))
			v, ok, err := s.Get(ctx, KeyAccessToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "AT1", v)
		})
		assert.Empty(t, rec.Result().Cookies())
	})
}
