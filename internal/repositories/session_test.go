package repositories

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Get missing", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		value, ok, err := repo.Get(ctx, "sid", session.KeyAccessToken)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected absent value, got %q (ok=%v)", value, ok)
		}
	})

	t.Run("Set and Get", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Set(ctx, "sid", session.KeyAccessToken, "AT1", 0); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}

		value, ok, err := repo.Get(ctx, "sid", session.KeyAccessToken)
		if err != nil {
			t.Fatalf("failed to get value: %v", err)
		}
		if !ok || value != "AT1" {
			t.Errorf("expected AT1, got %q (ok=%v)", value, ok)
		}

		if _, ok, _ := repo.Get(ctx, "other", session.KeyAccessToken); ok {
			t.Error("value should not leak into another session")
		}
	})

	t.Run("Set overwrites", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Set(ctx, "sid", session.KeyAccessToken, "AT1", time.Minute); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}
		if err := repo.Set(ctx, "sid", session.KeyAccessToken, "AT2", 0); err != nil {
			t.Fatalf("failed to overwrite value: %v", err)
		}

		value, _, _ := repo.Get(ctx, "sid", session.KeyAccessToken)
		if value != "AT2" {
			t.Errorf("expected AT2, got %q", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Set(ctx, "sid", session.KeyRefreshToken, "RT1", 0); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}
		for range 2 {
			if err := repo.Delete(ctx, "sid", session.KeyRefreshToken); err != nil {
				t.Fatalf("delete should be idempotent: %v", err)
			}
		}

		if _, ok, _ := repo.Get(ctx, "sid", session.KeyRefreshToken); ok {
			t.Error("value should be gone after delete")
		}
	})

	t.Run("Take", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Set(ctx, "sid", session.KeyAuthState, "state-1", time.Minute); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}

		value, ok, err := repo.Take(ctx, "sid", session.KeyAuthState)
		if err != nil {
			t.Fatalf("failed to take value: %v", err)
		}
		if !ok || value != "state-1" {
			t.Errorf("expected state-1, got %q (ok=%v)", value, ok)
		}

		if _, ok, _ := repo.Take(ctx, "sid", session.KeyAuthState); ok {
			t.Error("second take should find nothing")
		}
	})

	t.Run("Take is exclusive", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))

		if err := repo.Set(ctx, "sid", session.KeyAuthState, "state-1", 0); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}

		var winners atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok, err := repo.Take(ctx, "sid", session.KeyAuthState); err == nil && ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := winners.Load(); got != 1 {
			t.Errorf("expected exactly one winner, got %d", got)
		}
	})

	t.Run("Expiry", func(t *testing.T) {
		repo := NewSessionRepository(setupTestDB(t))
		now := time.Now()
		repo.now = func() time.Time { return now }

		if err := repo.Set(ctx, "sid", session.KeyAuthState, "state-1", time.Minute); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}
		if err := repo.Set(ctx, "sid", session.KeyAccessToken, "AT1", 0); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}

		repo.now = func() time.Time { return now.Add(time.Minute) }

		if _, ok, _ := repo.Get(ctx, "sid", session.KeyAuthState); ok {
			t.Error("expired value should be absent")
		}
		if _, ok, _ := repo.Take(ctx, "sid", session.KeyAuthState); ok {
			t.Error("expired value should not be taken")
		}

		if err := repo.Set(ctx, "sid", session.KeyAuthState, "state-2", time.Second); err != nil {
			t.Fatalf("failed to set value: %v", err)
		}
		repo.now = func() time.Time { return now.Add(time.Hour) }

		purged, err := repo.PurgeExpired(ctx)
		if err != nil {
			t.Fatalf("failed to purge: %v", err)
		}
		if purged != 1 {
			t.Errorf("expected 1 purged value, got %d", purged)
		}

		if _, ok, _ := repo.Get(ctx, "sid", session.KeyAccessToken); !ok {
			t.Error("values without expiry should survive a purge")
		}
	})
}

func TestSessionRepositoryWithServerStore(t *testing.T) {
	ctx := context.Background()
	store := session.NewServerStore(NewSessionRepository(setupTestDB(t)), session.CookieOptions{})

	rec := httptest.NewRecorder()
	sess := store.Open(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if err := sess.Put(ctx, session.KeyAuthState, "state-1", session.Options{MaxAge: time.Minute}); err != nil {
		t.Fatalf("failed to put value: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != session.DefaultIDCookie {
		t.Fatalf("expected a single %s cookie, got %v", session.DefaultIDCookie, cookies)
	}

	next := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	next.AddCookie(cookies[0])
	sess = store.Open(httptest.NewRecorder(), next)

	value, ok, err := sess.Take(ctx, session.KeyAuthState)
	if err != nil {
		t.Fatalf("failed to take value: %v", err)
	}
	if !ok || value != "state-1" {
		t.Errorf("expected state-1, got %q (ok=%v)", value, ok)
	}
}
