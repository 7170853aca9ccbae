package shared

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func validConfig() *Config {
	config := DefaultConfig()
	config.Credentials.Spotify.ClientID = "id"
	config.Credentials.Spotify.ClientSecret = "secret"
	return config
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spotlink.db" {
			t.Errorf("expected database path ./spotlink.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Session.Backend != BackendCookie {
			t.Errorf("expected cookie session backend, got %s", config.Session.Backend)
		}

		if config.Session.StateTTL != 10*time.Minute {
			t.Errorf("expected state ttl 10m, got %v", config.Session.StateTTL)
		}

		if config.Upstream.Timeout != 10*time.Second {
			t.Errorf("expected upstream timeout 10s, got %v", config.Upstream.Timeout)
		}

		if config.Upstream.MaxPages != 1000 {
			t.Errorf("expected max pages 1000, got %d", config.Upstream.MaxPages)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if !reflect.DeepEqual(config, DefaultConfig()) {
			t.Errorf("created config doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 8080

[session]
backend = "redis"
state_ttl = "2m"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/auth/callback"
scopes = ["user-read-email", "streaming"]
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Session.Backend != BackendRedis {
			t.Errorf("expected redis backend, got %s", config.Session.Backend)
		}

		if config.Session.StateTTL != 2*time.Minute {
			t.Errorf("expected state ttl 2m, got %v", config.Session.StateTTL)
		}

		if config.Upstream.APIURL != "https://api.spotify.com/v1" {
			t.Errorf("expected unset keys to keep defaults, got api_url %q", config.Upstream.APIURL)
		}

		want := []string{"user-read-private", "user-read-email", "streaming"}
		if got := config.Credentials.Spotify.AllScopes(); !reflect.DeepEqual(got, want) {
			t.Errorf("AllScopes() = %v, want %v", got, want)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		config := DefaultConfig()
		env := map[string]string{
			"SPOTIFY_CLIENT_ID": "env_id",
			"REDIRECT_URI":      "https://example.com/auth/callback",
		}

		config.ApplyEnv(func(k string) string { return env[k] })

		if config.Credentials.Spotify.ClientID != "env_id" {
			t.Errorf("expected client id from env, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "your_spotify_client_secret" {
			t.Errorf("expected unset env var to keep file value, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Credentials.Spotify.RedirectURI != "https://example.com/auth/callback" {
			t.Errorf("expected redirect uri from env, got %s", config.Credentials.Spotify.RedirectURI)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tt := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing client id",
			mutate:  func(c *Config) { c.Credentials.Spotify.ClientID = "" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "missing redirect uri",
			mutate:  func(c *Config) { c.Credentials.Spotify.RedirectURI = "" },
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Session.Backend = "memcached" },
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "short cookie secret",
			mutate:  func(c *Config) { c.Session.Secret = "short" },
			wantErr: ErrInvalidConfig,
		},
		{
			name: "short secret is fine for memory backend",
			mutate: func(c *Config) {
				c.Session.Backend = BackendMemory
				c.Session.Secret = ""
			},
		},
		{
			name: "redis without addr",
			mutate: func(c *Config) {
				c.Session.Backend = BackendRedis
				c.Redis.Addr = ""
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative max pages",
			mutate:  func(c *Config) { c.Upstream.MaxPages = -1 },
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			config := validConfig()
			tc.mutate(config)

			err := config.Validate()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
