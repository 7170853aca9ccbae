package shared

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// MinimalScopes is the fixed scope requested on every authorization.
var MinimalScopes = []string{"user-read-private", "user-read-email"}

// Config represents the application configuration loaded from a TOML file.
//
// It is loaded once at startup and treated as immutable afterwards.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Upstream    UpstreamConfig    `toml:"upstream"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// AllScopes returns the minimal scopes followed by any configured extras, without duplicates.
func (s SpotifyConfig) AllScopes() []string {
	scopes := slices.Clone(MinimalScopes)
	for _, scope := range s.Scopes {
		if scope != "" && !slices.Contains(scopes, scope) {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	SuccessPath string `toml:"success_path"`
	ErrorPath   string `toml:"error_path"`
	LogLevel    string `toml:"log_level"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionConfig selects the session substrate and its cookie settings.
type SessionConfig struct {
	Backend  string        `toml:"backend"`
	Secret   string        `toml:"secret"`
	Secure   bool          `toml:"secure"`
	StateTTL time.Duration `toml:"state_ttl"`
}

// Session backends understood by [SessionConfig.Backend].
const (
	BackendCookie = "cookie"
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains the redis session backend connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// UpstreamConfig points at the Spotify accounts and web API endpoints.
type UpstreamConfig struct {
	AuthURL   string        `toml:"auth_url"`
	TokenURL  string        `toml:"token_url"`
	APIURL    string        `toml:"api_url"`
	Timeout   time.Duration `toml:"timeout"`
	RateLimit float64       `toml:"rate_limit"`
	MaxPages  int           `toml:"max_pages"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials and the session secret with values from getenv.
//
// Empty variables are ignored. A nil getenv reads the process environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	overrides := []struct {
		name string
		dst  *string
	}{
		{"SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"REDIRECT_URI", &c.Credentials.Spotify.RedirectURI},
		{"SESSION_SECRET", &c.Session.Secret},
	}
	for _, o := range overrides {
		if v := getenv(o.name); v != "" {
			*o.dst = v
		}
	}
}

// Validate reports configuration that would prevent the server from starting.
func (c *Config) Validate() error {
	spotify := c.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
	}
	if spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrMissingCredentials)
	}

	switch c.Session.Backend {
	case BackendCookie, BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown session backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	if c.Session.Backend == BackendCookie && len(c.Session.Secret) < 32 {
		return fmt.Errorf("%w: session secret must be at least 32 characters", ErrInvalidConfig)
	}
	if c.Session.Backend == BackendSQLite && c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required for the sqlite backend", ErrInvalidConfig)
	}
	if c.Session.Backend == BackendRedis && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis addr is required for the redis backend", ErrInvalidConfig)
	}

	if c.Upstream.AuthURL == "" || c.Upstream.TokenURL == "" || c.Upstream.APIURL == "" {
		return fmt.Errorf("%w: upstream auth_url, token_url and api_url are required", ErrInvalidConfig)
	}
	if c.Upstream.MaxPages < 0 {
		return fmt.Errorf("%w: upstream max_pages must not be negative", ErrInvalidConfig)
	}

	return nil
}
