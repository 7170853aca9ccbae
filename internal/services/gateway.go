// Gateway for making authenticated HTTP requests to the Spotify Web API
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

const (
	// SpotifyAPIURL is the default base URL for Web API calls.
	SpotifyAPIURL = "https://api.spotify.com/v1"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// Gateway performs authenticated Web API calls for a session.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

var _ Caller = (*Gateway)(nil)

// GatewayOption configures a [Gateway].
type GatewayOption func(*Gateway)

// WithHTTPClient replaces the default client, which only sets a timeout.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithRateLimit throttles outbound calls to perSecond, with a burst of one. Non-positive values disable it.
func WithRateLimit(perSecond float64) GatewayOption {
	return func(g *Gateway) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			g.limiter = nil
		}
	}
}

// WithLogger sets the logger used for per-call debug output.
func WithLogger(logger *log.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a new [Gateway] rooted at baseURL.
func NewGateway(baseURL string, opts ...GatewayOption) *Gateway {
	if baseURL == "" {
		baseURL = SpotifyAPIURL
	}

	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call performs method on path with the session's bearer token.
//
// A non-nil body is sent as JSON. When out is non-nil a JSON response is decoded into it; empty and 204
// responses leave it untouched.
func (g *Gateway) Call(ctx context.Context, sess session.Session, method, path string, body, out any) error {
	token, err := accessToken(ctx, sess)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", shared.ErrTransport, err)
		}
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	g.logger.Debug("upstream call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", shared.ErrTransport, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", shared.ErrTransport, err)
	}
	return nil
}

// upstreamError reads Spotify's error object, falling back to the status text.
func upstreamError(resp *http.Response) error {
	upstream := &shared.UpstreamError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		var payload spotifyError
		if json.Unmarshal(data, &payload) == nil && payload.Error.Message != "" {
			upstream.Message = payload.Error.Message
		}
	}

	if upstream.Message == "" {
		upstream.Message = http.StatusText(resp.StatusCode)
	}
	return upstream
}
