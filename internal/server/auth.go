package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

const defaultStateTTL = 10 * time.Minute

// NewOAuthConfig builds the authorization code client for Spotify's accounts service.
//
// Client credentials travel in the Authorization header, as the token endpoint expects.
func NewOAuthConfig(creds shared.SpotifyConfig, upstream shared.UpstreamConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.AllScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   upstream.AuthURL,
			TokenURL:  upstream.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// AuthConfig configures an [AuthHandler].
type AuthConfig struct {
	OAuth       *oauth2.Config
	SuccessPath string        // where a completed handshake lands
	ErrorPath   string        // the entry view; failures carry ?error=<code>
	StateTTL    time.Duration // lifetime of the anti-forgery state
	HTTPClient  *http.Client  // client for the token endpoint
	Logger      *log.Logger
}

// AuthHandler drives the authorization code handshake and stores the resulting credentials in the session.
//
// Every failure in the handshake ends in a redirect to the entry view carrying a machine-readable code.
type AuthHandler struct {
	oauth       *oauth2.Config
	successPath string
	errorPath   string
	stateTTL    time.Duration
	client      *http.Client
	logger      *log.Logger
}

// NewAuthHandler creates a new [AuthHandler].
func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	h := &AuthHandler{
		oauth:       cfg.OAuth,
		successPath: cfg.SuccessPath,
		errorPath:   cfg.ErrorPath,
		stateTTL:    cfg.StateTTL,
		client:      cfg.HTTPClient,
		logger:      cfg.Logger,
	}
	if h.successPath == "" {
		h.successPath = "/dashboard"
	}
	if h.errorPath == "" {
		h.errorPath = "/"
	}
	if h.stateTTL <= 0 {
		h.stateTTL = defaultStateTTL
	}
	if h.logger == nil {
		h.logger = log.Default()
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/auth/login", Handler: h.Login},
		{Method: http.MethodGet, Pattern: "/auth/callback", Handler: h.Callback},
		{Method: http.MethodPost, Pattern: "/auth/logout", Handler: h.Logout},
		{Method: http.MethodPost, Pattern: "/auth/refresh", Handler: h.Refresh},
	}
}

// tokenContext makes the oauth2 package use the configured client.
func (h *AuthHandler) tokenContext(ctx context.Context) context.Context {
	if h.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, h.client)
}

// fail redirects to the entry view with the error's code.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	q := url.Values{"error": {shared.RedirectCode(err)}}

	var tokenErr *shared.UpstreamTokenError
	if errors.As(err, &tokenErr) && tokenErr.Description != "" {
		q.Set("error_description", tokenErr.Description)
	}

	h.logger.Warn("authorization failed", "err", err)
	http.Redirect(w, r, h.errorPath+"?"+q.Encode(), http.StatusFound)
}

// Login starts a handshake: it stores a fresh state and redirects to Spotify's consent page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts := session.Options{MaxAge: h.stateTTL}
	if err := sess.Put(r.Context(), session.KeyAuthState, state, opts); err != nil {
		h.fail(w, r, fmt.Errorf("failed to store state: %w", err))
		return
	}

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback completes a handshake.
//
// The stored state is consumed before anything else, so it is gone whether the callback succeeds or fails
// and a replayed callback always sees a mismatch. An upstream error is only reported once the state matches.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	expected, found, err := sess.Take(ctx, session.KeyAuthState)
	if err != nil {
		h.fail(w, r, fmt.Errorf("failed to read state: %w", err))
		return
	}

	state := query.Get("state")
	if !found || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.fail(w, r, shared.ErrStateMismatch)
		return
	}

	if code := query.Get("error"); code != "" {
		h.fail(w, r, &shared.UpstreamTokenError{Code: code, Description: query.Get("error_description")})
		return
	}

	code := query.Get("code")
	if code == "" {
		h.fail(w, r, fmt.Errorf("%w: missing authorization code", shared.ErrInvalidRequest))
		return
	}

	token, err := h.oauth.Exchange(h.tokenContext(ctx), code)
	if err != nil {
		h.fail(w, r, tokenError(err))
		return
	}

	if err := sess.Renew(ctx); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := storeToken(ctx, sess, token); err != nil {
		h.fail(w, r, err)
		return
	}

	http.Redirect(w, r, h.successPath, http.StatusFound)
}

// Logout forgets the session's credentials and returns to the entry view.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	for _, key := range session.Keys {
		if err := sess.Delete(r.Context(), key); err != nil {
			h.logger.Error("failed to clear session", "key", key, "err", err)
		}
	}

	http.Redirect(w, r, h.errorPath, http.StatusFound)
}

// Refresh trades the stored refresh token for a new access token. It is only ever called explicitly.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "failed to refresh token", false)
		return
	}

	ctx := r.Context()
	refresh, ok, err := sess.Get(ctx, session.KeyRefreshToken)
	if err != nil {
		respondError(w, h.logger, err, "failed to refresh token", false)
		return
	}
	if !ok || refresh == "" {
		writeError(w, http.StatusUnauthorized, shared.ErrNoRefreshToken.Error())
		return
	}

	token, err := h.oauth.TokenSource(h.tokenContext(ctx), &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		err = tokenError(err)
		var tokenErr *shared.UpstreamTokenError
		if errors.As(err, &tokenErr) {
			writeError(w, http.StatusUnauthorized, tokenErr.Error())
			return
		}
		respondError(w, h.logger, err, "failed to refresh token", false)
		return
	}

	if err := storeToken(ctx, sess, token); err != nil {
		respondError(w, h.logger, err, "failed to refresh token", false)
		return
	}

	resp := successResponse{Success: true}
	if !token.Expiry.IsZero() {
		resp.ExpiresAt = token.Expiry.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// tokenError classifies a failure from the token endpoint.
func tokenError(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.ErrorCode != "" {
		return &shared.UpstreamTokenError{Code: retrieve.ErrorCode, Description: retrieve.ErrorDescription}
	}
	return fmt.Errorf("%w: token request: %w", shared.ErrTransport, err)
}

// storeToken persists the credentials of a token response. A missing refresh token leaves the stored one.
func storeToken(ctx context.Context, sess session.Session, token *oauth2.Token) error {
	if token.AccessToken == "" {
		return fmt.Errorf("%w: token response without access_token", shared.ErrTransport)
	}

	values := []struct{ key, value string }{
		{session.KeyAccessToken, token.AccessToken},
		{session.KeyRefreshToken, token.RefreshToken},
	}
	if !token.Expiry.IsZero() {
		values = append(values, struct{ key, value string }{session.KeyTokenExpiry, token.Expiry.UTC().Format(time.RFC3339)})
	}

	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := sess.Put(ctx, v.key, v.value, session.Options{}); err != nil {
			return fmt.Errorf("failed to store %s: %w", v.key, err)
		}
	}
	return nil
}
