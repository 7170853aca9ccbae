package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/spotlink/internal/services"
	"github.com/desertthunder/spotlink/internal/shared"
)

const maxBodyBytes = 1 << 20

// SessionHandler serves the signed-in user's data and playback controls.
//
// Every endpoint answers 401 when the session holds no access token.
type SessionHandler struct {
	spotify  *services.SpotifyService
	playback *services.Playback
	logger   *log.Logger
}

// NewSessionHandler creates a new [SessionHandler].
func NewSessionHandler(spotify *services.SpotifyService, playback *services.Playback, logger *log.Logger) *SessionHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionHandler{spotify: spotify, playback: playback, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *SessionHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/session/profile", Handler: h.Profile},
		{Method: http.MethodGet, Pattern: "/session/playlists", Handler: h.Playlists},
		{Method: http.MethodGet, Pattern: "/session/playlists/all", Handler: h.AllPlaylists},
		{Method: http.MethodGet, Pattern: "/session/playlists/{id}/tracks", Handler: h.PlaylistTracks},
		{Method: http.MethodPut, Pattern: "/session/playback", Handler: h.Play},
		{Method: http.MethodPatch, Pattern: "/session/playback", Handler: h.Transport},
	}
}

// collection is the body of aggregated reads.
type collection[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func newCollection[T any](items []T) collection[T] {
	if items == nil {
		items = []T{}
	}
	return collection[T]{Items: items, Total: len(items)}
}

// Profile returns the current user's profile.
func (h *SessionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch user profile", false)
		return
	}

	user, err := h.spotify.UserProfile(r.Context(), sess)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch user profile", false)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", shared.ErrInvalidRequest, name)
	}
	return n, nil
}

// Playlists returns one page of the current user's playlists.
func (h *SessionHandler) Playlists(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlists", false)
		return
	}

	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlists", false)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlists", false)
		return
	}

	page, err := h.spotify.UserPlaylists(r.Context(), sess, limit, offset)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlists", false)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AllPlaylists returns every playlist of the current user.
func (h *SessionHandler) AllPlaylists(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlists", false)
		return
	}

	playlists, err := h.spotify.AllPlaylists(r.Context(), sess)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlists", false)
		return
	}
	writeJSON(w, http.StatusOK, newCollection(playlists))
}

// PlaylistTracks returns every entry of a playlist that still has a track.
func (h *SessionHandler) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlist tracks", false)
		return
	}

	items, err := h.spotify.AllPlaylistTracks(r.Context(), sess, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to fetch playlist tracks", false)
		return
	}
	writeJSON(w, http.StatusOK, newCollection(items))
}

// PlayRequest is the body of PUT /session/playback.
type PlayRequest struct {
	DeviceID string   `json:"device_id"`
	URIs     []string `json:"uris"`
}

// TransportRequest is the body of PATCH /session/playback.
type TransportRequest struct {
	Action   string `json:"action"`
	DeviceID string `json:"device_id,omitempty"`
}

// decodeBody reads a JSON body. A malformed body decodes as the zero value, so the
// operation reports missing fields only after it has checked the session.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) T {
	var v T
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&v); err != nil {
		var zero T
		return zero
	}
	return v
}

// Play starts playback of the requested tracks on a device.
func (h *SessionHandler) Play(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to control playback", true)
		return
	}

	req := decodeBody[PlayRequest](w, r)

	if err := h.playback.Play(r.Context(), sess, req.DeviceID, req.URIs); err != nil {
		respondError(w, h.logger, err, "Failed to start playback", true)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Transport pauses or resumes playback.
func (h *SessionHandler) Transport(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to control playback", true)
		return
	}

	req := decodeBody[TransportRequest](w, r)

	if err := h.playback.SetTransportState(r.Context(), sess, req.Action, req.DeviceID); err != nil {
		respondError(w, h.logger, err, fmt.Sprintf("Failed to %s playback", req.Action), true)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
