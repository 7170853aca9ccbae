package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success   bool   `json:"success"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// respondError writes err with the status chosen by [shared.StatusFor].
//
// Upstream failures keep their status only when mirror is set; otherwise they become a 500 with fallback as
// the message.
func respondError(w http.ResponseWriter, logger *log.Logger, err error, fallback string, mirror bool) {
	status := shared.StatusFor(err)
	msg := fallback

	var upstream *shared.UpstreamError
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		msg = "No access token"
	case errors.Is(err, shared.ErrInvalidRequest):
		msg = err.Error()
	case errors.As(err, &upstream) && mirror:
		msg = upstream.Message
	case errors.As(err, &upstream):
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.Error(fallback, "err", err)
	}
	writeError(w, status, msg)
}

// sessionFrom returns the session opened by [session.Middleware].
func sessionFrom(r *http.Request) (session.Session, error) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, errors.New("session middleware not installed")
	}
	return sess, nil
}
