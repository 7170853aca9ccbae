package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

// Transport actions accepted by [Playback.SetTransportState].
const (
	ActionPause  = "pause"
	ActionResume = "resume"
)

// Playback controls the player on one of the user's devices.
type Playback struct {
	caller Caller
}

// NewPlayback creates a new [Playback] issuing calls through caller.
func NewPlayback(caller Caller) *Playback {
	return &Playback{caller: caller}
}

type playRequest struct {
	DeviceID string   `json:"device_id"`
	URIs     []string `json:"uris"`
}

type transportRequest struct {
	DeviceID string `json:"device_id"`
}

func withDevice(path, deviceID string) string {
	if deviceID == "" {
		return path
	}
	return path + "?" + url.Values{"device_id": {deviceID}}.Encode()
}

// Play starts playback of uris on deviceID.
func (p *Playback) Play(ctx context.Context, sess session.Session, deviceID string, uris []string) error {
	if _, err := accessToken(ctx, sess); err != nil {
		return err
	}
	if deviceID == "" || len(uris) == 0 {
		return fmt.Errorf("%w: missing device_id or uris", shared.ErrInvalidRequest)
	}

	body := playRequest{DeviceID: deviceID, URIs: uris}
	return p.caller.Call(ctx, sess, http.MethodPut, withDevice("/me/player/play", deviceID), body, nil)
}

// SetTransportState pauses or resumes playback. deviceID is optional.
func (p *Playback) SetTransportState(ctx context.Context, sess session.Session, action, deviceID string) error {
	if _, err := accessToken(ctx, sess); err != nil {
		return err
	}

	var path string
	switch action {
	case ActionPause:
		path = "/me/player/pause"
	case ActionResume:
		path = "/me/player/play"
	default:
		return fmt.Errorf("%w: action must be %q or %q", shared.ErrInvalidRequest, ActionPause, ActionResume)
	}

	var body any
	if deviceID != "" {
		body = transportRequest{DeviceID: deviceID}
	}
	return p.caller.Call(ctx, sess, http.MethodPut, withDevice(path, deviceID), body, nil)
}
