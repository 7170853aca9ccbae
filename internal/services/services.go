// package services defines clients for the Spotify Web API
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

// Caller performs one authenticated call against the Spotify Web API on behalf of a session.
//
// [Gateway] is the production implementation.
type Caller interface {
	Call(ctx context.Context, sess session.Session, method, path string, body, out any) error
}

// accessToken returns the session's bearer token or [shared.ErrUnauthenticated].
func accessToken(ctx context.Context, sess session.Session) (string, error) {
	token, ok, err := sess.Get(ctx, session.KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || token == "" {
		return "", shared.ErrUnauthenticated
	}
	return token, nil
}
