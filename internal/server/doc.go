// Package server provides HTTP routing, middleware and the handlers of the Spotify session service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [ChiRouter] implements it with
// go-chi, which gives method-aware patterns such as PUT and PATCH on the same path and path parameters like
// /session/playlists/{id}/tracks.
//
// Custom handlers implement the [Handler] interface and return their [Route] definitions, keeping route
// tables next to the code that serves them.
//
// # Authorization Handshake
//
// [AuthHandler] implements the OAuth2 authorization code flow against Spotify's accounts service:
//
//	GET  /auth/login    → store a fresh state in the session, redirect to the consent page
//	GET  /auth/callback → consume the state, exchange the code, store the tokens, redirect to the app
//	POST /auth/logout   → forget the tokens
//	POST /auth/refresh  → trade the refresh token for a new access token
//
// The callback consumes the stored state with [session.Session.Take] before validating anything, so the
// state is gone after any callback and a replayed callback is rejected. Handshake failures never produce an
// error page: the browser is redirected to the entry view with ?error=<code>, and for token endpoint
// rejections also error_description.
//
// # Session API
//
// [SessionHandler] serves the signed-in user's profile, playlists, playlist tracks and playback controls as
// JSON. Missing credentials answer 401 and invalid input 400. Data reads report upstream failures as 500,
// while playback mirrors the upstream status so that, for example, a missing device surfaces as 404.
//
// # Middleware
//
// [New] installs chi's request id and panic recovery, [RequestLogger], and [session.Middleware], which opens
// the request's session for every handler.
package server
