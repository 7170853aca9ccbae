// Package services talks to the Spotify Web API on behalf of a browser session.
//
// # Gateway
//
// [Gateway] is the only component that makes data or transport calls. Each [Gateway.Call] reads the session's
// access token, attaches it as a bearer credential and performs exactly one request. No token means
// [shared.ErrUnauthenticated] without touching the network. Non-2xx responses become [*shared.UpstreamError]
// carrying Spotify's status and message; connection and decoding failures wrap [shared.ErrTransport].
// Calls are never retried. An optional rate limit throttles outbound calls per process.
//
// # Library
//
// [SpotifyService] reads the profile, playlists and playlist tracks. The "All" variants walk every page with
// [pagination.CollectAll], dropping playlist entries whose track is null.
//
// # Playback
//
// [Playback] starts playback of a list of track URIs on a device and toggles pause and resume. Input is
// validated after the session check and before any upstream call.
//
// Token refresh is never automatic. An expired access token surfaces as a 401 from Spotify.
package services
