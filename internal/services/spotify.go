// Spotify library reads on top of [Gateway]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/spotlink/internal/pagination"
	"github.com/desertthunder/spotlink/internal/session"
	"github.com/desertthunder/spotlink/internal/shared"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = pagination.PageSize
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc,omitempty"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Owner         Owner               `json:"owner"`
	Public        bool                `json:"public"`
	Collaborative bool                `json:"collaborative"`
	Tracks        simplePlaylistTrack `json:"tracks"`
	Images        []SpotifyImage      `json:"images"`
	URI           string              `json:"uri"`
}

// SpotifyPlaylistItem is one entry of a playlist. Track is nil when the track is no longer available.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	AddedBy *Owner        `json:"added_by"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// Valid reports whether the entry still refers to a track.
func (i SpotifyPlaylistItem) Valid() bool { return i.Track != nil }

// PlaylistPage is one page of the current user's playlists.
type PlaylistPage = pagination.Page[SpotifySimplePlaylist]

// PlaylistItemPage is one page of a playlist's entries.
type PlaylistItemPage = pagination.Page[SpotifyPlaylistItem]

// SpotifyService reads the signed-in user's library through a [Caller].
type SpotifyService struct {
	caller   Caller
	maxPages int
}

// NewSpotifyService creates a new [SpotifyService]. maxPages bounds every aggregated read; zero leaves it
// unbounded.
func NewSpotifyService(caller Caller, maxPages int) *SpotifyService {
	return &SpotifyService{caller: caller, maxPages: maxPages}
}

// clampLimit applies Spotify's paging bounds: default 20, at most 50.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func pagePath(path string, limit, offset int) string {
	if offset < 0 {
		offset = 0
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprint(clampLimit(limit)))
	q.Set("offset", fmt.Sprint(offset))
	return path + "?" + q.Encode()
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, sess session.Session) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.caller.Call(ctx, sess, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, sess session.Session, limit, offset int) (*PlaylistPage, error) {
	var page PlaylistPage
	if err := s.caller.Call(ctx, sess, http.MethodGet, pagePath("/me/playlists", limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllPlaylists retrieves every playlist of the current user, in upstream order.
func (s *SpotifyService) AllPlaylists(ctx context.Context, sess session.Session) ([]SpotifySimplePlaylist, error) {
	fetch := func(ctx context.Context, limit, offset int) (*PlaylistPage, error) {
		return s.UserPlaylists(ctx, sess, limit, offset)
	}
	return pagination.CollectAll(ctx, fetch, pagination.WithMaxPages(s.maxPages))
}

func playlistItemsPath(playlistID string) (string, error) {
	if playlistID == "" {
		return "", fmt.Errorf("%w: playlist id is required", shared.ErrInvalidRequest)
	}
	return "/playlists/" + url.PathEscape(playlistID) + "/tracks", nil
}

// PlaylistTracks retrieves one page of a playlist's entries, including entries whose track is null.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, sess session.Session, playlistID string, limit, offset int) (*PlaylistItemPage, error) {
	path, err := playlistItemsPath(playlistID)
	if err != nil {
		return nil, err
	}

	var page PlaylistItemPage
	if err := s.caller.Call(ctx, sess, http.MethodGet, pagePath(path, limit, offset), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllPlaylistTracks retrieves every playlist entry that still has a track.
func (s *SpotifyService) AllPlaylistTracks(ctx context.Context, sess session.Session, playlistID string) ([]SpotifyPlaylistItem, error) {
	if _, err := playlistItemsPath(playlistID); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, limit, offset int) (*PlaylistItemPage, error) {
		return s.PlaylistTracks(ctx, sess, playlistID, limit, offset)
	}
	return pagination.CollectAll(ctx, fetch, pagination.WithMaxPages(s.maxPages))
}
