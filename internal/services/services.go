package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/models"
)

// Service defines the interface for playlist catalogs that mixes are read from and published to.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist exports a playlist with all its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// ImportPlaylist creates a new playlist and populates it with the provided tracks.
	ImportPlaylist(ctx context.Context, playlist *models.PlaylistExport) (*models.Playlist, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends [Service] for providers using the OAuth2 authorization code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the consent page URL carrying the given state.
	GetAuthURL(state string) string

	// GetOAuthConfig returns the client configuration used to exchange authorization codes.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate authenticates with an existing token, refreshing it as needed.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
