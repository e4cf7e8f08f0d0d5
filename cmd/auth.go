package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and saves the exchanged token to the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.cfg().Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(), services.WithSpotifyHTTPClient(r.httpClient))
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(ctx, svc, "authorization")
	if err != nil {
		return err
	}
	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: mixtape spotify playlists\n")
	return nil
}

// callbackAddr derives the listen address from the redirect URI, falling back to the server config.
func (r *Runner) callbackAddr(oauthConfig *oauth2.Config) string {
	if u, err := url.Parse(oauthConfig.RedirectURL); err == nil && u.Host != "" {
		if _, _, err := net.SplitHostPort(u.Host); err == nil {
			return u.Host
		}
	}
	srv := r.cfg().Server
	return net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port))
}

// doOAuth executes the OAuth2 authorization flow with a local callback server.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthConfig := oauthSrv.GetOAuthConfig()
	handler := server.NewOAuthHandler(oauthConfig, state)
	callback := server.NewCallbackServer(r.callbackAddr(oauthConfig), handler, r.logger)
	if err := callback.Start(); err != nil {
		return nil, err
	}
	r.logger.Infof("started OAuth server for %s at %v", prefix, callback.Addr())

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)
	token, err := callback.Wait(ctx, authTimeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

// handleSpotifyAuthError reauthorizes when err means the stored token can no longer be used.
//
// Returns true when reauthorization ran; the caller should then retry its operation.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error) (bool, error) {
	if err == nil || !services.IsAuthError(err) {
		return false, err
	}

	oauthSrv, ok := r.spotify.(services.OAuthService)
	if !ok {
		return true, errors.New("spotify service does not support reauthorization")
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...\n")

	token, err := r.doOAuth(ctx, oauthSrv, "reauthorization")
	if err != nil {
		return true, fmt.Errorf("reauthorization failed: %w", err)
	}
	if err := r.saveTokens(token); err != nil {
		return true, err
	}
	if err := oauthSrv.OAuthenticate(ctx, token); err != nil {
		return true, fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	r.writePlainln("✓ Successfully reauthenticated. Retrying operation...\n")
	return true, nil
}

// withReauth runs fn, reauthorizing once and retrying when Spotify rejects the token.
func (r *Runner) withReauth(ctx context.Context, fn func() error) error {
	err := fn()
	reauthed, authErr := r.handleSpotifyAuthError(ctx, err)
	if !reauthed {
		return err
	}
	if authErr != nil {
		return authErr
	}
	return fn()
}
