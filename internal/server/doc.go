// Package server provides HTTP routing, middleware, and OAuth handling for the CLI authorization flow.
//
// # Router Infrastructure
//
// [Router] registers method and path patterns on an [http.ServeMux] and wraps the whole mux in [Middleware].
// The first middleware added is the outermost.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Callback Server
//
// [CallbackServer] runs while `mixtape auth` waits for the browser redirect:
// it listens on the configured host and port, delivers the token from [CallbackServer.Wait] and shuts down.
package server
