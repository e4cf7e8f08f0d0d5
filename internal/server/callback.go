package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/shared"
)

// CallbackServer is the short-lived localhost server that receives one OAuth redirect.
type CallbackServer struct {
	addr    string
	handler *OAuthHandler
	logger  *log.Logger
	srv     *http.Server
	ln      net.Listener
}

// NewCallbackServer creates a server on addr that routes GET requests on the redirect path to handler.
func NewCallbackServer(addr string, handler *OAuthHandler, logger *log.Logger) *CallbackServer {
	router := NewRouter()
	router.Use(RecoverMiddleware(logger), LoggingMiddleware(logger))
	for _, route := range handler.Routes() {
		router.Handle(http.MethodGet, route, handler)
	}

	return &CallbackServer{
		addr:    addr,
		handler: handler,
		logger:  logger,
		srv:     &http.Server{Handler: router.Handler(), ReadHeaderTimeout: 10 * time.Second},
	}
}

// Start binds the listener and serves in the background.
func (c *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.addr, err)
	}
	c.ln = ln

	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("callback server failed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, which differs from the requested one when port 0 was used.
func (c *CallbackServer) Addr() string {
	if c.ln == nil {
		return c.addr
	}
	return c.ln.Addr().String()
}

// Wait blocks until the callback delivers a token, the timeout passes or ctx ends, then shuts the server down.
func (c *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.srv.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result, ok := <-c.handler.Result():
		if !ok {
			return nil, fmt.Errorf("%w: callback closed without a result", shared.ErrAuthFailed)
		}
		if err := result.Error(); err != nil {
			return nil, err
		}
		return result.Token, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: no authorization callback after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
