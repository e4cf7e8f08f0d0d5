package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/shared"
)

// tokenServer returns an OAuth2 config whose token endpoint issues a fixed token for code "good".
func tokenServer(t *testing.T) *oauth2.Config {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(ts.Close)

	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:3000/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: ts.URL + "/authorize", TokenURL: ts.URL + "/token"},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("exchanges code", func(t *testing.T) {
		h := NewOAuthHandler(tokenServer(t), "state123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "Spotify connected") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token.AccessToken != "access" || result.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", result.Token)
		}
	})

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"bad state", "state=other&code=good", http.StatusBadRequest},
		{"denied", "state=state123&error=access_denied&error_description=no", http.StatusBadRequest},
		{"exchange fails", "state=state123&code=bad", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(tokenServer(t), "state123")

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}

			result := <-h.Result()
			if !errors.Is(result.Error(), shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", result.Error())
			}
		})
	}

	t.Run("only one callback", func(t *testing.T) {
		h := NewOAuthHandler(tokenServer(t), "state123")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})

	t.Run("routes follow redirect url", func(t *testing.T) {
		tests := []struct {
			redirect string
			want     string
		}{
			{"http://127.0.0.1:3000/callback", "/callback"},
			{"http://localhost:8888/auth/spotify", "/auth/spotify"},
			{"http://localhost:8888", "/callback"},
			{"", "/callback"},
		}

		for _, tt := range tests {
			h := NewOAuthHandler(&oauth2.Config{RedirectURL: tt.redirect}, "s")
			if got := h.Routes(); len(got) != 1 || got[0] != tt.want {
				t.Errorf("Routes() for %q = %v, want [%s]", tt.redirect, got, tt.want)
			}
		}
	})
}

func TestCallbackServer(t *testing.T) {
	t.Run("delivers token", func(t *testing.T) {
		h := NewOAuthHandler(tokenServer(t), "state123")
		srv := NewCallbackServer("127.0.0.1:0", h, log.New(io.Discard))
		if err := srv.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		go func() {
			resp, err := http.Get(fmt.Sprintf("http://%s/callback?state=state123&code=good", srv.Addr()))
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("expected token, got %v", err)
		}
		if token.AccessToken != "access" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("only GET reaches the handler", func(t *testing.T) {
		h := NewOAuthHandler(tokenServer(t), "state123")
		srv := NewCallbackServer("127.0.0.1:0", h, log.New(io.Discard))

		rec := httptest.NewRecorder()
		srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/callback?state=state123&code=good", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for POST, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected GET to be processed after a rejected POST, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Token == nil || result.Token.AccessToken != "access" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("times out", func(t *testing.T) {
		h := NewOAuthHandler(tokenServer(t), "state123")
		srv := NewCallbackServer("127.0.0.1:0", h, log.New(io.Discard))
		if err := srv.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		if _, err := srv.Wait(context.Background(), 10*time.Millisecond); !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("port in use", func(t *testing.T) {
		first := NewCallbackServer("127.0.0.1:0", NewOAuthHandler(tokenServer(t), "s"), log.New(io.Discard))
		if err := first.Start(); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		t.Cleanup(func() { first.Wait(context.Background(), time.Millisecond) })

		second := NewCallbackServer(first.Addr(), NewOAuthHandler(tokenServer(t), "s"), log.New(io.Discard))
		if err := second.Start(); err == nil {
			t.Error("expected listen error on a bound port")
		}
	})
}
