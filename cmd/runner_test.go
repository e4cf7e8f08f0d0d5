package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

func testCache(t *testing.T) *repositories.PlaylistCacheAdapter {
	t.Helper()
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewPlaylistCacheAdapter(db)
}

func mockSpotify() *tu.MockService {
	return tu.NewMockService("Spotify",
		tu.MakeExport("A", tu.MakeTracks("a", 4)),
		tu.MakeExport("B", tu.MakeTracks("b", 4)),
	)
}

type harness struct {
	runner  *Runner
	spotify *tu.MockService
	cache   *repositories.PlaylistCacheAdapter
	output  *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{spotify: mockSpotify(), cache: testCache(t), output: &bytes.Buffer{}}
	h.runner = NewRunner(RunnerOpts{
		Config:     shared.DefaultConfig(),
		ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
		Spotify:    h.spotify,
		Cache:      h.cache,
		Logger:     shared.NewLogger(io.Discard),
		Output:     h.output,
	})
	return h
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.output.Reset()
	return newApp(h.runner).Run(context.Background(), append([]string{"mixtape"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			spotify := &tu.MockService{}
			files := &tu.MockService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Spotify:    spotify,
				Files:      files,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
			if runner.files != files {
				t.Error("expected files to be set")
			}
		})

		t.Run("with defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.files == nil {
				t.Error("expected a default file catalog")
			}
			if runner.cfg() == nil {
				t.Error("expected default config on demand")
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		newBare := func() *Runner {
			return NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		}

		t.Run("loads config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			config.Mix.TotalSongs = 12
			if err := shared.SaveConfig(path, config); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := newBare()
			err := newApp(runner).Run(context.Background(), []string{"mixtape", "--config", path, "auth"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Fatalf("expected ErrMissingCredentials, got %v", err)
			}

			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
			if runner.config == nil || runner.config.Mix.TotalSongs != 12 {
				t.Errorf("expected loaded config, got %+v", runner.config)
			}
		})

		t.Run("missing file uses defaults", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.toml")

			runner := newBare()
			if err := newApp(runner).Run(context.Background(), []string{"mixtape", "--config", path, "setup", "config"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config == nil || runner.config.Mix.TotalSongs != 50 {
				t.Error("expected default config")
			}
			tu.AssertFileExists(t, path)
		})

		t.Run("invalid file fails", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("not = [valid"), 0600); err != nil {
				t.Fatal(err)
			}

			err := newApp(newBare()).Run(context.Background(), []string{"mixtape", "--config", path, "auth"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("spotifyService", func(t *testing.T) {
		t.Run("requires credentials", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config})

			if _, err := runner.spotifyService(context.Background()); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("requires a stored token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			if _, err := runner.spotifyService(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if runner.spotify != nil {
				t.Error("expected no service to be kept")
			}
		})

		t.Run("authenticates with stored token", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.AccessToken = "stored"
			runner := NewRunner(RunnerOpts{Config: config})

			svc, err := runner.spotifyService(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Name() != "Spotify" || runner.spotify != svc {
				t.Error("expected Spotify service to be kept")
			}
		})

		t.Run("engine without spotify mixes local files", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig(), Cache: testCache(t), Logger: shared.NewLogger(io.Discard)})
			if runner.mixEngine(context.Background()) == nil {
				t.Fatal("expected an engine")
			}
		})

		t.Run("spotify sources report the missing token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config:     shared.DefaultConfig(),
				ConfigPath: filepath.Join(t.TempDir(), "config.toml"),
				Cache:      testCache(t),
				Logger:     shared.NewLogger(io.Discard),
				Output:     &bytes.Buffer{},
			})

			err := newApp(runner).Run(context.Background(), []string{"mixtape", "mix", "--source", "A", "--songs", "1"})
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if err != nil && !strings.Contains(err.Error(), "mixtape auth") {
				t.Errorf("expected a hint to run auth, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "spotify", "mix", "cache", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves tokens successfully", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			if err := shared.SaveConfig(configPath, config); err != nil {
				t.Fatalf("failed to create test config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})
			token := &oauth2.Token{AccessToken: "new_access_token", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.Spotify.AccessToken != "new_access_token" {
				t.Errorf("expected access token to be updated, got %s", loaded.Credentials.Spotify.AccessToken)
			}
			if loaded.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be updated, got %s", loaded.Credentials.Spotify.RefreshToken)
			}
		})

		t.Run("handles nil config error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/tmp/test.toml"})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("handles empty configPath", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "new_token"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if config.Credentials.Spotify.AccessToken != "new_token" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("handles SaveConfig failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config:     shared.DefaultConfig(),
				ConfigPath: filepath.Join(t.TempDir(), "missing", "config.toml"),
			})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})

		t.Run("handles Update error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens(nil)
			if !errors.Is(err, shared.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
			if !strings.Contains(err.Error(), "failed to update spotify configuration") {
				t.Errorf("expected update error, got %v", err)
			}
		})
	})

	t.Run("handleSpotifyAuthError", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Spotify: &tu.MockService{}})

		if reauthed, err := runner.handleSpotifyAuthError(context.Background(), nil); reauthed || err != nil {
			t.Errorf("expected no-op for nil error, got %v %v", reauthed, err)
		}

		other := errors.New("boom")
		if reauthed, err := runner.handleSpotifyAuthError(context.Background(), other); reauthed || err != other {
			t.Errorf("expected passthrough, got %v %v", reauthed, err)
		}

		reauthed, err := runner.handleSpotifyAuthError(context.Background(), shared.ErrTokenExpired)
		if !reauthed || err == nil {
			t.Errorf("expected failed reauth for non-OAuth service, got %v %v", reauthed, err)
		}
	})
}

func TestMixCommand(t *testing.T) {
	t.Run("prints csv", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "mix", "--source", "A", "--source", "B", "--songs", "6", "--format", "csv", "--seed", "3"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(h.output.String())).ReadAll()
		if err != nil {
			t.Fatalf("expected CSV output: %v", err)
		}
		if len(records) != 7 {
			t.Fatalf("expected header and 6 rows, got %d", len(records))
		}
		if len(h.spotify.Imported()) != 0 {
			t.Error("expected nothing saved without --save")
		}
	})

	t.Run("second run is served from cache", func(t *testing.T) {
		h := newHarness(t)
		for range 2 {
			if err := h.run(t, "mix", "-s", "A", "-s", "B", "-n", "4"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if got := len(h.spotify.Exported()); got != 2 {
			t.Errorf("expected 2 catalog fetches, got %d", got)
		}

		if err := h.run(t, "mix", "-s", "A", "-s", "B", "-n", "4", "--no-cache"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := len(h.spotify.Exported()); got != 4 {
			t.Errorf("expected --no-cache to refetch, got %d fetches", got)
		}
	})

	t.Run("json output", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "mix", "-s", "A", "-s", "B", "--all", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var run tasks.MixRunResult
		if err := json.Unmarshal(h.output.Bytes(), &run); err != nil {
			t.Fatalf("expected JSON output: %v", err)
		}
		if run.Mix == nil || len(run.Mix.Tracks) == 0 || len(run.Sources) != 2 {
			t.Errorf("unexpected result %+v", run)
		}
	})

	t.Run("writes file and saves to spotify", func(t *testing.T) {
		h := newHarness(t)
		out := filepath.Join(t.TempDir(), "mix.md")
		if err := h.run(t, "mix", "-s", "A", "-s", "B", "-n", "4", "-f", "md", "-o", out, "--save", "Friday"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		body := tu.MustReadFile(t, out)
		if !strings.HasPrefix(body, "# Friday") || !strings.Contains(body, "## Distribution") {
			t.Errorf("unexpected markdown:\n%s", body)
		}

		imported := h.spotify.Imported()
		if len(imported) != 1 || imported[0].Playlist.Name != "Friday" || len(imported[0].Tracks) != 4 {
			t.Fatalf("expected one saved playlist of 4 tracks, got %+v", imported)
		}
		if imported[0].Playlist.Public {
			t.Error("expected a private playlist by default")
		}
		for _, want := range []string{"Mix Complete", "Distribution:", "Saved to Spotify: Friday", "ID: imported-1"} {
			if !strings.Contains(h.output.String(), want) {
				t.Errorf("output missing %q:\n%s", want, h.output.String())
			}
		}
	})

	t.Run("save failure keeps the mix", func(t *testing.T) {
		h := newHarness(t)
		h.spotify.ImportErr = errors.New("quota")

		err := h.run(t, "mix", "-s", "A", "-s", "B", "-n", "4", "--save", "Friday")
		if err == nil || !strings.Contains(err.Error(), "quota") {
			t.Errorf("expected import error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Song") {
			t.Error("expected the mix to be printed anyway")
		}
	})

	t.Run("local sources", func(t *testing.T) {
		h := newHarness(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "local.json")
		data, err := shared.MarshalJSON(tu.MakeExport("local", tu.MakeTracks("l", 3)), true)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}

		if err := h.run(t, "mix", "-s", path, "-s", "A", "-n", "4"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := h.spotify.Exported(); len(got) != 1 || got[0] != "A" {
			t.Errorf("expected only A fetched from Spotify, got %v", got)
		}
	})

	t.Run("invalid flags", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"strategy", []string{"--strategy", "loud"}, shared.ErrInvalidFlag},
			{"format", []string{"--format", "xml"}, shared.ErrInvalidFlag},
			{"songs", []string{"--songs", "0"}, shared.ErrInvalidFlag},
			{"duplicate source", []string{"-s", "A"}, shared.ErrInvalidArgument},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				args := append([]string{"mix", "-s", "A"}, tt.args...)
				if err := h.run(t, args...); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("playlists", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "spotify", "playlists", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Playlist A") {
			t.Errorf("unexpected output %s", h.output.String())
		}
	})

	t.Run("export single to stdout", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "spotify", "export", "--id", "A", "--format", "txt"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(h.output.String(), "Playlist: Playlist A") {
			t.Errorf("unexpected output %s", h.output.String())
		}
	})

	t.Run("export snapshot", func(t *testing.T) {
		h := newHarness(t)
		dir := t.TempDir()
		if err := h.run(t, "spotify", "export", "--id", "A", "--id", "B", "--dir", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "A.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "B.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "manifest.json"))
		if !strings.Contains(h.output.String(), "Successful: 2/2") {
			t.Errorf("unexpected output %s", h.output.String())
		}
	})

	t.Run("export snapshot failure", func(t *testing.T) {
		h := newHarness(t)
		err := h.run(t, "spotify", "export", "--id", "A", "--id", "missing", "--dir", t.TempDir())
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(h.output.String(), "✗ missing") {
			t.Errorf("expected failure listed, got %s", h.output.String())
		}
	})
}

func TestCacheCommands(t *testing.T) {
	h := newHarness(t)

	if err := h.run(t, "cache", "list"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(h.output.String(), "No cached playlists") {
		t.Errorf("expected empty cache, got %s", h.output.String())
	}

	for _, id := range []string{"A", "spotify:playlist:B"} {
		if err := h.run(t, "cache", "playlist", "--id", id); err != nil {
			t.Fatalf("expected no error caching %s, got %v", id, err)
		}
	}

	if err := h.run(t, "cache", "list", "--json"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var listed []map[string]any
	if err := json.Unmarshal(h.output.Bytes(), &listed); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 cached playlists, got %d", len(listed))
	}
	for _, p := range listed {
		if p["cached_tracks"] != float64(4) || p["tracks"] != float64(4) {
			t.Errorf("expected 4 of 4 tracks cached, got %v", p)
		}
	}

	if err := h.run(t, "cache", "list"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(h.output.String(), "4/4 tracks cached") {
		t.Errorf("expected cached track counts, got %s", h.output.String())
	}

	if err := h.run(t, "cache", "clear", "--id", "A"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := h.run(t, "cache", "clear"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(h.output.String(), "Removed 1 cached playlists") {
		t.Errorf("unexpected output %s", h.output.String())
	}

	if err := h.run(t, "cache", "playlist", "--id", "list.json"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for a file source, got %v", err)
	}
}

func TestSetupCommands(t *testing.T) {
	t.Run("database", func(t *testing.T) {
		h := newHarness(t)
		h.runner.config.Database.Path = filepath.Join(t.TempDir(), "mixtape.db")

		if err := h.run(t, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "✓ 0001 applied") {
			t.Errorf("expected applied migration, got %s", h.output.String())
		}

		if err := h.run(t, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "No migrations applied") {
			t.Errorf("expected rollback, got %s", h.output.String())
		}
	})

	t.Run("config", func(t *testing.T) {
		h := newHarness(t)
		if err := h.run(t, "setup", "config"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, h.runner.configPath)

		if err := h.run(t, "setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected error for existing config, got %v", err)
		}
	})
}
