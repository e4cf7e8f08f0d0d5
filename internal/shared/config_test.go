package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/mixer"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./mixtape.db" {
			t.Errorf("expected database path ./mixtape.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Mix.TotalSongs != 50 || config.Mix.Strategy != "mixed" {
			t.Errorf("unexpected mix defaults %+v", config.Mix)
		}

		if ttl, err := config.Cache.MaxAge(); err != nil || ttl != 24*time.Hour {
			t.Errorf("expected 24h cache ttl, got %v (%v)", ttl, err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"

[mix]
strategy = "crescendo"
target_minutes = 45
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Mix.TotalSongs != 50 {
			t.Errorf("missing keys should keep defaults, got total_songs=%d", config.Mix.TotalSongs)
		}

		opts, err := config.Mix.Options()
		if err != nil {
			t.Fatalf("Options failed: %v", err)
		}
		if opts.Mode() != mixer.ModeTime || opts.TargetDuration != 45*time.Minute || opts.Strategy != mixer.StrategyCrescendo {
			t.Errorf("unexpected options %+v", opts)
		}
	})

	t.Run("LoadConfig rejects malformed toml", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[mix\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(configPath); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("SaveConfig round trips tokens", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()

		expiry := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}
		if err := config.Credentials.Spotify.Update(tok); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		got := loaded.Credentials.Spotify.Token()
		if got == nil || got.AccessToken != "access" || got.RefreshToken != "refresh" || !got.Expiry.Equal(expiry) {
			t.Errorf("unexpected token %+v", got)
		}
	})

	t.Run("Update keeps existing refresh token", func(t *testing.T) {
		sc := SpotifyConfig{RefreshToken: "old"}
		if err := sc.Update(&oauth2.Token{AccessToken: "new"}); err != nil {
			t.Fatal(err)
		}
		if sc.RefreshToken != "old" || sc.AccessToken != "new" {
			t.Errorf("unexpected config %+v", sc)
		}
		if err := sc.Update(&oauth2.Token{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("Mix ratio defaults", func(t *testing.T) {
		cfg := MixConfig{Min: 1, Max: 3, WeightType: "time"}
		ratio, err := cfg.Ratio(2)
		if err != nil {
			t.Fatal(err)
		}
		if ratio.Weight != 2 || ratio.Max != 3 || ratio.WeightType != mixer.WeightTime {
			t.Errorf("unexpected ratio %+v", ratio)
		}

		if _, err := (MixConfig{Strategy: "loud"}).Options(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Cache ttl", func(t *testing.T) {
		if d, _ := (CacheConfig{}).MaxAge(); d != 0 {
			t.Errorf("empty ttl should never expire, got %v", d)
		}
		if _, err := (CacheConfig{TTL: "soon"}).MaxAge(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
