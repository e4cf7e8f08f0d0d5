package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/mixer"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Cache       CacheConfig       `toml:"cache"`
	Mix         MixConfig         `toml:"mix"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last issued token.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
	TokenType    string `toml:"token_type,omitempty"`
	Expiry       string `toml:"expiry,omitempty"` // RFC 3339
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CacheConfig controls how long fetched source playlists are reused.
type CacheConfig struct {
	TTL string `toml:"ttl"` // Go duration, empty or "0" never expires
}

// MixConfig holds the defaults applied to every mix unless overridden by flags.
type MixConfig struct {
	TotalSongs          int     `toml:"total_songs"`
	TargetMinutes       int     `toml:"target_minutes"`
	Strategy            string  `toml:"strategy"`
	RecencyBoost        bool    `toml:"recency_boost"`
	ShuffleWithinGroups bool    `toml:"shuffle_within_groups"`
	ContinueWhenEmpty   bool    `toml:"continue_when_empty"`
	Min                 int     `toml:"min"`
	Max                 int     `toml:"max"`
	WeightType          string  `toml:"weight_type"`
	FetchWorkers        int     `toml:"fetch_workers"`
	FetchRate           float64 `toml:"fetch_rate"` // requests per second
}

// Map returns the credential map expected by [services.NewSpotifyService].
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// Token returns the stored OAuth2 token, or nil when none has been saved.
func (c SpotifyConfig) Token() *oauth2.Token {
	if c.AccessToken == "" && c.RefreshToken == "" {
		return nil
	}

	tok := &oauth2.Token{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken, TokenType: c.TokenType}
	if c.Expiry != "" {
		if ts, err := time.Parse(time.RFC3339, c.Expiry); err == nil {
			tok.Expiry = ts
		}
	}
	return tok
}

// Update stores the given token in the config.
func (c *SpotifyConfig) Update(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: token has no access token", ErrInvalidCredentials)
	}

	c.AccessToken = tok.AccessToken
	c.TokenType = tok.TokenType
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.Expiry = ""
	if !tok.Expiry.IsZero() {
		c.Expiry = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

// MaxAge parses the cache TTL.
func (c CacheConfig) MaxAge() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("%w: cache ttl %q: %v", ErrInvalidConfig, c.TTL, err)
	}
	return d, nil
}

// Options converts the defaults into mixer options. A positive TargetMinutes selects time mode.
func (c MixConfig) Options() (*mixer.Options, error) {
	strategy, err := mixer.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &mixer.Options{
		TotalSongs:                c.TotalSongs,
		TargetDuration:            time.Duration(c.TargetMinutes) * time.Minute,
		UseTimeLimit:              c.TargetMinutes > 0,
		Strategy:                  strategy,
		RecencyBoost:              c.RecencyBoost,
		ShuffleWithinGroups:       c.ShuffleWithinGroups,
		ContinueWhenPlaylistEmpty: c.ContinueWhenEmpty,
	}, nil
}

// Ratio returns the default ratio for a source with the given weight.
func (c MixConfig) Ratio(weight float64) (mixer.RatioConfig, error) {
	wt, err := mixer.ParseWeightType(c.WeightType)
	if err != nil {
		return mixer.RatioConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return mixer.RatioConfig{Min: c.Min, Max: c.Max, Weight: weight, WeightType: wt}, nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// SaveConfig writes the config to path atomically.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
