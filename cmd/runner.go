package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// playlistCache is the source cache as used by the CLI: the engine's read-through cache plus maintenance.
type playlistCache interface {
	tasks.PlaylistCache
	List(service string) ([]*models.PersistedPlaylist, error)
	CachedTracks(playlist *models.PersistedPlaylist) (int, error)
	Invalidate(service, playlistID string) error
	Clear(service string) (int, error)
}

var _ playlistCache = (*repositories.PlaylistCacheAdapter)(nil)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services, the cache and the engine are created on first use so commands like setup never touch the network or database.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Service
	files      services.Service
	cache      playlistCache
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.PlaylistEngine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Service
	Files      services.Service
	Cache      playlistCache
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Files == nil {
		opts.Files = services.NewFileService(".")
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		files:      opts.Files,
		cache:      opts.Cache,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, spotifyCommand, mixCommand, cacheCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config and applies the log level.
//
// A missing config file falls back to the embedded defaults.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.IsSet("config") || r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.config != nil {
		return ctx, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// Close releases the cache database, if one was opened.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// spotifyService returns the Spotify catalog, creating it from the stored credentials and token.
func (r *Runner) spotifyService(ctx context.Context) (services.Service, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	creds := r.cfg().Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map(),
		services.WithSpotifyHTTPClient(r.httpClient),
		services.WithSpotifyLogger(shared.WithLogger(r.logger, "service", "spotify")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	svc.SetTokenRefreshCallback(func(tok *oauth2.Token) {
		if err := r.saveTokens(tok); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})

	tok := creds.Token()
	if tok == nil {
		return nil, fmt.Errorf("%w: run 'mixtape auth' first", shared.ErrNotAuthenticated)
	}
	if err := svc.OAuthenticate(ctx, tok); err != nil {
		return nil, err
	}

	r.spotify = svc
	return svc, nil
}

// playlistCache opens the configured database, running pending migrations.
func (r *Runner) playlistCache() (playlistCache, error) {
	if r.cache != nil {
		return r.cache, nil
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	r.db = db
	r.cache = repositories.NewPlaylistCacheAdapter(db)
	return r.cache, nil
}

// mixEngine returns the engine, wiring the cache when it can be opened.
//
// An unavailable cache or Spotify catalog is logged and the engine is built without it.
func (r *Runner) mixEngine(ctx context.Context) *tasks.PlaylistEngine {
	if r.engine != nil {
		return r.engine
	}

	mix := r.cfg().Mix
	opts := []tasks.EngineOption{
		tasks.WithLogger(shared.WithLogger(r.logger, "component", "engine")),
		tasks.WithFetchLimits(mix.FetchWorkers, mix.FetchRate),
	}

	spotify, err := r.spotifyService(ctx)
	if err != nil {
		r.logger.Debug("spotify unavailable, only local sources can be mixed", "error", err)
		opts = append(opts, tasks.WithSpotifyUnavailable(err))
	}
	if cache, err := r.playlistCache(); err != nil {
		r.logger.Warn("source cache unavailable", "error", err)
	} else {
		opts = append(opts, tasks.WithCache(cache))
	}

	r.engine = tasks.NewPlaylistEngine(spotify, r.files, opts...)
	return r.engine
}

// saveTokens stores tok in the config and writes it to the config path, when one is set.
func (r *Runner) saveTokens(tok *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if err := r.config.Credentials.Spotify.Update(tok); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
