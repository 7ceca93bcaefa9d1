package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floater/internal/auth"
	"github.com/desertthunder/floater/internal/services"
	"github.com/desertthunder/floater/internal/shared"
	"github.com/desertthunder/floater/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The store, token manager and API client are built on first use so that commands like setup
// work before credentials exist.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db         *sql.DB
	store      store.Store
	manager    *auth.Manager
	client     *services.SpotifyClient
	authorizer auth.Authorizer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Store and Authorizer replace the configured backend and the browser flow.
	Store      store.Store
	Authorizer auth.Authorizer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		authorizer: opts.Authorizer,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, logoutCommand, statusCommand, nowCommand,
		playCommand, pauseCommand, nextCommand, previousCommand,
		favCommand, artCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config and applies --log-level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if level := cmd.String("log-level"); level != "" {
		ll, err := log.ParseLevel(level)
		if err != nil {
			return ctx, fmt.Errorf("%w: log level %q", shared.ErrInvalidArgument, level)
		}
		shared.SetLogLevel(r.logger, ll)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
		config, err := shared.LoadOrDefault(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	if cmd.Bool("ephemeral") {
		r.config.Storage.Backend = store.BackendMemory
	}
	return ctx, nil
}

// Close releases the database handle, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// SetLogger replaces the logger for the runner and every component built after the call.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// credentialStore opens the configured refresh token backend.
func (r *Runner) credentialStore() (store.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	opts := store.Options{
		Backend: r.config.Storage.Backend,
		Path:    r.config.Storage.Path,
		Logger:  r.logger,
	}
	if strings.EqualFold(opts.Backend, store.BackendSQLite) {
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		opts.DB = db
	}

	s, err := store.New(opts)
	if err != nil {
		return nil, err
	}
	r.store = s
	return s, nil
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r.db = db
	return db, nil
}

// tokenManager builds the manager without touching the network.
func (r *Runner) tokenManager() (*auth.Manager, error) {
	if r.manager != nil {
		return r.manager, nil
	}

	creds := r.config.Credentials.Spotify
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	st, err := r.credentialStore()
	if err != nil {
		return nil, err
	}

	m, err := auth.NewManager(auth.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  creds.RedirectURI,
		AccountsURL:  r.config.Endpoints.AccountsURL,
		HTTPClient:   r.httpClient,
		Store:        st,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.manager = m
	return m, nil
}

// session returns a manager that has attempted silent re-authentication.
func (r *Runner) session(ctx context.Context) (*auth.Manager, error) {
	m, err := r.tokenManager()
	if err != nil {
		return nil, err
	}
	if m.State() == auth.StateAuthenticated {
		return m, nil
	}

	if err := m.Restore(ctx); err != nil {
		r.recordEvent("refresh_failed", err.Error())
		r.logger.Warn("stored session could not be restored", "error", err)
	}
	return m, nil
}

// player returns an API client bound to an authenticated session.
func (r *Runner) player(ctx context.Context) (*auth.Manager, *services.SpotifyClient, error) {
	m, err := r.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	if m.State() != auth.StateAuthenticated {
		return nil, nil, fmt.Errorf("%w: run 'floater login' first", shared.ErrNotAuthenticated)
	}

	if r.client == nil {
		r.client = services.NewSpotifyClient(services.ClientOpts{
			BaseURL:           r.config.Endpoints.APIURL,
			HTTPClient:        r.apiHTTPClient(),
			Tokens:            m,
			RequestsPerSecond: r.config.API.RequestsPerSecond,
			Logger:            r.logger,
		})
	}
	return m, r.client, nil
}

// apiHTTPClient shares the runner's transport with the configured API timeout.
func (r *Runner) apiHTTPClient() *http.Client {
	return &http.Client{Timeout: r.config.API.Timeout.Duration, Transport: r.httpClient.Transport}
}

func (r *Runner) authFlow() auth.Authorizer {
	if r.authorizer != nil {
		return r.authorizer
	}
	return auth.NewBrowserAuthorizer(
		r.config.Credentials.Spotify.RedirectURI,
		r.config.UI.AuthTimeout.Duration,
		r.logger,
	)
}

// eventLog is implemented by stores that keep an audit trail.
type eventLog interface {
	RecordEvent(kind, detail string) error
	RecentEvents(limit int) ([]store.Event, error)
}

func (r *Runner) recordEvent(kind, detail string) {
	events, ok := r.store.(eventLog)
	if !ok {
		return
	}
	if err := events.RecordEvent(kind, detail); err != nil {
		r.logger.Warn("failed to record auth event", "kind", kind, "error", err)
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

// isNoData reports a 204 from the player, which the CLI treats as "nothing playing".
func isNoData(err error) bool {
	return errors.Is(err, shared.ErrNoData)
}
