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
	"github.com/desertthunder/tidalx/internal/repositories"
	"github.com/desertthunder/tidalx/internal/server"
	"github.com/desertthunder/tidalx/internal/services"
	"github.com/desertthunder/tidalx/internal/shared"
	"github.com/desertthunder/tidalx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TidalClient is what the commands need from the Tidal service: the API calls made by
// [tasks.HistorySync] and the authorization code flow.
type TidalClient interface {
	tasks.TidalClient
	server.Authenticator
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the Tidal client are opened on first use so commands like `setup env` work
// without either.
type Runner struct {
	config *shared.Config
	db     *sql.DB
	store  *repositories.Store
	tidal  TidalClient
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Store  *repositories.Store
	Tidal  TidalClient
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		store:  opts.Store,
		tidal:  opts.Tidal,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("TIDALX_CONFIG"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}

// Before resolves the configuration (file, then environment) and sets the log level.
//
// A config supplied through [RunnerOpts] is kept as is.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := shared.ResolveConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// After releases the database connection.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// Close closes the database if this runner opened it.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.store = nil, nil
	return err
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) userKey() string {
	return r.config.Server.UserKey
}

// openStore returns the album and credential repositories, opening and migrating the database on first use.
func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	r.logger.Debug("opening database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	r.db = db
	r.store = repositories.NewStore(db)
	return r.store, nil
}

// tidalClient returns the Tidal service built from the configured credentials.
func (r *Runner) tidalClient() (TidalClient, error) {
	if r.tidal != nil {
		return r.tidal, nil
	}
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	tc := r.config.Credentials.Tidal
	svc, err := services.NewTidalService(tc.Map(),
		services.WithHTTPClient(&http.Client{Timeout: tc.Timeout()}),
		services.WithRateLimit(tc.RequestsPerSecond),
		services.WithUserKey(r.userKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tidal service: %w", err)
	}

	r.tidal = svc
	return svc, nil
}

// syncer wires the Tidal client to the repositories.
func (r *Runner) syncer() (*tasks.HistorySync, *repositories.Store, error) {
	store, err := r.openStore()
	if err != nil {
		return nil, nil, err
	}
	tidal, err := r.tidalClient()
	if err != nil {
		return nil, nil, err
	}
	return tasks.NewHistorySync(tidal, store.Credentials, store.Albums), store, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, syncCommand, albumsCommand, playCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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
