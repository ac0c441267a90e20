package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/loopauth/internal/events"
	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/repositories"
	"github.com/desertthunder/loopauth/internal/server"
	"github.com/desertthunder/loopauth/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	ownsDB     bool
	openURL    func(string) error
	notify     events.Handler
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// DB is used instead of opening the configured database when set.
	DB *sql.DB
	// OpenURL opens the authorization URL. Defaults to [shared.OpenBrowser].
	OpenURL func(string) error
	// Notify overrides the desktop notification sink.
	Notify events.Handler
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
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		openURL:    opts.OpenURL,
		notify:     opts.Notify,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		listenCommand, authorizeCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.db != nil && r.ownsDB {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	r.db = db
	r.ownsDB = true
	return db, nil
}

// recorder returns a history recorder, or nil when the database is unavailable.
func (r *Runner) recorder() *repositories.FlowRecorder {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("flow history disabled", "error", err)
		return nil
	}
	return repositories.NewFlowRecorder(db, r.logger)
}

// bus wires the event sinks for a single flow.
func (r *Runner) bus() *events.Bus {
	bus := events.NewBus()
	bus.On(server.CallbackEvent, events.LogSink(r.logger, server.CallbackEvent))

	if r.config.Notifications.Enabled {
		notify := r.notify
		if notify == nil {
			notify = events.NewNotifier(r.config.Notifications.Title, r.config.OAuth.AppName).Handle
		}
		bus.On(server.CallbackEvent, notify)
	}

	return bus
}

// listenPort resolves the port flag against the configured port.
func (r *Runner) listenPort(cmd *cli.Command) (uint16, error) {
	cfg := r.config.OAuth
	if p := cmd.Int("port"); p != 0 {
		cfg.Port = int(p)
	}
	return cfg.ListenPort()
}

// timeout resolves the timeout flag against the configured callback timeout.
func (r *Runner) timeout(cmd *cli.Command) time.Duration {
	if d := cmd.Duration("timeout"); d > 0 {
		return d
	}
	return r.config.OAuth.Timeout.Duration
}

// startFlow binds the loopback listener and records the attempt.
func (r *Runner) startFlow(port uint16) (*server.Flow, *models.Flow, *repositories.FlowRecorder, error) {
	launcher := server.NewLauncher(server.LauncherOpts{
		Port:    port,
		AppName: r.config.OAuth.AppName,
		Emitter: r.bus(),
		Logger:  r.logger,
	})

	flow, err := launcher.Start()
	if err != nil {
		return nil, nil, nil, err
	}

	recorder := r.recorder()
	return flow, recorder.Begin(int(flow.Port())), recorder, nil
}

// wait blocks until the flow finishes, the timeout passes or ctx is cancelled.
//
// The worker has no cancellation of its own. On timeout the listener stays bound until the process exits.
func (r *Runner) wait(ctx context.Context, flow *server.Flow, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case result, ok := <-flow.Done():
		if !ok {
			return "", shared.ErrAttemptsExhausted
		}
		return result.URL, result.Err
	case <-expired:
		return "", fmt.Errorf("%w: no callback after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// flowStatus maps the outcome of a wait to a history status.
func flowStatus(err error) models.FlowStatus {
	switch {
	case err == nil:
		return models.StatusDelivered
	case errors.Is(err, shared.ErrAttemptsExhausted):
		return models.StatusExhausted
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.StatusTimedOut
	default:
		return models.StatusFailed
	}
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
