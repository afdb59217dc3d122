package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wrokdesk/internal/clock"
	"github.com/balkashynov/wrokdesk/internal/config"
	"github.com/balkashynov/wrokdesk/internal/db"
	"github.com/balkashynov/wrokdesk/internal/engine"
	"github.com/balkashynov/wrokdesk/internal/logging"
	"github.com/balkashynov/wrokdesk/internal/models"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// persistent flags
var (
	configPath string
	dbPath     string
	workerRef  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wrokdesk",
	Short: "Client work sessions and time records from the terminal",
	Long: `wrokdesk times client work. Start a session for a client, switch between
the client's tasks while you work, and every interval you spend becomes a
time record you can report on.

Time in a session that is not on a task is kept as "Client Session" time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app is what every command needs once the database is open
type app struct {
	cfg    config.Config
	logger *slog.Logger
	clock  clock.Clock
	store  *db.Store
	engine *engine.Engine
}

// loadApp reads the config, applies flags over it and opens the database
func loadApp(opts ...engine.Option) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	if workerRef != "" {
		cfg.Worker = workerRef
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	if err := db.Initialize(cfg.Database); err != nil {
		return nil, err
	}

	clk := clock.Real()
	s := db.NewStore(db.DB)
	opts = append([]engine.Option{engine.WithLogger(logger), engine.WithClock(clk)}, opts...)
	return &app{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		store:  s,
		engine: engine.New(s, opts...),
	}, nil
}

// withApp wraps a command function to open the database first
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(cmd, args, a)
	}
}

// worker resolves the worker commands act for: --worker, then config, then
// the only registered worker.
func (a *app) worker(ctx context.Context) (*models.Worker, error) {
	if a.cfg.Worker != "" {
		return a.store.FindWorker(ctx, a.cfg.Worker)
	}

	workers, err := a.store.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	switch len(workers) {
	case 0:
		return nil, errors.New("no workers yet, add one with 'wrokdesk worker add <name>'")
	case 1:
		return &workers[0], nil
	default:
		return nil, errors.New("several workers registered, pick one with --worker or WROKDESK_WORKER")
	}
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wrokdesk %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.wrokdesk/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default ~/.wrokdesk/wrokdesk.db)")
	rootCmd.PersistentFlags().StringVarP(&workerRef, "worker", "w", "", "worker name or id to act as")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(switchCmd)
	rootCmd.AddCommand(untaskCmd)
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(timesheetCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(guideCmd)
	rootCmd.AddCommand(versionCmd)
}
