package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/trackstats/internal/config"
	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

const (
	ExitSuccess  = 0
	ExitError    = 1
	ExitWarnings = 2
)

// errWarnings marks a command that finished but reported warnings.
var errWarnings = errors.New("completed with warnings")

var (
	flagDB      string
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trackstats",
		Short: "Load high school track results and report records",
		Long: `A CLI tool that ingests published track and field results into a
SQLite database and reports personal records and team bests.

Configuration is read from the file named by TRACKSTATS_CONFIG and from
TRACKSTATS_* environment variables. Flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default from config)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newFetchCmd(), newLoadCmd(), newPRsCmd(), newBestsCmd(), newStatsCmd(), newRecordsCmd())
	return cmd
}

// env is what every command needs: the loaded config, its logger and the
// validated output format.
type env struct {
	cfg    *config.Config
	log    *logger.Logger
	format OutputFormat
}

func setup(cmd *cobra.Command) (*env, error) {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagVerbose {
		cfg.LogLevel = string(logger.LevelDebug)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	return &env{cfg: cfg, log: log, format: format}, nil
}

func (e *env) openStore() (*storage.Store, error) {
	store, err := storage.Open(e.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	e.log.Debug("Opened database", logger.Fields{"path": store.Path()})
	return store, nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errWarnings):
		return ExitWarnings
	default:
		return ExitError
	}
}

// run executes the command tree with args and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errWarnings) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// Execute runs the CLI
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
