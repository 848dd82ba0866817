package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/trackstats/internal/loader"
	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/normalize"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

var (
	flagMeetDir      string
	flagDataDir      string
	flagClearResults bool
	flagClearMeets   bool
	flagClearAll     bool
	flagReplace      bool
	flagRelayPolicy  string
	flagMetricsFile  string
	flagWorkers      int
)

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [meet.yaml ...]",
		Short: "Load meet results into the database",
		Long: `Load parses the sources of each meet document, normalizes the rows and
writes every meet in its own transaction.

With no arguments every *.yaml file below --meet-dir is loaded.
Exit status is 0 on success, 2 when the run completed with warnings and 1
on a fatal error.`,
		RunE: runLoad,
	}

	cmd.Flags().StringVar(&flagMeetDir, "meet-dir", "", "Directory searched for meet documents")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "", "Directory resolving relative source paths")
	cmd.Flags().BoolVar(&flagClearResults, "clear-results", false, "Delete all results before loading")
	cmd.Flags().BoolVar(&flagClearMeets, "clear-meets", false, "Delete all results and meets before loading")
	cmd.Flags().BoolVar(&flagClearAll, "clear-all", false, "Delete results, meets and athletes before loading")
	cmd.Flags().BoolVar(&flagReplace, "replace", false, "Overwrite results that already exist")
	cmd.Flags().StringVar(&flagRelayPolicy, "relay-policy", "", "Relays with no known member: drop or keep")
	cmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "Write run metrics in Prometheus text format")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "Parallel source parsers (default from config)")

	cmd.MarkFlagsMutuallyExclusive("clear-results", "clear-meets", "clear-all")

	return cmd
}

func clearMode() loader.Clear {
	switch {
	case flagClearAll:
		return loader.ClearAll
	case flagClearMeets:
		return loader.ClearMeets
	case flagClearResults:
		return loader.ClearResults
	default:
		return loader.ClearNone
	}
}

// runLoad is the load command logic
func runLoad(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	cfg := e.cfg
	if flagMeetDir != "" {
		cfg.MeetDir = flagMeetDir
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagRelayPolicy != "" {
		cfg.RelayPolicy = flagRelayPolicy
	}
	if flagMetricsFile != "" {
		cfg.MetricsFile = flagMetricsFile
	}
	if flagWorkers != 0 {
		cfg.Workers = flagWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	relayPolicy, err := normalize.ParseRelayPolicy(cfg.RelayPolicy)
	if err != nil {
		return err
	}

	paths, err := meetPaths(args, cfg.MeetDir)
	if err != nil {
		return err
	}

	events, err := cfg.Events()
	if err != nil {
		return fmt.Errorf("loading event dictionary: %w", err)
	}
	schools, err := cfg.Schools()
	if err != nil {
		return fmt.Errorf("loading school dictionary: %w", err)
	}

	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close() // nolint:errcheck

	policy := storage.Skip
	if flagReplace {
		policy = storage.Replace
	}
	metrics := logger.NewMetrics()

	l, err := loader.New(store, events, schools, loader.Options{
		Policy:      policy,
		Clear:       clearMode(),
		RelayPolicy: relayPolicy,
		DataDir:     cfg.DataDir,
		Workers:     cfg.Workers,
		Logger:      e.log,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	e.log.Debug("Loading meets", logger.Fields{
		"meets":  len(paths),
		"policy": policy.String(),
		"clear":  clearMode().String(),
		"paths":  strings.Join(paths, ","),
	})

	sum, loadErr := l.Load(cmd.Context(), paths...)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			e.log.Error("Writing metrics failed", logger.Fields{"path": cfg.MetricsFile}, err)
		}
	}

	if sum != nil {
		if err := WriteSummary(cmd.OutOrStdout(), sum, e.format, flagVerbose); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if loadErr != nil {
		return loadErr
	}
	if sum.HasWarnings() {
		return errWarnings
	}
	return nil
}
