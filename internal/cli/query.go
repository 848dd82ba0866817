package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/trackstats/internal/aggregate"
	"github.com/pfrederiksen/trackstats/internal/filter"
	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

var (
	flagFilter   string
	flagSort     string
	flagSeason   string
	flagBySeason bool
)

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFilter, "filter", "", `Filter expression, e.g. "season:2025 gender:F event:100m,200m"`)
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByEvent), "Sort order: event, mark, athlete or date")
}

func newPRsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prs",
		Short: "Show the personal record of every athlete in every event",
		Args:  cobra.NoArgs,
		RunE:  runPRs,
	}
	addQueryFlags(cmd)
	return cmd
}

func newBestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bests",
		Short: "Show the team best of every event",
		Long: `Bests shows the all-time best mark of every event and gender, or the best
within one season with --season. --by-season lists the best of every season.`,
		Args: cobra.NoArgs,
		RunE: runBests,
	}
	addQueryFlags(cmd)
	cmd.Flags().StringVar(&flagSeason, "season", "", "Restrict team bests to one season")
	cmd.Flags().BoolVar(&flagBySeason, "by-season", false, "Show the team bests of every season")
	cmd.MarkFlagsMutuallyExclusive("season", "by-season")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of stored rows per table",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}
}

// query opens the store and parses the shared query flags.
func query(cmd *cobra.Command) (*env, *storage.Store, *filter.Filter, SortOrder, error) {
	order, err := ParseSortOrder(flagSort)
	if err != nil {
		return nil, nil, nil, "", err
	}
	f, err := filter.Parse(flagFilter)
	if err != nil {
		return nil, nil, nil, "", err
	}
	e, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, "", err
	}
	store, err := e.openStore()
	if err != nil {
		return nil, nil, nil, "", err
	}
	return e, store, f, order, nil
}

// filtered reduces the filtered result rows with reduce.
func filtered(cmd *cobra.Command, store *storage.Store, f *filter.Filter, reduce func([]aggregate.Row) []aggregate.Row) ([]aggregate.Row, error) {
	rows, err := store.ResultRows(cmd.Context())
	if err != nil {
		return nil, err
	}
	return reduce(f.Apply(rows)), nil
}

func runPRs(cmd *cobra.Command, args []string) error {
	e, store, f, order, err := query(cmd)
	if err != nil {
		return err
	}
	defer store.Close() // nolint:errcheck

	// The view serves the unfiltered case. A filter narrows the results
	// first so that, for example, a date range yields the best inside it.
	var rows []aggregate.Row
	if f.IsEmpty() {
		rows, err = store.PersonalRecordsView(cmd.Context())
	} else {
		rows, err = filtered(cmd, store, f, aggregate.PersonalRecords)
	}
	if err != nil {
		return fmt.Errorf("querying personal records: %w", err)
	}

	e.log.Debug("Personal records", logger.Fields{"rows": len(rows), "filter": f.String()})
	sortRows(rows, order)
	return WriteRows(cmd.OutOrStdout(), &RowsResult{Title: "Personal Records", Filter: filterText(f), Rows: rows}, e.format)
}

func runBests(cmd *cobra.Command, args []string) error {
	e, store, f, order, err := query(cmd)
	if err != nil {
		return err
	}
	defer store.Close() // nolint:errcheck

	title := "Team Bests"
	var rows []aggregate.Row
	switch {
	case flagBySeason:
		title = "Team Bests by Season"
		rows, err = filtered(cmd, store, f, aggregate.SeasonBests)
	case f.IsEmpty():
		if flagSeason != "" {
			title = "Team Bests " + flagSeason
		}
		rows, err = store.TeamBestsView(cmd.Context(), flagSeason)
	default:
		if flagSeason != "" {
			title = "Team Bests " + flagSeason
			f.Seasons = []string{flagSeason}
		}
		rows, err = filtered(cmd, store, f, aggregate.TeamBests)
	}
	if err != nil {
		return fmt.Errorf("querying team bests: %w", err)
	}

	e.log.Debug("Team bests", logger.Fields{"rows": len(rows), "season": flagSeason, "filter": f.String()})
	// Season bests keep their newest-first season grouping.
	if !flagBySeason {
		sortRows(rows, order)
	}
	return WriteRows(cmd.OutOrStdout(), &RowsResult{Title: title, Season: flagSeason, Filter: filterText(f), Rows: rows}, e.format)
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	store, err := e.openStore()
	if err != nil {
		return err
	}
	defer store.Close() // nolint:errcheck

	counts, err := store.Counts(cmd.Context())
	if err != nil {
		return err
	}
	return WriteCounts(cmd.OutOrStdout(), counts, e.format)
}

func filterText(f *filter.Filter) string {
	if f.IsEmpty() {
		return ""
	}
	return f.String()
}
