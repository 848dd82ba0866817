package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/scraper"
)

var flagForce bool

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [meet.yaml ...]",
		Short: "Download the source pages of meets",
		Long: `Fetch downloads every meet source that has a url to its file path.
Pages already on disk are kept unless --force is given, and a page no
parser recognizes is not saved.`,
		RunE: runFetch,
	}

	cmd.Flags().StringVar(&flagMeetDir, "meet-dir", "", "Directory searched for meet documents")
	cmd.Flags().StringVar(&flagDataDir, "data-dir", "", "Directory resolving relative source paths")
	cmd.Flags().BoolVar(&flagForce, "force", false, "Download pages that already exist")

	return cmd
}

// meetPaths returns args, or the meet documents below dir when there are none.
func meetPaths(args []string, dir string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if dir == "" {
		return nil, fmt.Errorf("no meet documents given (pass paths or --meet-dir)")
	}
	paths, err := meet.Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no meet documents found in %s", dir)
	}
	return paths, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	if flagMeetDir != "" {
		e.cfg.MeetDir = flagMeetDir
	}
	if flagDataDir != "" {
		e.cfg.DataDir = flagDataDir
	}

	paths, err := meetPaths(args, e.cfg.MeetDir)
	if err != nil {
		return err
	}
	cfgs := make([]*meet.Config, 0, len(paths))
	for _, path := range paths {
		cfg, err := meet.Load(path)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, cfg)
	}

	s := scraper.New(e.log)
	downloads := []scraper.Download{}
	for _, cfg := range cfgs {
		d, err := s.FetchMeet(cmd.Context(), cfg, e.cfg.DataDir, flagForce)
		downloads = append(downloads, d...)
		if err != nil {
			return err
		}
	}

	if err := WriteDownloads(cmd.OutOrStdout(), downloads, e.format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	for _, d := range downloads {
		if d.Status == scraper.StatusFailed {
			return errWarnings
		}
	}
	return nil
}

// WriteDownloads writes fetch results in the specified format
func WriteDownloads(w io.Writer, downloads []scraper.Download, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, downloads)
	case FormatText:
		if len(downloads) == 0 {
			fmt.Fprintln(w, "No sources with a url.")
			return nil
		}
		t := newTable(w)
		t.AppendHeader(table.Row{"Meet", "Status", "Path", "Parser", "Bytes", "Detail"})
		for _, d := range downloads {
			detail := d.Title
			if d.Error != "" {
				detail = d.Error
			}
			t.AppendRow(table.Row{d.Meet, d.Status, d.Path, d.Parser, d.Bytes, detail})
		}
		rightAlign(t, 5)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
