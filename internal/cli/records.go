package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/trackstats/internal/loader"
	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/records"
	"github.com/pfrederiksen/trackstats/internal/storage"
)

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage historical school records",
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a school records JSON document",
		Long: `Import loads every record as a first place result at a virtual meet named
after the record location and dated January 1 of the record year.
Existing records are skipped unless --replace is given.`,
		Args: cobra.ExactArgs(1),
		RunE: runRecordsImport,
	}
	importCmd.Flags().BoolVar(&flagReplace, "replace", false, "Overwrite records that already exist")

	parseCmd := &cobra.Command{
		Use:   "parse",
		Short: "Convert markdown record tables into a records document",
		Long: `Parse reads the boys and girls school record tables exported from the
record documents and writes the JSON document that import reads. Marks
written with curly quotes or as M.SS.ss times are accepted.`,
		Args: cobra.NoArgs,
		RunE: runRecordsParse,
	}
	parseCmd.Flags().StringVar(&flagBoys, "boys", "", "Boys records table")
	parseCmd.Flags().StringVar(&flagGirls, "girls", "", "Girls records table")
	parseCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Write the document here instead of stdout")
	parseCmd.MarkFlagsOneRequired("boys", "girls")

	cmd.AddCommand(importCmd, parseCmd)
	return cmd
}

var (
	flagBoys   string
	flagGirls  string
	flagOutput string
)

func runRecordsParse(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	events, err := e.cfg.Events()
	if err != nil {
		return fmt.Errorf("loading event dictionary: %w", err)
	}

	file := &records.File{Boys: []records.Record{}, Girls: []records.Record{}}
	var warnings []loader.Warning
	for _, table := range []struct {
		path   string
		gender string
		out    *[]records.Record
	}{
		{flagBoys, "M", &file.Boys},
		{flagGirls, "F", &file.Girls},
	} {
		if table.path == "" {
			continue
		}
		f, err := os.Open(table.path)
		if err != nil {
			return fmt.Errorf("reading records table: %w", err)
		}
		list, w, err := records.ParseMarkdown(f, table.gender, events)
		f.Close() // nolint:errcheck
		if err != nil {
			return fmt.Errorf("%s: %w", table.path, err)
		}
		for i := range w {
			w[i].Source = table.path
			e.log.Warn("Skipped record", logger.Fields{"file": table.path, "line": w[i].Index, "mark": w[i].Raw})
		}
		*table.out = list
		warnings = append(warnings, w...)
	}

	var buf bytes.Buffer
	if err := records.Encode(&buf, file); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if flagOutput == "" {
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else {
		if err := os.WriteFile(flagOutput, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing records: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d boys and %d girls records to %s\n",
			len(file.Boys), len(file.Girls), flagOutput)
	}

	e.log.Info("Parsed records", logger.Fields{
		"boys":     len(file.Boys),
		"girls":    len(file.Girls),
		"warnings": len(warnings),
	})
	if len(warnings) > 0 {
		return errWarnings
	}
	return nil
}

func runRecordsImport(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}

	file, err := records.Read(args[0])
	if err != nil {
		return err
	}
	events, err := e.cfg.Events()
	if err != nil {
		return fmt.Errorf("loading event dictionary: %w", err)
	}
	schools, err := e.cfg.Schools()
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
	l, err := loader.New(store, events, schools, loader.Options{Policy: policy, Logger: e.log})
	if err != nil {
		return err
	}

	e.log.Info("Importing records", logger.Fields{
		"file":  args[0],
		"boys":  len(file.Boys),
		"girls": len(file.Girls),
	})
	sum, importErr := records.Import(cmd.Context(), l, file, events)
	if sum != nil {
		if err := WriteSummary(cmd.OutOrStdout(), sum, e.format, flagVerbose); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	if importErr != nil {
		return importErr
	}
	if sum.HasWarnings() {
		return errWarnings
	}
	return nil
}
