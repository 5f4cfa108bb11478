package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/folio-scout/harvest-cli/internal/export"
)

var (
	exportFormats   string
	exportOutputDir string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Re-export an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formats := cfg.Export.Formats
		if exportFormats != "" {
			formats = exportFormats
		}
		parsed, err := export.ParseFormats(formats)
		if err != nil {
			return err
		}

		outputDir := cfg.Export.OutputDir
		if exportOutputDir != "" {
			outputDir = exportOutputDir
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export: load run")
		}
		if run.Result == nil {
			return eris.Errorf("export: run %s has no result yet (status %s)", run.ID, run.Status)
		}

		// The archive stores records separately; prefer them so a run
		// whose result payload was trimmed still exports in full.
		result := *run.Result
		records, err := st.ListRecords(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "export: load records")
		}
		if len(records) > 0 {
			result.Records = records
		}

		base := export.BaseName(run.Keyword, run.CreatedAt)
		paths, err := export.WriteAll(outputDir, base, parsed, &result)
		if err != nil {
			return err
		}
		for _, path := range paths {
			zap.L().Info("wrote export", zap.String("path", path))
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormats, "formats", "", "comma-separated export formats (json, csv, xml, xlsx, html)")
	exportCmd.Flags().StringVar(&exportOutputDir, "output-dir", "", "export output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
