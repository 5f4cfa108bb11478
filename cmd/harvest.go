package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/folio-scout/harvest-cli/internal/export"
	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/model"
	"github.com/folio-scout/harvest-cli/internal/pipeline"
	"github.com/folio-scout/harvest-cli/internal/store"
)

var (
	harvestKeyword     string
	harvestMaxProfiles int
	harvestMaxPages    int
	harvestConcurrency int
	harvestFormats     string
	harvestOutputDir   string
	harvestNoStore     bool
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run a keyword harvest and export the results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		formats := cfg.Export.Formats
		if harvestFormats != "" {
			formats = harvestFormats
		}
		parsed, err := export.ParseFormats(formats)
		if err != nil {
			return err
		}

		outputDir := cfg.Export.OutputDir
		if harvestOutputDir != "" {
			outputDir = harvestOutputDir
		}

		if harvestConcurrency > 0 {
			cfg.Harvest.Concurrency = harvestConcurrency
		}

		var st store.Store
		if !harvestNoStore {
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		fetcher := fetch.NewController(fetchConfig(cfg))
		p, err := pipeline.New(cfg, st, fetcher)
		if err != nil {
			return err
		}

		params := model.HarvestParams{
			Keyword:     harvestKeyword,
			MaxProfiles: harvestMaxProfiles,
			MaxPages:    harvestMaxPages,
		}

		result, runErr := p.Run(ctx, params)
		if runErr != nil && result == nil {
			return eris.Wrap(runErr, "harvest")
		}

		switch result.Outcome {
		case model.OutcomePartial:
			zap.L().Warn("harvest finished with failures",
				zap.Int("records", len(result.Records)),
				zap.Int("failures", len(result.Failures)),
				zap.Bool("cancelled", result.Cancelled),
			)
		case model.OutcomeComplete:
			zap.L().Info("harvest complete",
				zap.Int("records", len(result.Records)),
				zap.Int("pages_fetched", result.PagesFetched),
			)
		}

		if len(result.Records) > 0 {
			base := export.BaseName(result.Keyword, time.Now())
			paths, err := export.WriteAll(outputDir, base, parsed, result)
			if err != nil {
				return eris.Wrap(err, "export results")
			}
			for _, path := range paths {
				zap.L().Info("wrote export", zap.String("path", path))
			}
		}

		if runErr != nil {
			return eris.Wrap(runErr, "harvest")
		}
		return nil
	},
}

func init() {
	harvestCmd.Flags().StringVar(&harvestKeyword, "keyword", "", "search keyword (default from config)")
	harvestCmd.Flags().IntVar(&harvestMaxProfiles, "max-profiles", 0, "cap on harvested profiles (default from config)")
	harvestCmd.Flags().IntVar(&harvestMaxPages, "max-pages", 0, "cap on search pages walked (default from config)")
	harvestCmd.Flags().IntVar(&harvestConcurrency, "concurrency", 0, "max in-flight requests (default from config)")
	harvestCmd.Flags().StringVar(&harvestFormats, "formats", "", "comma-separated export formats (json, csv, xml, xlsx, html)")
	harvestCmd.Flags().StringVar(&harvestOutputDir, "output-dir", "", "export output directory (default from config)")
	harvestCmd.Flags().BoolVar(&harvestNoStore, "no-store", false, "skip archiving the run")
	rootCmd.AddCommand(harvestCmd)
}
