package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/folio-scout/harvest-cli/internal/monitoring"
)

var (
	monitorLookback int
	monitorAlert    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Collect harvest health metrics",
	Long:  "Aggregates archived runs into a metrics snapshot and optionally evaluates alert thresholds.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback := monitorLookback
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackHours
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}

		if monitorAlert {
			alerter := monitoring.NewAlerter(cfg.Monitoring)
			alerts := alerter.Evaluate(snap)
			if len(alerts) == 0 {
				zap.L().Info("no alerts triggered")
				return nil
			}
			sent := alerter.SendAlerts(ctx, alerts)
			zap.L().Info("alert evaluation complete",
				zap.Int("alerts_triggered", len(alerts)),
				zap.Int("alerts_sent", sent),
			)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().IntVar(&monitorLookback, "lookback-hours", 0, "metrics window in hours (default from config)")
	monitorCmd.Flags().BoolVar(&monitorAlert, "alert", false, "evaluate thresholds and send webhook alerts")
	rootCmd.AddCommand(monitorCmd)
}
