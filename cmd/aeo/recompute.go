package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/internal/store"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

func newRecomputeCmd(root *rootOptions) *cobra.Command {
	var (
		date  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute stored prompt and topic snapshots for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := models.Day(time.Now()).AddDate(0, 0, -1)
			if date != "" {
				parsed, err := time.Parse("2006-01-02", date)
				if err != nil {
					return err
				}
				day = parsed
			}

			ctx := cmd.Context()
			db, err := store.Connect(ctx, root.cfg.Database, 3, root.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db, root.logger)
			kpi := services.NewKPIService(analysis.NewRegistry(analysis.AnalyzerOptions{Logger: root.logger}), st,
				analysis.AggregateOptions{LegacyProminence: root.cfg.Analysis.LegacyProminence}, nil, root.logger)

			summary, runErr := kpi.RecomputeDay(ctx, day, force)
			if summary != nil {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Day to recompute as YYYY-MM-DD (defaults to yesterday)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite snapshots that already exist")
	return cmd
}
