package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers"
	"github.com/AI-Template-SDK/aeo-insights/internal/providers/common"
	"github.com/AI-Template-SDK/aeo-insights/services"
)

type analyzeOptions struct {
	provider    string
	brand       string
	website     string
	competitors []string
	static      bool
	concurrency int
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [file...]",
		Short: "Analyze answer text files and print one JSON record per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := models.ParseProvider(opts.provider)
			if err != nil {
				return err
			}

			var registry *analysis.Registry
			if opts.static {
				registry = analysis.NewRegistry(analysis.AnalyzerOptions{Logger: root.logger})
			} else {
				accounting := common.Accounting{Costs: services.NewCostService(), Logger: root.logger}
				registry, err = providers.NewAnalyzerRegistry(cmd.Context(), root.cfg, accounting, nil)
				if err != nil {
					return err
				}
			}

			brand := models.BrandContext{Name: opts.brand, Website: opts.website, Competitors: opts.competitors}
			reqs := make([]services.AnalysisRequest, len(args))
			for i, path := range args {
				text, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				reqs[i] = services.AnalysisRequest{
					Response: models.RawResponse{Text: string(text), Provider: provider},
					Brand:    brand,
					Static:   opts.static,
				}
			}

			kpi := services.NewKPIService(registry, nil, analysis.AggregateOptions{}, nil, root.logger)
			batch := services.NewBatchAnalyzer(kpi, opts.concurrency, root.cfg.Analysis.RequestsPerSec, root.logger)
			results, err := batch.AnalyzeBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for i, m := range results {
				m.RawAnswer = ""
				m.ResponseText = ""
				if err := enc.Encode(fileResult{File: args[i], Metrics: m}); err != nil {
					return fmt.Errorf("write result for %s: %w", args[i], err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "generic", "LLM that produced the answers")
	cmd.Flags().StringVarP(&opts.brand, "brand", "b", "", "Tracked brand name")
	cmd.Flags().StringVar(&opts.website, "website", "", "Tracked brand website, for owned citations")
	cmd.Flags().StringSliceVarP(&opts.competitors, "competitor", "c", nil, "Competitor brand (repeatable)")
	cmd.Flags().BoolVar(&opts.static, "static", false, "Use the competitor list only, no model calls")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Files analyzed in parallel")
	_ = cmd.MarkFlagRequired("brand")
	return cmd
}

type fileResult struct {
	File    string            `json:"file"`
	Metrics models.KPIMetrics `json:"metrics"`
}
