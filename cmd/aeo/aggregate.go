package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/aeo-insights/internal/analysis"
	"github.com/AI-Template-SDK/aeo-insights/internal/models"
)

type aggregateOptions struct {
	brand            string
	website          string
	legacyProminence bool
}

func newAggregateCmd(root *rootOptions) *cobra.Command {
	opts := &aggregateOptions{}

	cmd := &cobra.Command{
		Use:   "aggregate [records.jsonl]",
		Short: "Aggregate JSON-lines KPI records into a snapshot",
		Long: `Reads one KPI record per line (the "metrics" object printed by analyze, or a bare
record) from the file or stdin and prints the aggregate snapshot. With --brand the
competitor, cited-domain and owned-citation breakdown is included.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			records, err := readRecords(in)
			if err != nil {
				return err
			}
			root.logger.Debug().Int("records", len(records)).Msg("[Aggregate] records loaded")

			aggOpts := analysis.AggregateOptions{LegacyProminence: opts.legacyProminence || root.cfg.Analysis.LegacyProminence}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if opts.brand != "" {
				return enc.Encode(analysis.AggregateTopic(records, models.BrandContext{Name: opts.brand, Website: opts.website}, aggOpts))
			}
			return enc.Encode(analysis.Aggregate(records, aggOpts))
		},
	}

	cmd.Flags().StringVarP(&opts.brand, "brand", "b", "", "Tracked brand, enables the topic breakdown")
	cmd.Flags().StringVar(&opts.website, "website", "", "Tracked brand website, for owned citations")
	cmd.Flags().BoolVar(&opts.legacyProminence, "legacy-prominence", false, "Score visibility with raw prominence")
	return cmd
}

func readRecords(r io.Reader) ([]models.KPIMetrics, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	records := []models.KPIMetrics{}
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var wrapped struct {
			Metrics *models.KPIMetrics `json:"metrics"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if wrapped.Metrics != nil {
			records = append(records, *wrapped.Metrics)
			continue
		}
		var m models.KPIMetrics
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
