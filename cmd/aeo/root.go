package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/aeo-insights/internal/config"
)

type rootOptions struct {
	envFile string
	verbose bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "aeo",
		Short: "Brand visibility analysis for LLM answers",
		Long: `aeo scores LLM answers for a tracked brand: where the brand is mentioned,
which competitors appear, which sources are cited and how visible the brand is overall.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil {
					return err
				}
			} else {
				_ = godotenv.Load()
			}
			opts.cfg = config.Load()

			level := zerolog.WarnLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			opts.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Environment file to load (defaults to .env when present)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline details to stderr")

	cmd.AddCommand(newAnalyzeCmd(opts), newAggregateCmd(opts), newRecomputeCmd(opts))
	return cmd
}
