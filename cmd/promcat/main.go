package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bcf-ngs/promcat/cmd/promcat/commands"
	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
	"github.com/bcf-ngs/promcat/pkg/config"
	"github.com/bcf-ngs/promcat/pkg/ui"
)

func main() {
	// Local .env files carry site settings like PROMCAT_CONFIG
	_ = godotenv.Load()

	setupLogging()
	ctx := zerolog.DefaultContextLogger.WithContext(context.Background())

	rootOpts := &opts.RootOpts{
		Console: ui.New(),
	}

	rootCmd := &cobra.Command{
		Use:   "promcat",
		Short: "Catalog and manage PromethION sequencing output",
		Long: `promcat examines the output directories produced by PromethION
sequencers, extracts run and basecalling metadata from the MinKNOW
reports, sets up analysis directories and fetches selected data files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			cfg, err := config.Load(cmd.Context(), configFile)
			if err != nil {
				return err
			}
			rootOpts.Config = cfg
			return nil
		},
	}
	addRootFlags(rootCmd)

	rootCmd.AddCommand(
		commands.NewConfigCmd(rootOpts),
		commands.NewInfoCmd(rootOpts),
		commands.NewMetadataCmd(rootOpts),
		commands.NewSetupCmd(rootOpts),
		commands.NewFetchCmd(rootOpts),
		commands.NewReportCmd(rootOpts),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		rootOpts.Console.Failure("%v", err)
		os.Exit(1)
	}
}
