package commands

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
	"github.com/bcf-ngs/promcat/pkg/fetch"
	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// NewFetchCmd creates a new fetch command
func NewFetchCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		typeNames []string
		dryRun    bool
		list      bool
	)

	cmd := &cobra.Command{
		Use:   "fetch DATA_DIR DEST_DIR",
		Short: "Copy selected file types out of a project directory",
		Long: `Fetch transfers the requested categories of files (bam, fastq, pod5,
report) from a PromethION project directory into DEST_DIR, preserving
the directory structure. Transfers run through rsync with include
filters, so nothing outside the requested types travels.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "fetch").Logger().WithContext(cmd.Context())

			if len(typeNames) == 0 {
				typeNames = opts.Config.DefaultFileTypes
			}
			types, err := fetch.ParseFileTypes(typeNames)
			if err != nil {
				return err
			}

			project, err := promethion.Scan(ctx, args[0])
			if err != nil {
				return errors.Errorf("scanning %s: %w", args[0], err)
			}
			reportDiagnostics(opts, project)

			if list {
				files, err := fetch.Select(project, types)
				if err != nil {
					return err
				}
				opts.Console.Print(strings.Join(files, "\n"))
				return nil
			}

			fetchOpts := fetch.Options{
				Dest:   args[1],
				Types:  types,
				DryRun: dryRun,
				Runner: opts.Config.RsyncRunner(),
			}
			opts.Console.Progress("fetching %s from %s", joinTypes(types), project.Name)
			if err := fetch.Run(ctx, project, fetchOpts, opts.Console.Writer()); err != nil {
				return errors.Errorf("fetching files: %w", err)
			}
			opts.Console.Success("fetch complete")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&typeNames, "types", nil, "file types to fetch (bam, fastq, pod5, report)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be transferred without copying")
	cmd.Flags().BoolVar(&list, "list", false, "list the matching files instead of transferring")

	return cmd
}

func joinTypes(types []fetch.FileType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ",")
}
