package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
	"github.com/bcf-ngs/promcat/pkg/analysis"
	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// NewSetupCmd creates a new setup command
func NewSetupCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		user         string
		pi           string
		application  string
		organism     string
		samplesIndex string
	)

	cmd := &cobra.Command{
		Use:   "setup DATA_DIR DEST_DIR",
		Short: "Create an analysis directory for a project",
		Long: `Setup scans a PromethION project directory and creates a matching
analysis directory under DEST_DIR, named after the project with an
"_analysis" suffix. The new directory holds the project metadata
record, the collated basecalling table, an optional samples table and
copies of the HTML reports. Creation is all or nothing: if anything
fails, no directory is left behind.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "setup").Logger().WithContext(cmd.Context())

			project, err := promethion.Scan(ctx, args[0])
			if err != nil {
				return errors.Errorf("scanning %s: %w", args[0], err)
			}
			reportDiagnostics(opts, project)

			opts.Console.Progress("creating analysis directory for %s", project.Name)
			dir, err := analysis.Create(ctx, project, args[1], analysis.CreateOptions{
				User:         user,
				PI:           pi,
				Application:  application,
				Organism:     organism,
				SamplesIndex: samplesIndex,
				Permissions:  opts.Config.General.Permissions,
				Group:        opts.Config.General.Group,
			})
			if err != nil {
				return errors.Errorf("creating analysis directory: %w", err)
			}
			opts.Console.Success("created %s", dir.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "name of the user requesting the analysis (required)")
	cmd.Flags().StringVar(&pi, "pi", "", "name of the principal investigator (required)")
	cmd.Flags().StringVar(&application, "application", "", "sequencing application (required)")
	cmd.Flags().StringVar(&organism, "organism", "", "organism under study (required)")
	cmd.Flags().StringVar(&samplesIndex, "samples", "", "samples index file (sample,barcode[,flowcell] rows)")

	return cmd
}
