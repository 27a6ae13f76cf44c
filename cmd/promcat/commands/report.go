package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
	"github.com/bcf-ngs/promcat/pkg/analysis"
	"github.com/bcf-ngs/promcat/pkg/config"
)

// NewReportCmd creates a new report command
func NewReportCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		template string
		fields   string
		summary  bool
	)

	cmd := &cobra.Command{
		Use:   "report ANALYSIS_DIR",
		Short: "Report the metadata of an analysis directory",
		Long: `Report renders the metadata of an analysis directory as a
tab-delimited line suitable for pasting into a spreadsheet, or as a
human-readable summary. The set of fields comes from a named template
(built in or defined in the config file) or from an explicit field
list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "report").Logger().WithContext(cmd.Context())

			var fieldList []string
			if fields != "" {
				fieldList = config.SplitFields(fields)
			} else {
				var err error
				fieldList, err = opts.Config.Template(template)
				if err != nil {
					return err
				}
			}

			dir, err := analysis.Open(ctx, args[0])
			if err != nil {
				return errors.Errorf("opening analysis directory: %w", err)
			}

			mode := analysis.RenderTSV
			if summary {
				mode = analysis.RenderSummary
			}
			text, err := analysis.Render(dir, fieldList, mode)
			if err != nil {
				return errors.Errorf("rendering report: %w", err)
			}
			opts.Console.Print(text)
			return nil
		},
	}

	cmd.Flags().StringVar(&template, "template", "default", "reporting template to use")
	cmd.Flags().StringVar(&fields, "fields", "", "explicit comma-separated field list (overrides --template)")
	cmd.Flags().BoolVar(&summary, "summary", false, "render a human-readable summary instead of TSV")

	return cmd
}
