package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
	"github.com/bcf-ngs/promcat/pkg/analysis"
	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// NewInfoCmd creates a new info command
func NewInfoCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info DATA_DIR",
		Short: "Summarize the contents of a PromethION project directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "info").Logger().WithContext(cmd.Context())

			project, err := promethion.Scan(ctx, args[0])
			if err != nil {
				return errors.Errorf("scanning %s: %w", args[0], err)
			}
			reportDiagnostics(opts, project)

			var b strings.Builder
			fmt.Fprintf(&b, "Project name : %s\n", project.Name)
			fmt.Fprintf(&b, "Project ID   : %s\n", orUnknown(project.ID()))
			fmt.Fprintf(&b, "Datestamp    : %s\n", orUnknown(project.Datestamp()))
			fmt.Fprintf(&b, "Flow cells   : %d\n", len(project.FlowCells))
			fmt.Fprintf(&b, "Basecalls    : %d\n\n", len(project.BasecallsDirs))

			b.WriteString("#Run\tPoolName\tSubDir\tFlowCellID\tReports\tKit\tModifications\tTrimBarcodes\n")
			for _, row := range analysis.BasecallsRows(project) {
				fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					row.Run, row.PoolName, row.SubDir, row.FlowCellID,
					row.Reports, row.Kit, row.Modifications, row.TrimBarcodes)
			}
			opts.Console.Print(strings.TrimSuffix(b.String(), "\n"))
			return nil
		},
	}

	return cmd
}

// reportDiagnostics surfaces scan anomalies as warnings. They never
// fail the command.
func reportDiagnostics(opts *opts.RootOpts, project *promethion.Project) {
	for _, d := range project.Diagnostics {
		opts.Console.Warning("%s: %s", d.Path, d.Problem)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
