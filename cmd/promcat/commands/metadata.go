package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// NewMetadataCmd creates a new metadata command
func NewMetadataCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata DATA_DIR",
		Short: "Show the basecaller metadata extracted from the MinKNOW reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "metadata").Logger().WithContext(cmd.Context())

			project, err := promethion.Scan(ctx, args[0])
			if err != nil {
				return errors.Errorf("scanning %s: %w", args[0], err)
			}
			reportDiagnostics(opts, project)

			var blocks []string
			for _, fc := range project.FlowCells {
				blocks = append(blocks, metadataBlock(fc.String(), fc.Metadata))
			}
			for _, bc := range project.BasecallsDirs {
				blocks = append(blocks, metadataBlock(bc.String(), bc.Metadata))
			}
			if len(blocks) == 0 {
				opts.Console.Warning("no flow cell or basecalls directories found")
				return nil
			}
			opts.Console.Print(strings.Join(blocks, "\n\n"))
			return nil
		},
	}

	return cmd
}

func metadataBlock(title string, m promethion.Metadata) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", len(title)) + "\n")
	if m.IsEmpty() {
		b.WriteString("no metadata extracted")
		return b.String()
	}
	lines := []struct{ label, value string }{
		{"Flow cell ID", m.FlowCellID},
		{"Flow cell type", m.FlowCellType},
		{"Kit", m.Kit},
		{"Basecalling", m.Basecalling},
		{"Modified basecalling", m.ModifiedBasecalling},
		{"Modifications", m.Modifications},
		{"Trim barcodes", m.TrimBarcodes},
		{"Basecall model", m.BasecallingModel},
		{"Basecall config", m.BasecallingConfig},
		{"Run limit", m.RunLimit},
	}
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		fmt.Fprintf(&b, "%-20s : %s\n", l.label, l.value)
	}
	if m.ReadCount > 0 {
		fmt.Fprintf(&b, "%-20s : %d\n", "Read count", m.ReadCount)
	}
	var versions []string
	for name := range m.SoftwareVersions {
		versions = append(versions, name)
	}
	sort.Strings(versions)
	for _, name := range versions {
		fmt.Fprintf(&b, "%-20s : %s\n", name, m.SoftwareVersions[name])
	}
	return strings.TrimSuffix(b.String(), "\n")
}
