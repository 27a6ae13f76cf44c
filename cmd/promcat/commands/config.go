package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcf-ngs/promcat/cmd/promcat/opts"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.Config

			location := cfg.Location()
			if location == "" {
				location = "<built-in defaults>"
			}
			var b strings.Builder
			fmt.Fprintf(&b, "config file      : %s\n", location)
			fmt.Fprintf(&b, "default runner   : %s\n", cfg.General.DefaultRunner)
			fmt.Fprintf(&b, "rsync runner     : %s\n", cfg.RsyncRunner())
			fmt.Fprintf(&b, "permissions      : %s\n", orUnset(cfg.General.Permissions))
			fmt.Fprintf(&b, "group            : %s\n", orUnset(cfg.General.Group))
			fmt.Fprintf(&b, "default types    : %s\n", strings.Join(cfg.DefaultFileTypes, ","))
			fmt.Fprintf(&b, "report templates :\n")
			for _, name := range cfg.TemplateNames() {
				fields, err := cfg.Template(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(&b, "  %-10s %s\n", name, strings.Join(fields, ","))
			}
			opts.Console.Print(strings.TrimSuffix(b.String(), "\n"))
			return nil
		},
	}

	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return "<unset>"
	}
	return s
}
