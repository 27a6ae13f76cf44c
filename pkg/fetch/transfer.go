package fetch

import (
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// Options controls a fetch transfer.
type Options struct {
	// Dest is the destination directory for the transferred files.
	Dest string
	// Types is the validated list of file types to fetch.
	Types []FileType
	// DryRun makes rsync report what it would transfer without
	// copying anything.
	DryRun bool
	// Runner names the execution backend from the config. Only
	// "local" is supported.
	Runner string
}

// Command is a single external command of a fetch plan.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// BuildCommands constructs the rsync invocations implementing a fetch:
// one pruned-tree transfer for the bulk data types and one for reports
// and sample sheets. The include chain keeps the directory structure
// (--include=*/ plus -m to drop empty directories) while the trailing
// --exclude=* drops everything not explicitly requested.
func BuildCommands(project *promethion.Project, opts Options) []Command {
	var cmds []Command

	var bulkPatterns []string
	wantReports := false
	for _, t := range opts.Types {
		if t == TypeReport {
			wantReports = true
			continue
		}
		bulkPatterns = append(bulkPatterns, typePatterns[t]...)
	}

	src := strings.TrimSuffix(project.Path, "/") + "/"
	dest := strings.TrimSuffix(opts.Dest, "/") + "/"

	if len(bulkPatterns) > 0 {
		cmds = append(cmds, rsyncCommand(src, dest, bulkPatterns, opts.DryRun))
	}
	if wantReports {
		cmds = append(cmds, rsyncCommand(src, dest, reportPatterns, opts.DryRun))
	}
	return cmds
}

func rsyncCommand(src, dest string, patterns []string, dryRun bool) Command {
	args := []string{"-av", "-m"}
	if dryRun {
		args = append(args, "--dry-run")
	}
	args = append(args, "--include=*/")
	for _, pat := range patterns {
		args = append(args, "--include="+pat)
	}
	args = append(args, "--exclude=*", src, dest)
	return Command{Name: "rsync", Args: args}
}

// Run builds and executes the fetch. The data and report transfers run
// concurrently; a failure in either cancels the other and fails the
// fetch. Command output streams to out.
func Run(ctx context.Context, project *promethion.Project, opts Options, out io.Writer) error {
	logger := zerolog.Ctx(ctx)

	if opts.Runner != "" && opts.Runner != "local" {
		return errors.Errorf("%s: unsupported runner (only \"local\" can execute transfers)", opts.Runner)
	}
	cmds := BuildCommands(project, opts)
	if len(cmds) == 0 {
		return errors.New("nothing to fetch")
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range cmds {
		c := c
		g.Go(func() error {
			logger.Info().Str("command", c.String()).Bool("dry_run", opts.DryRun).Msg("running transfer")
			cmd := exec.CommandContext(gctx, c.Name, c.Args...)
			cmd.Stdout = out
			cmd.Stderr = out
			if err := cmd.Run(); err != nil {
				return errors.Errorf("%s: %w", c.String(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
