package analysis

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// BasecallsRow is one entry of the basecalling.tsv table collated into
// an analysis directory: a flow cell or re-basecalling directory with
// the metadata pulled from its reports.
type BasecallsRow struct {
	Run           string `csv:"Run"`
	PoolName      string `csv:"PoolName"`
	SubDir        string `csv:"SubDir"`
	FlowCellID    string `csv:"FlowCellID"`
	Reports       string `csv:"Reports"`
	Kit           string `csv:"Kit"`
	Modifications string `csv:"Modifications"`
	TrimBarcodes  string `csv:"TrimBarcodes"`
}

// BasecallsFile is the name of the collated basecalls table inside an
// analysis directory.
const BasecallsFile = "basecalling.tsv"

// Dir is a project analysis directory: a place to store metadata about
// a project and any data produced by downstream analysis.
type Dir struct {
	Path    string
	Info    *ProjectInfo
	Samples *Samples
}

// Open loads an existing analysis directory. A missing samples table
// is normal (not every project has one); a missing project.info is
// reported but still yields a usable handle.
func Open(ctx context.Context, path string) (*Dir, error) {
	logger := zerolog.Ctx(ctx)

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if fi, err := os.Stat(abs); err != nil || !fi.IsDir() {
		return nil, errors.Errorf("%s: not an analysis directory", path)
	}
	d := &Dir{Path: abs, Info: &ProjectInfo{}, Samples: &Samples{}}

	infoFile := filepath.Join(abs, ProjectInfoFile)
	if _, err := os.Stat(infoFile); err == nil {
		d.Info, err = LoadProjectInfo(infoFile)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn().Str("path", abs).Msgf("no %q file found", ProjectInfoFile)
	}

	samplesFile := filepath.Join(abs, SamplesFile)
	if _, err := os.Stat(samplesFile); err == nil {
		d.Samples, err = LoadSamples(samplesFile)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// CreateOptions carries the metadata for a new analysis directory.
// User, PI, Application and Organism are required.
type CreateOptions struct {
	User        string
	PI          string
	Application string
	Organism    string

	// SamplesIndex is an optional path to a samples index file
	// ("sample,barcode[,flowcell]" rows).
	SamplesIndex string

	// Permissions and Group are optionally applied to the created
	// directory (chmod/chgrp symbolic arguments from the config).
	Permissions string
	Group       string
}

func (o CreateOptions) validate() error {
	missing := []string{}
	for _, f := range []struct{ name, value string }{
		{"user", o.User},
		{"pi", o.PI},
		{"application", o.Application},
		{"organism", o.Organism},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required metadata: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Create builds a new analysis directory for a scanned project under
// destDir, named "<ProjectName>_analysis". Creation is all or nothing:
// every input is validated before anything is written, the destination
// must not already exist, and a failure part-way through removes
// whatever was written.
func Create(ctx context.Context, project *promethion.Project, destDir string, opts CreateOptions) (*Dir, error) {
	logger := zerolog.Ctx(ctx)

	if err := opts.validate(); err != nil {
		return nil, err
	}

	// Parse the samples index before touching the filesystem
	var samples *Samples
	if opts.SamplesIndex != "" {
		var err error
		samples, err = ParseSamplesIndex(opts.SamplesIndex, project.FlowCellIDs())
		if err != nil {
			return nil, err
		}
	}

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(destAbs, project.Name+"_analysis")
	if _, err := os.Stat(path); err == nil {
		return nil, errors.Errorf("%s: already exists", path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.Errorf("creating analysis directory: %w", err)
	}
	logger.Info().Str("path", path).Msg("creating analysis directory")

	d := &Dir{Path: path, Samples: samples}
	if err := d.populate(ctx, project, opts); err != nil {
		// Nothing partially written survives a failed create
		if rmErr := os.RemoveAll(path); rmErr != nil {
			logger.Error().Err(rmErr).Str("path", path).Msg("failed to clean up analysis directory")
		}
		return nil, err
	}
	return d, nil
}

func (d *Dir) populate(ctx context.Context, project *promethion.Project, opts CreateOptions) error {
	logger := zerolog.Ctx(ctx)

	d.Info = &ProjectInfo{
		Name:        project.Name,
		ID:          project.ID(),
		Datestamp:   project.Datestamp(),
		Platform:    Platform,
		User:        strings.TrimSpace(opts.User),
		PI:          strings.TrimSpace(opts.PI),
		Application: strings.TrimSpace(opts.Application),
		Organism:    strings.TrimSpace(opts.Organism),
		DataDir:     project.Path,
	}
	if err := d.Info.Save(filepath.Join(d.Path, ProjectInfoFile)); err != nil {
		return err
	}

	if d.Samples != nil {
		if err := d.Samples.Save(filepath.Join(d.Path, SamplesFile)); err != nil {
			return err
		}
	} else {
		d.Samples = &Samples{}
	}

	if err := writeBasecallsTable(filepath.Join(d.Path, BasecallsFile), project); err != nil {
		return err
	}

	for _, subdir := range []string{"logs", "ScriptCode"} {
		if err := os.Mkdir(filepath.Join(d.Path, subdir), 0o755); err != nil {
			return errors.Errorf("creating %s subdirectory: %w", subdir, err)
		}
	}

	if err := copyReports(ctx, project, filepath.Join(d.Path, "reports")); err != nil {
		return err
	}

	if err := d.writeReadme(); err != nil {
		return err
	}

	if opts.Permissions != "" {
		if err := applyMode(ctx, d.Path, "chmod", opts.Permissions); err != nil {
			return err
		}
	}
	if opts.Group != "" {
		if err := applyMode(ctx, d.Path, "chgrp", opts.Group); err != nil {
			return err
		}
	}

	logger.Info().
		Str("project", project.Name).
		Int("flow_cells", len(project.FlowCells)).
		Int("samples", d.Samples.Len()).
		Msg("analysis directory created")
	return nil
}

// BasecallsRows collates the flow cell and basecalls directory
// information of a scanned project into table rows, flow cells first.
func BasecallsRows(project *promethion.Project) []BasecallsRow {
	rows := make([]BasecallsRow, 0, len(project.FlowCells)+len(project.BasecallsDirs))
	for _, fc := range project.FlowCells {
		rows = append(rows, BasecallsRow{
			Run:           fmtValue(fc.Run),
			PoolName:      fmtValue(fc.Pool),
			SubDir:        fc.String(),
			FlowCellID:    fc.ID,
			Reports:       fmtYesNo(len(fc.Reports) > 0),
			Kit:           fmtValue(fc.Metadata.Kit),
			Modifications: fmtModifications(fc.Metadata),
			TrimBarcodes:  fmtValue(fc.Metadata.TrimBarcodes),
		})
	}
	for _, bc := range project.BasecallsDirs {
		rows = append(rows, BasecallsRow{
			Run:           fmtValue(bc.Run),
			PoolName:      fmtValue(bc.Name),
			SubDir:        bc.String(),
			FlowCellID:    fmtValue(bc.Metadata.FlowCellID),
			Reports:       fmtYesNo(len(bc.Reports) > 0),
			Kit:           fmtValue(bc.Metadata.Kit),
			Modifications: fmtModifications(bc.Metadata),
			TrimBarcodes:  fmtValue(bc.Metadata.TrimBarcodes),
		})
	}
	return rows
}

// writeBasecallsTable writes the collated rows as the TSV summary.
func writeBasecallsTable(path string, project *promethion.Project) error {
	rows := BasecallsRows(project)

	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("writing basecalls table: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(w)); err != nil {
		return errors.Errorf("%s: marshalling basecalls table: %w", path, err)
	}
	return nil
}

// copyReports copies the HTML reports found in the primary data into
// the analysis directory, renamed to identify their origin.
func copyReports(ctx context.Context, project *promethion.Project, reportsDir string) error {
	logger := zerolog.Ctx(ctx)

	if err := os.Mkdir(reportsDir, 0o755); err != nil {
		return errors.Errorf("creating reports subdirectory: %w", err)
	}
	for _, fc := range project.FlowCells {
		src := fc.Report(promethion.ReportHTML)
		if src == "" {
			continue
		}
		target := filepath.Join(reportsDir,
			fmt.Sprintf("%s_%s_%s", fc.Pool, fc.ID, filepath.Base(src)))
		if err := copyFile(src, target); err != nil {
			return err
		}
		logger.Debug().Str("report", target).Msg("copied flow cell report")
	}
	for _, bc := range project.BasecallsDirs {
		src := bc.Report(promethion.ReportHTML)
		if src == "" {
			continue
		}
		target := filepath.Join(reportsDir,
			fmt.Sprintf("%s_%s_%s_%s", bc.Parent, bc.Pool, bc.Metadata.FlowCellID, filepath.Base(src)))
		if err := copyFile(src, target); err != nil {
			return err
		}
		logger.Debug().Str("report", target).Msg("copied basecalls report")
	}
	return nil
}

func (d *Dir) writeReadme() error {
	var b strings.Builder
	fmt.Fprintf(&b, "This is the analysis directory for %s\n\n", d.Info.Name)
	b.WriteString("The following files have been automatically generated:\n\n")
	fmt.Fprintf(&b, "- '%s': top-level information about the project\n", ProjectInfoFile)
	fmt.Fprintf(&b, "- '%s': TSV file with information about the flow cell and base\n"+
		"  calling directories (extracted from the primary data directory)\n", BasecallsFile)
	if d.Samples.Len() > 0 {
		fmt.Fprintf(&b, "- '%s': TSV file matching sample names to flow cell and barcode IDs\n",
			SamplesFile)
	}
	b.WriteString("\nThe 'reports' subdirectory contains copies of the HTML reports that\n" +
		"were found in the primary data directory (renamed to identify the\n" +
		"associated locations).\n")
	if err := os.WriteFile(filepath.Join(d.Path, "README"), []byte(b.String()), 0o644); err != nil {
		return errors.Errorf("writing README: %w", err)
	}
	return nil
}

// applyMode runs chmod or chgrp recursively over the analysis
// directory. Symbolic mode strings (e.g. "ug+rwX") only make sense to
// the external tools, so this shells out rather than parsing them.
func applyMode(ctx context.Context, path, tool, arg string) error {
	cmd := exec.CommandContext(ctx, tool, "-R", arg, path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Errorf("%s -R %s: %w (%s)", tool, arg, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Errorf("copying %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return errors.Errorf("copying to %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return errors.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

func fmtValue(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

func fmtYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// fmtModifications renders the modified-basecalling state: "none" when
// modified basecalling was off, "?" when unknown.
func fmtModifications(m promethion.Metadata) string {
	if m.ModifiedBasecalling == "Off" {
		return "none"
	}
	return fmtValue(m.Modifications)
}
