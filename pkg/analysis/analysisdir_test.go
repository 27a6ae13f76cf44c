package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcf-ngs/promcat/pkg/mock"
	"github.com/bcf-ngs/promcat/pkg/promethion"
)

func scanMockProject(t *testing.T) *promethion.Project {
	t.Helper()
	project := mock.ProjectDir{
		Name: "PromethION_Project_002_PGriffin",
		FlowCells: []mock.FlowCellDir{
			{
				Name:           "20250124_1523_1A_PAW15677_2f837de2",
				Run:            "Run1",
				Pool:           "PoolA",
				MinknowVersion: "24",
				Barcodes:       4,
			},
		},
	}
	path, err := project.Create(t.TempDir())
	require.NoError(t, err, "creating mock project")
	scanned, err := promethion.Scan(context.Background(), path)
	require.NoError(t, err, "scanning mock project")
	return scanned
}

func validOptions() CreateOptions {
	return CreateOptions{
		User:        "jdoe",
		PI:          "pgriffin",
		Application: "WGS",
		Organism:    "human",
	}
}

func TestCreateAnalysisDir(t *testing.T) {
	project := scanMockProject(t)
	dest := t.TempDir()

	opts := validOptions()
	samplesIndex := filepath.Join(t.TempDir(), "samples.csv")
	require.NoError(t, os.WriteFile(samplesIndex,
		[]byte("Sample,Barcode\nPG1,1\nPG2,2\n"), 0o644))
	opts.SamplesIndex = samplesIndex

	dir, err := Create(context.Background(), project, dest, opts)
	require.NoError(t, err, "create should succeed")
	assert.Equal(t, filepath.Join(dest, project.Name+"_analysis"), dir.Path,
		"directory name should carry the _analysis suffix")

	info, err := LoadProjectInfo(filepath.Join(dir.Path, ProjectInfoFile))
	require.NoError(t, err, "project info should be written")
	assert.Equal(t, project.Name, info.Name, "name should match the project")
	assert.Equal(t, "PROMETHION#002", info.ID, "ID should be derived from the name")
	assert.Equal(t, "20250124", info.Datestamp, "datestamp should be the earliest flow cell date")
	assert.Equal(t, Platform, info.Platform, "platform is always promethion")
	assert.Equal(t, "jdoe", info.User, "user should match")
	assert.Equal(t, project.Path, info.DataDir, "primary data dir should be recorded")

	for _, sub := range []string{"logs", "ScriptCode", "reports"} {
		fi, err := os.Stat(filepath.Join(dir.Path, sub))
		require.NoError(t, err, "%s subdirectory should exist", sub)
		assert.True(t, fi.IsDir(), "%s should be a directory", sub)
	}

	table, err := os.ReadFile(filepath.Join(dir.Path, BasecallsFile))
	require.NoError(t, err, "basecalls table should be written")
	lines := strings.Split(strings.TrimSpace(string(table)), "\n")
	require.Len(t, lines, 2, "header plus one flow cell row")
	assert.Equal(t, "Run\tPoolName\tSubDir\tFlowCellID\tReports\tKit\tModifications\tTrimBarcodes",
		lines[0], "header should match")
	assert.Contains(t, lines[1], "PAW15677", "row should carry the flow cell ID")
	assert.Contains(t, lines[1], "SQK-RBK114-24", "row should carry the kit")

	samples, err := LoadSamples(filepath.Join(dir.Path, SamplesFile))
	require.NoError(t, err, "samples table should be written")
	assert.Equal(t, []string{"PG1", "PG2"}, samples.Names(), "samples should come from the index")
	assert.Equal(t, "PAW15677", samples.Entries()[0].Flowcell,
		"single-flow-cell project implies the flow cell")

	readme, err := os.ReadFile(filepath.Join(dir.Path, "README"))
	require.NoError(t, err, "README should be written")
	assert.Contains(t, string(readme), project.Name, "README should name the project")

	reports, err := os.ReadDir(filepath.Join(dir.Path, "reports"))
	require.NoError(t, err)
	require.Len(t, reports, 1, "the HTML report should be copied")
	assert.Equal(t, "PoolA_PAW15677_report_20250124_1523_1A_PAW15677_2f837de2.html",
		reports[0].Name(), "copied report should be renamed to identify its origin")
}

func TestCreateRequiresMetadata(t *testing.T) {
	project := scanMockProject(t)
	dest := t.TempDir()

	opts := validOptions()
	opts.Organism = "  "
	_, err := Create(context.Background(), project, dest, opts)
	require.Error(t, err, "missing organism should fail")
	assert.Contains(t, err.Error(), "organism", "error should name the missing field")

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing should be created on validation failure")
}

func TestCreateRefusesToOverwrite(t *testing.T) {
	project := scanMockProject(t)
	dest := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dest, project.Name+"_analysis"), 0o755))

	_, err := Create(context.Background(), project, dest, validOptions())
	require.Error(t, err, "existing destination should fail")
	assert.Contains(t, err.Error(), "already exists", "error should name the problem")
}

func TestCreateIsAllOrNothing(t *testing.T) {
	project := scanMockProject(t)
	dest := t.TempDir()

	opts := validOptions()
	opts.SamplesIndex = filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(opts.SamplesIndex,
		[]byte("Sample,Barcode\nPG1,99\n"), 0o644))

	_, err := Create(context.Background(), project, dest, opts)
	require.Error(t, err, "bad samples index should fail the create")

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial analysis directory should be left behind")
}

func TestOpenAnalysisDir(t *testing.T) {
	project := scanMockProject(t)
	created, err := Create(context.Background(), project, t.TempDir(), validOptions())
	require.NoError(t, err, "create should succeed")

	opened, err := Open(context.Background(), created.Path)
	require.NoError(t, err, "open should succeed")
	assert.Equal(t, created.Path, opened.Path, "path should match")
	assert.Equal(t, project.Name, opened.Info.Name, "project info should be loaded")
	assert.Equal(t, 0, opened.Samples.Len(), "no samples table means an empty table")

	_, err = Open(context.Background(), filepath.Join(created.Path, "does-not-exist"))
	assert.Error(t, err, "missing directory should fail")
}
