package promethion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcf-ngs/promcat/pkg/mock"
)

func TestScanProject(t *testing.T) {
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
			{
				Name:           "20250212_0910_2B_PBC32212_9c0d1e2f",
				Run:            "Run1",
				Pool:           "PoolB",
				MinknowVersion: "25",
				Barcodes:       2,
			},
		},
		BasecallsDirs: []mock.BasecallsDir{
			{
				RelPath:        "Run1/PoolA/rebasecalled",
				FlowCellName:   "20250124_1523_1A_PAW15677_2f837de2",
				MinknowVersion: "24",
				Barcodes:       4,
			},
		},
	}
	path, err := project.Create(t.TempDir())
	require.NoError(t, err, "creating mock project")

	got, err := Scan(context.Background(), path)
	require.NoError(t, err, "scan should succeed")

	assert.Equal(t, "PromethION_Project_002_PGriffin", got.Name, "project name should match")
	assert.Equal(t, 2, got.Number, "project number should be parsed")
	assert.Equal(t, "PROMETHION#002", got.ID(), "project ID should be derived")
	assert.Equal(t, "20250124", got.Datestamp(), "earliest flow cell datestamp wins")
	assert.Empty(t, got.Diagnostics, "clean tree should raise no diagnostics")

	require.Len(t, got.FlowCells, 2, "both flow cells should be found")
	fc := got.FlowCell("PAW15677")
	require.NotNil(t, fc, "flow cell should be addressable by ID")
	assert.Equal(t, "PoolA", fc.Pool, "pool comes from the parent directory")
	assert.Equal(t, "Run1", fc.Run, "run comes from the grandparent directory")
	assert.Equal(t, []int{1, 2, 3, 4}, fc.Barcodes, "barcodes are the union across data dirs")
	assert.Equal(t, []string{"bam", "fastq", "pod5"}, fc.FileTypes(), "file types should be categorized")
	assert.Equal(t, "SQK-RBK114-24", fc.Metadata.Kit, "kit should come from the HTML report")
	assert.Equal(t, "dna_r10.4.1_e8.2_400bps_hac@v4.3.0", fc.Metadata.BasecallingModel,
		"model should come from the JSON report")

	require.Len(t, got.BasecallsDirs, 1, "basecalls dir should be found")
	bc := got.BasecallsDirs[0]
	assert.Equal(t, "rebasecalled", bc.Name, "basecalls dir name should match")
	assert.Equal(t, "PoolA", bc.Pool, "basecalls dir should be matched to its pool")
	assert.Equal(t, "Run1", bc.Run, "basecalls dir should inherit the pool's run")
	assert.Equal(t, "PAW15677", bc.Metadata.FlowCellID, "flow cell ID should come from the report")
}

func TestScanPoolsWithAndWithoutRunLevel(t *testing.T) {
	// The run level is optional: pools attached directly to the project
	// root must come out with the same pool names.
	withRun := mock.ProjectDir{
		Name: "PromethION_Project_010_WithRun",
		FlowCells: []mock.FlowCellDir{
			{Name: "20250124_1523_1A_PAW15677_2f837de2", Run: "Run1", Pool: "PoolA", Barcodes: 2},
		},
	}
	withoutRun := mock.ProjectDir{
		Name: "PromethION_Project_011_WithoutRun",
		FlowCells: []mock.FlowCellDir{
			{Name: "20250124_1523_1A_PAW15677_2f837de2", Pool: "PoolA", Barcodes: 2},
		},
	}

	pathA, err := withRun.Create(t.TempDir())
	require.NoError(t, err)
	pathB, err := withoutRun.Create(t.TempDir())
	require.NoError(t, err)

	projA, err := Scan(context.Background(), pathA)
	require.NoError(t, err)
	projB, err := Scan(context.Background(), pathB)
	require.NoError(t, err)

	poolsA := projA.Pools()
	poolsB := projB.Pools()
	require.Len(t, poolsA, 1, "one pool with run level")
	require.Len(t, poolsB, 1, "one pool without run level")
	assert.Equal(t, poolsA[0].Name, poolsB[0].Name, "pool names should be identical")
	assert.Equal(t, "Run1", poolsA[0].Run, "run should be recorded when present")
	assert.Empty(t, poolsB[0].Run, "run collapses to empty when absent")
}

func TestScanRepeatedPool(t *testing.T) {
	project := mock.ProjectDir{
		Name: "PromethION_Project_012_Repeats",
		FlowCells: []mock.FlowCellDir{
			{Name: "20250124_1523_1A_PAW15677_2f837de2", Run: "Run1", Pool: "PoolA", Barcodes: 2},
			{Name: "20250301_0900_1A_PAW99001_3a4b5c6d", Run: "Run2", Pool: "PoolA", Barcodes: 2},
		},
	}
	path, err := project.Create(t.TempDir())
	require.NoError(t, err)

	got, err := Scan(context.Background(), path)
	require.NoError(t, err)

	pools := got.Pools()
	require.Len(t, pools, 2, "re-sequenced pool yields one entry per run")
	assert.Equal(t, "PoolA", pools[0].Name, "first instance keeps the pool name")
	assert.Equal(t, 1, pools[0].Repeat, "earliest run is repeat 1")
	assert.Equal(t, "Run1", pools[0].Run, "repeats are ordered by datestamp")
	assert.Equal(t, 2, pools[1].Repeat, "later run is repeat 2")
	assert.Equal(t, "Run2", pools[1].Run, "second instance comes from the later run")
}

func TestScanDiagnostics(t *testing.T) {
	project := mock.ProjectDir{
		Name: "UnconventionalName",
		FlowCells: []mock.FlowCellDir{
			{Name: "20250124_1523_1A_PAW15677_2f837de2", Pool: "PoolA", Barcodes: 2},
		},
	}
	path, err := project.Create(t.TempDir())
	require.NoError(t, err)

	// A near-miss flow cell name and a malformed barcode should both
	// surface as diagnostics without failing the scan.
	_, err = mock.FlowCellDir{Name: "20250125_0800_1B_PAW99887_NOTAHASH", Pool: "PoolA", Barcodes: 2}.Create(path)
	require.NoError(t, err)
	require.NoError(t, mock.Touch(path+"/PoolA/20250124_1523_1A_PAW15677_2f837de2/bam_pass/barcode99/reads.bam"))

	got, err := Scan(context.Background(), path)
	require.NoError(t, err, "diagnostics must not fail the scan")

	assert.Len(t, got.FlowCells, 1, "the near-miss directory is not a flow cell")
	problems := make([]string, 0, len(got.Diagnostics))
	for _, d := range got.Diagnostics {
		problems = append(problems, d.Problem)
	}
	assert.Contains(t, problems,
		"directory name does not follow the PromethION_Project_<NNN>_<Name> convention",
		"unconventional project name should be diagnosed")
	found := 0
	for _, p := range problems {
		if p == "" {
			continue
		}
		found++
	}
	assert.GreaterOrEqual(t, found, 3, "near-miss name and malformed barcode should be diagnosed")
}

func TestScanIdempotence(t *testing.T) {
	project := mock.ProjectDir{
		Name: "PromethION_Project_013_Stable",
		FlowCells: []mock.FlowCellDir{
			{Name: "20250124_1523_1A_PAW15677_2f837de2", Run: "Run1", Pool: "PoolA", Barcodes: 3},
			{Name: "20250212_0910_2B_PBC32212_9c0d1e2f", Run: "Run1", Pool: "PoolB", Barcodes: 3},
		},
		BasecallsDirs: []mock.BasecallsDir{
			{RelPath: "Run1/PoolB/redo", FlowCellName: "20250212_0910_2B_PBC32212_9c0d1e2f", Barcodes: 3},
		},
	}
	path, err := project.Create(t.TempDir())
	require.NoError(t, err)

	first, err := Scan(context.Background(), path)
	require.NoError(t, err)
	second, err := Scan(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second, "scanning an unchanged tree twice should be identical")
}
