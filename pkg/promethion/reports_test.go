package promethion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcf-ngs/promcat/pkg/mock"
)

func TestLoadHTMLReport(t *testing.T) {
	tests := []struct {
		name           string
		minknowVersion string
		check          func(t *testing.T, m Metadata)
	}{
		{
			name:           "minknow_24",
			minknowVersion: "24",
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, "PAW15677", m.FlowCellID, "flow cell ID should match")
				assert.Equal(t, "FLO-PRO114M", m.FlowCellType, "flow cell type should match")
				assert.Equal(t, "SQK-RBK114-24", m.Kit, "kit should match")
				assert.Equal(t, "On", m.ModifiedBasecalling, "modified basecalling should be on")
				assert.Equal(t, "5mC & 5hmC", m.Modifications,
					"modifications come from the renamed field")
				assert.Equal(t, "Off", m.TrimBarcodes, "trim barcodes should match")
				assert.Equal(t, "72 hrs", m.RunLimit, "run limit should match")
				assert.Equal(t, "24.02.19", m.SoftwareVersions["minknow"], "software versions should be captured")
			},
		},
		{
			name:           "minknow_25",
			minknowVersion: "25",
			check: func(t *testing.T, m Metadata) {
				assert.Equal(t, "PBC32212", m.FlowCellID, "flow cell ID should match")
				assert.Equal(t, "SQK-PCB114-24", m.Kit, "kit should match")
				assert.Equal(t, "Off", m.ModifiedBasecalling, "modified basecalling should be off")
				assert.Empty(t, m.Modifications, "no modifications when modified basecalling is off")
				assert.Equal(t, "25.03.7", m.SoftwareVersions["minknow"], "software versions should be captured")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "report_test.html")
			require.NoError(t, mock.WriteHTMLReport(path, tt.minknowVersion), "writing mock report")

			got, err := LoadHTMLReport(path)
			require.NoError(t, err, "loading HTML report should succeed")
			tt.check(t, got)
		})
	}
}

func TestLoadHTMLReportWithoutEmbeddedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_bad.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body>no data here</body></html>"), 0o644))

	_, err := LoadHTMLReport(path)
	require.Error(t, err, "report without embedded JSON should fail to load")
	assert.Contains(t, err.Error(), "unable to locate embedded JSON data", "error should name the problem")
}

func TestLoadJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_test.json")
	require.NoError(t, mock.WriteJSONReport(path, "24"), "writing mock report")

	got, err := LoadJSONReport(path)
	require.NoError(t, err, "loading JSON report should succeed")
	assert.Equal(t, "dna_r10.4.1_e8.2_400bps_hac@v4.3.0", got.BasecallingModel, "model should match")
	assert.Equal(t, "dna_r10.4.1_e8.2_400bps_5khz_modbases_5hmc_5mc_cg_hac.cfg",
		got.BasecallingConfig, "config filename should match")
	assert.Equal(t, int64(12345678), got.ReadCount, "read counts should be summed")
}

func TestLoadMarkdownReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_test.md")
	require.NoError(t, mock.WriteMarkdownReport(path), "writing mock report")

	got, err := LoadMarkdownReport(path)
	require.NoError(t, err, "loading Markdown report should succeed")
	assert.Equal(t, "PBC32212", got.FlowCellID, "flow cell ID should match")
	assert.Equal(t, "SQK-PCB114-24", got.Kit, "kit should match")
	assert.Equal(t, "Off", got.TrimBarcodes, "trim barcodes should match")
}

func TestExtractMetadataPrecedence(t *testing.T) {
	// When multiple report formats disagree on a field, the more
	// structured format wins: HTML, then Markdown, then JSON.
	dir := t.TempDir()
	require.NoError(t, mock.WriteHTMLReport(filepath.Join(dir, "report_x.html"), "24"))
	require.NoError(t, mock.WriteMarkdownReport(filepath.Join(dir, "report_x.md")))
	require.NoError(t, mock.WriteJSONReport(filepath.Join(dir, "report_x.json"), "24"))

	got := ExtractMetadata(context.Background(), dir,
		[]string{"report_x.html", "report_x.json", "report_x.md"})

	// The Markdown mock reports a different kit than the v24 HTML one
	assert.Equal(t, "SQK-PCB114-24", got.Kit, "Markdown should override HTML")
	assert.Equal(t, "PBC32212", got.FlowCellID, "Markdown should override HTML")
	assert.Equal(t, "dna_r10.4.1_e8.2_400bps_hac@v4.3.0", got.BasecallingModel,
		"model only exists in the JSON report")
	assert.Equal(t, int64(12345678), got.ReadCount, "read count only exists in the JSON report")
	assert.Equal(t, "24.02.19", got.SoftwareVersions["minknow"],
		"software versions only exist in the HTML report")
}

func TestExtractMetadataSkipsBrokenReports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_x.html"), []byte("not a report"), 0o644))
	require.NoError(t, mock.WriteJSONReport(filepath.Join(dir, "report_x.json"), "25"))

	got := ExtractMetadata(context.Background(), dir, []string{"report_x.html", "report_x.json"})
	assert.Equal(t, "dna_r10.4.1_e8.2_400bps_hac@v4.3.0", got.BasecallingModel,
		"usable reports still contribute when another is broken")
	assert.Empty(t, got.Kit, "nothing recovered from the broken report")
}

func TestMetadataIsEmpty(t *testing.T) {
	assert.True(t, Metadata{}.IsEmpty(), "zero metadata is empty")
	assert.False(t, Metadata{Kit: "SQK-RBK114-24"}.IsEmpty(), "any field makes it non-empty")
}
