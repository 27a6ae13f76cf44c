// Package mock builds fake PromethION data directories and MinKNOW
// report files for tests.
package mock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// reportItem is a single title/value entry in an HTML report section.
type reportItem struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// htmlPayloadV24 mimics the embedded report data emitted by MinKNOW 24.*
var htmlPayloadV24 = map[string][]reportItem{
	"run_setup": {
		{"Flow cell type", "FLO-PRO114M"},
		{"Flow cell type alias", "FLO-PRO114M"},
		{"Flow cell ID", "PAW15677"},
		{"Kit type", "SQK-RBK114-24"},
	},
	"run_settings": {
		{"Run limit", "72 hrs"},
		{"Active channel selection", "On"},
		{"Pore scan freq.", "1.5 hrs"},
		{"Reserved pores", "On"},
		{"Minimum read length", "200 bp"},
		{"Basecalling", "Super-accurate basecalling, 400 bps"},
		{"Modified basecalling", "On"},
		{"Modified base context", "5mC & 5hmC"},
		{"Trim barcodes", "Off"},
		{"Mid-read barcode filtering", "Off"},
		{"Min Q score", "10"},
	},
	"data_output_settings": {
		{"FAST5 output", "Off"},
		{"FASTQ data output", "One file every 10 minutes"},
		{"POD5 data output", "One file per hour"},
		{"BAM file output", "On"},
		{"Bulk file output", "Off"},
	},
	"software_versions": {
		{"MinKNOW", "24.02.19"},
		{"Bream", "7.9.8"},
		{"Configuration", "5.9.18"},
		{"Dorado", "7.3.11"},
		{"MinKNOW Core", "5.9.12"},
	},
}

// htmlPayloadV25 mimics the embedded report data emitted by MinKNOW 25.*
var htmlPayloadV25 = map[string][]reportItem{
	"run_setup": {
		{"Flow cell type", "FLO-PRO114M"},
		{"Flow cell type alias", "FLO-PRO114M"},
		{"Flow cell ID", "PBC32212"},
		{"Kit type", "SQK-PCB114-24"},
	},
	"run_settings": {
		{"Run limit", "72 hrs"},
		{"Pore scan freq.", "1.5 hrs"},
		{"Reserved pores", "On"},
		{"Basecalling", "High-accuracy model 400bps"},
		{"Modified basecalling", "Off"},
		{"Trim barcodes", "Off"},
		{"Min Q score", "9"},
	},
	"data_output_settings": {
		{"FAST5 output", "Off"},
		{"FASTQ data output", "One file every 10 minutes"},
		{"POD5 data output", "One file per hour, or 500000000 bases per batch"},
		{"BAM file output", "On"},
		{"Bulk file output", "Off"},
	},
	"software_versions": {
		{"MinKNOW", "25.03.7"},
		{"Bream", "8.4.4"},
		{"Configuration", "6.4.10"},
		{"Dorado", "7.8.3"},
		{"MinKNOW Core", "6.4.8"},
	},
}

// WriteHTMLReport writes a mock MinKNOW HTML report. minknowVersion is
// "24" or "25".
func WriteHTMLReport(path, minknowVersion string) error {
	var payload map[string][]reportItem
	switch minknowVersion {
	case "24":
		payload = htmlPayloadV24
	case "25":
		payload = htmlPayloadV25
	default:
		return errors.Errorf("no mock report data for MinKNOW version %q", minknowVersion)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Errorf("marshalling report payload: %w", err)
	}
	content := fmt.Sprintf("<html>\n<script>\nconst reportDataJson = %s;\n</script>\n</html>\n", data)
	return os.WriteFile(path, []byte(content), 0o644)
}

// WriteJSONReport writes a mock MinKNOW JSON report. The v24 payload
// carries a basecalling config filename, the v25 one does not.
func WriteJSONReport(path, minknowVersion string) error {
	summary := map[string]any{
		"basecalling_model_version": "dna_r10.4.1_e8.2_400bps_hac@v4.3.0",
	}
	if minknowVersion == "24" {
		summary["basecalling_config_filename"] = "dna_r10.4.1_e8.2_400bps_5khz_modbases_5hmc_5mc_cg_hac.cfg"
	}
	payload := map[string]any{
		"acquisitions": []any{
			map[string]any{
				"acquisition_run_info": map[string]any{
					"config_summary": summary,
					"yield_summary": map[string]any{
						"read_count": 12345678,
					},
				},
			},
		},
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Errorf("marshalling report payload: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteMarkdownReport writes a mock Markdown report with a simple
// key/value table.
func WriteMarkdownReport(path string) error {
	content := `# Sequencing report

Flow cell ID: PBC32212
Flow cell type: FLO-PRO114M
Kit type: SQK-PCB114-24
Basecalling: High-accuracy model 400bps
Modified basecalling: Off
Trim barcodes: Off
Run limit: 72 hrs
`
	return os.WriteFile(path, []byte(content), 0o644)
}

// FlowCellDir describes a fake flow cell directory to create.
type FlowCellDir struct {
	Name string
	Run  string // optional parent run directory
	Pool string // optional parent pool directory

	// Report formats to create ("html", "json", "md"); defaults to
	// {"html", "json"} when nil.
	Reports []string
	// MinKNOW version for report payloads; defaults to "25".
	MinknowVersion string
	// Number of barcode subdirectories per data dir; defaults to 24.
	Barcodes int
	// Extra data directories to create alongside the defaults.
	ExtraDirs []string
}

// Create builds the fake flow cell directory under topDir and returns
// its path. The layout mirrors real PromethION output: pod5, pod5_skip,
// bam_pass/fail and fastq_pass/fail with barcode subdirectories, and
// report files.
func (f FlowCellDir) Create(topDir string) (string, error) {
	path := topDir
	if f.Run != "" {
		path = filepath.Join(path, f.Run)
	}
	if f.Pool != "" {
		path = filepath.Join(path, f.Pool)
	}
	path = filepath.Join(path, f.Name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	barcodes := f.Barcodes
	if barcodes == 0 {
		barcodes = 24
	}
	for _, d := range []string{"pod5", "pod5_skip"} {
		if err := os.Mkdir(filepath.Join(path, d), 0o755); err != nil {
			return "", err
		}
	}
	for _, prefix := range []string{"bam", "fastq"} {
		for _, outcome := range []string{"pass", "fail"} {
			dir := filepath.Join(path, prefix+"_"+outcome)
			if err := CreateBarcodeDirs(dir, barcodes); err != nil {
				return "", err
			}
		}
	}
	for _, d := range f.ExtraDirs {
		if err := os.MkdirAll(filepath.Join(path, d), 0o755); err != nil {
			return "", err
		}
	}
	if err := writeReports(path, f.Name, f.Reports, f.MinknowVersion); err != nil {
		return "", err
	}
	return path, nil
}

// BasecallsDir describes a fake re-basecalling directory to create.
type BasecallsDir struct {
	RelPath      string // path relative to the project directory
	FlowCellName string // optional, used to name the report files

	Reports        []string
	MinknowVersion string
	Barcodes       int
}

// Create builds the fake basecalls directory under topDir and returns
// its path.
func (b BasecallsDir) Create(topDir string) (string, error) {
	path := filepath.Join(topDir, filepath.FromSlash(b.RelPath))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	barcodes := b.Barcodes
	if barcodes == 0 {
		barcodes = 24
	}
	for _, outcome := range []string{"pass", "fail"} {
		if err := CreateBarcodeDirs(filepath.Join(path, outcome), barcodes); err != nil {
			return "", err
		}
	}
	if b.FlowCellName != "" {
		if err := writeReports(path, b.FlowCellName, b.Reports, b.MinknowVersion); err != nil {
			return "", err
		}
	}
	return path, nil
}

// ProjectDir describes a fake PromethION project directory tree.
type ProjectDir struct {
	Name          string
	FlowCells     []FlowCellDir
	BasecallsDirs []BasecallsDir
}

// Create builds the project tree under topDir and returns the project
// directory path.
func (p ProjectDir) Create(topDir string) (string, error) {
	path := filepath.Join(topDir, p.Name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return "", err
	}
	for _, fc := range p.FlowCells {
		if _, err := fc.Create(path); err != nil {
			return "", err
		}
	}
	for _, bc := range p.BasecallsDirs {
		if _, err := bc.Create(path); err != nil {
			return "", err
		}
	}
	return path, nil
}

// CreateBarcodeDirs creates dir with barcode01..barcodeNN
// subdirectories.
func CreateBarcodeDirs(dir string, n int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		if err := os.Mkdir(filepath.Join(dir, fmt.Sprintf("barcode%02d", i)), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Touch creates an empty file, creating parent directories as needed.
func Touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, nil, 0o644)
}

func writeReports(dir, name string, formats []string, minknowVersion string) error {
	if formats == nil {
		formats = []string{"html", "json"}
	}
	if minknowVersion == "" {
		minknowVersion = "25"
	}
	for _, format := range formats {
		path := filepath.Join(dir, fmt.Sprintf("report_%s.%s", name, format))
		var err error
		switch format {
		case "html":
			err = WriteHTMLReport(path, minknowVersion)
		case "json":
			err = WriteJSONReport(path, minknowVersion)
		case "md":
			err = WriteMarkdownReport(path)
		default:
			err = errors.Errorf("unsupported mock report format %q", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
