package promethion

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Metadata holds information about a set of basecalls, extracted from
// MinKNOW report files. Report files are not guaranteed present or
// complete, so every field may be empty: extraction is best effort and
// fields which cannot be located are simply absent.
type Metadata struct {
	FlowCellID          string
	FlowCellType        string
	Kit                 string
	Basecalling         string
	ModifiedBasecalling string
	Modifications       string
	TrimBarcodes        string
	SoftwareVersions    map[string]string
	BasecallingModel    string
	BasecallingConfig   string
	ReadCount           int64
	RunLimit            string
}

// IsEmpty reports whether no fields were extracted at all.
func (m Metadata) IsEmpty() bool {
	return m.FlowCellID == "" && m.FlowCellType == "" && m.Kit == "" &&
		m.Basecalling == "" && m.ModifiedBasecalling == "" &&
		m.Modifications == "" && m.TrimBarcodes == "" &&
		len(m.SoftwareVersions) == 0 && m.BasecallingModel == "" &&
		m.BasecallingConfig == "" && m.ReadCount == 0 && m.RunLimit == ""
}

// merge overlays non-empty fields of other onto m.
func (m *Metadata) merge(other Metadata) {
	if other.FlowCellID != "" {
		m.FlowCellID = other.FlowCellID
	}
	if other.FlowCellType != "" {
		m.FlowCellType = other.FlowCellType
	}
	if other.Kit != "" {
		m.Kit = other.Kit
	}
	if other.Basecalling != "" {
		m.Basecalling = other.Basecalling
	}
	if other.ModifiedBasecalling != "" {
		m.ModifiedBasecalling = other.ModifiedBasecalling
	}
	if other.Modifications != "" {
		m.Modifications = other.Modifications
	}
	if other.TrimBarcodes != "" {
		m.TrimBarcodes = other.TrimBarcodes
	}
	if len(other.SoftwareVersions) > 0 {
		m.SoftwareVersions = other.SoftwareVersions
	}
	if other.BasecallingModel != "" {
		m.BasecallingModel = other.BasecallingModel
	}
	if other.BasecallingConfig != "" {
		m.BasecallingConfig = other.BasecallingConfig
	}
	if other.ReadCount != 0 {
		m.ReadCount = other.ReadCount
	}
	if other.RunLimit != "" {
		m.RunLimit = other.RunLimit
	}
}

// ExtractMetadata extracts basecalls metadata from the report files
// found in dir. Formats are applied least structured first (HTML, then
// Markdown, then JSON) so the more reliable formats win when files
// disagree on a field. A missing or unparseable report is logged and
// skipped, never an error: interrupted live basecalling routinely
// leaves reports absent.
func ExtractMetadata(ctx context.Context, dir string, reports []string) Metadata {
	logger := zerolog.Ctx(ctx)
	var meta Metadata
	for _, format := range []ReportFormat{ReportHTML, ReportMarkdown, ReportJSON} {
		path := reportWithFormat(dir, reports, format)
		if path == "" {
			continue
		}
		m, err := loadReport(path, format)
		if err != nil {
			logger.Warn().Str("report", path).Err(err).Msg("failed to load metadata from report (ignored)")
			continue
		}
		meta.merge(m)
	}
	return meta
}

func loadReport(path string, format ReportFormat) (Metadata, error) {
	switch format {
	case ReportHTML:
		return LoadHTMLReport(path)
	case ReportJSON:
		return LoadJSONReport(path)
	case ReportMarkdown:
		return LoadMarkdownReport(path)
	}
	return Metadata{}, errors.Errorf("%s: unsupported report format %q", path, format)
}

// LoadHTMLReport extracts metadata from a MinKNOW HTML report. The
// report embeds its data as a JSON literal assigned to a JS constant;
// the exact spelling differs between MinKNOW versions.
func LoadHTMLReport(path string) (Metadata, error) {
	data, err := extractEmbeddedJSON(path)
	if err != nil {
		return Metadata{}, err
	}
	return metadataFromReportSections(data), nil
}

// extractEmbeddedJSON locates the JSON data embedded in a MinKNOW HTML
// report.
func extractEmbeddedJSON(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("opening HTML report: %w", err)
	}
	defer f.Close()

	var raw string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, "const reportDataJson = {"); ok {
			raw = "{" + strings.TrimSuffix(rest, ";")
			break
		}
		if rest, ok := strings.CutPrefix(line, "const reportData={"); ok {
			raw = "{" + strings.TrimSuffix(rest, ";")
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Errorf("reading HTML report: %w", err)
	}
	if raw == "" {
		return nil, errors.Errorf("%s: unable to locate embedded JSON data", path)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, errors.Errorf("%s: parsing embedded JSON data: %w", path, err)
	}
	return data, nil
}

// metadataFromReportSections maps the title/value sections of an HTML
// report payload onto Metadata fields. Unknown titles are ignored so
// new MinKNOW versions do not break extraction.
func metadataFromReportSections(data map[string]any) Metadata {
	var meta Metadata
	setup := reportSection(data, "run_setup")
	settings := reportSection(data, "run_settings")
	versions := reportSection(data, "software_versions")

	meta.FlowCellID = setup["flow_cell_id"]
	meta.FlowCellType = setup["flow_cell_type"]
	meta.Kit = setup["kit_type"]
	meta.Basecalling = settings["basecalling"]
	meta.ModifiedBasecalling = settings["modified_basecalling"]
	if meta.ModifiedBasecalling == "On" {
		// The field was renamed between MinKNOW versions
		for _, name := range []string{"modifications", "modified_base_context"} {
			if v := settings[name]; v != "" {
				meta.Modifications = v
				break
			}
		}
	}
	meta.TrimBarcodes = settings["trim_barcodes"]
	meta.RunLimit = settings["run_limit"]
	if len(versions) > 0 {
		meta.SoftwareVersions = versions
	}
	return meta
}

// reportSection flattens a report section (a list of {title, value}
// items) into a map keyed by normalized title.
func reportSection(data map[string]any, name string) map[string]string {
	section := map[string]string{}
	items, ok := data[name].([]any)
	if !ok {
		return section
	}
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := entry["title"].(string)
		value, _ := entry["value"].(string)
		if title == "" {
			continue
		}
		section[normalizeFieldName(title)] = value
	}
	return section
}

// normalizeFieldName converts a report item title to a key: lower
// case, spaces and hyphens to underscores, dots dropped.
func normalizeFieldName(title string) string {
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "")
	return r.Replace(strings.ToLower(title))
}

// LoadJSONReport extracts metadata from a MinKNOW JSON report. The
// schema drifts across basecaller versions, so known fields are probed
// path by path and everything else is ignored.
func LoadJSONReport(path string) (Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Errorf("opening JSON report: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Metadata{}, errors.Errorf("%s: unable to extract JSON data: %w", path, err)
	}

	var meta Metadata
	acquisitions, _ := data["acquisitions"].([]any)
	for _, a := range acquisitions {
		acquisition, ok := a.(map[string]any)
		if !ok {
			continue
		}
		runInfo, _ := acquisition["acquisition_run_info"].(map[string]any)
		if runInfo == nil {
			continue
		}
		if summary, ok := runInfo["config_summary"].(map[string]any); ok {
			if meta.BasecallingModel == "" {
				meta.BasecallingModel, _ = summary["basecalling_model_version"].(string)
			}
			if meta.BasecallingConfig == "" {
				meta.BasecallingConfig, _ = summary["basecalling_config_filename"].(string)
			}
		}
		if yield, ok := runInfo["yield_summary"].(map[string]any); ok {
			if n, ok := yield["read_count"].(float64); ok {
				meta.ReadCount += int64(n)
			}
		}
	}
	return meta, nil
}

// LoadMarkdownReport extracts metadata from a Markdown report. These
// are simple "Key: value" line tables emitted by some report tooling.
func LoadMarkdownReport(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, errors.Errorf("opening Markdown report: %w", err)
	}
	defer f.Close()

	fields := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "- ")
		line = strings.ReplaceAll(line, "**", "")
		key, value, found := strings.Cut(line, ":")
		if !found || key == "" {
			continue
		}
		fields[normalizeFieldName(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Metadata{}, errors.Errorf("reading Markdown report: %w", err)
	}

	meta := Metadata{
		FlowCellID:          firstOf(fields, "flow_cell_id"),
		FlowCellType:        firstOf(fields, "flow_cell_type"),
		Kit:                 firstOf(fields, "kit_type", "kit"),
		Basecalling:         firstOf(fields, "basecalling"),
		ModifiedBasecalling: firstOf(fields, "modified_basecalling"),
		Modifications:       firstOf(fields, "modifications", "modified_base_context"),
		TrimBarcodes:        firstOf(fields, "trim_barcodes"),
		BasecallingModel:    firstOf(fields, "basecalling_model"),
		BasecallingConfig:   firstOf(fields, "basecalling_config"),
		RunLimit:            firstOf(fields, "run_limit"),
	}
	return meta, nil
}

func firstOf(fields map[string]string, names ...string) string {
	for _, n := range names {
		if v := fields[n]; v != "" {
			return v
		}
	}
	return ""
}
