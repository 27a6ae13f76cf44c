package promethion

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Role is the inferred role of a directory entry within a PromethION
// project tree.
type Role int

const (
	RoleUnknown Role = iota
	RoleFlowCell
	RoleBasecalls
	RoleDataDir
	RoleBarcode
	RoleReport
	RoleSampleSheet
)

// String returns a string representation of a Role
func (r Role) String() string {
	switch r {
	case RoleFlowCell:
		return "flow-cell"
	case RoleBasecalls:
		return "basecalls"
	case RoleDataDir:
		return "data-dir"
	case RoleBarcode:
		return "barcode"
	case RoleReport:
		return "report"
	case RoleSampleSheet:
		return "sample-sheet"
	default:
		return "unknown"
	}
}

// ReportFormat identifies the format of a MinKNOW report file
type ReportFormat string

const (
	ReportHTML     ReportFormat = "html"
	ReportJSON     ReportFormat = "json"
	ReportMarkdown ReportFormat = "md"
)

// Barcode numbers are scoped 1..24 by the ONT barcoding kits
const (
	MinBarcode = 1
	MaxBarcode = 24
)

// Classification is the result of classifying a single path component.
// Only the fields relevant to the Role are populated.
type Classification struct {
	Role Role

	// Flow cell fields (RoleFlowCell)
	Datestamp  string // YYYYMMDD
	Timestamp  string // HHMM
	Position   string // instrument position, e.g. "1A"
	FlowCellID string // vendor ID, e.g. "PAW15685"
	Hash       string // 8-char hex suffix

	// Data directory fields (RoleDataDir)
	Prefix string // "bam", "fastq", "pod5" or an uncategorized prefix
	Pass   bool
	Known  bool // prefix is in the known vocabulary

	// Barcode fields (RoleBarcode)
	Barcode int

	// Report fields (RoleReport)
	Format ReportFormat
}

// Flow cell directories follow the MinKNOW convention
// <date>_<time>_<position>_<flowcell-id>_<hash>. The hash segment is
// required to be exactly 8 lowercase hex characters; anything else fails
// classification.
var reFlowCellName = regexp.MustCompile(
	`^(\d{8})_(\d{4})_([0-9A-Za-z]+)_(P[A-Z]{2}\d+)_([0-9a-f]{8})$`)

// Looks like a flow cell name but with an unexpected hash segment.
// Used only to raise a diagnostic.
var reFlowCellNameLoose = regexp.MustCompile(
	`^(\d{8})_(\d{4})_([0-9A-Za-z]+)_(P[A-Z]{2}\d+)_([0-9a-zA-Z]+)$`)

var (
	reDataDir     = regexp.MustCompile(`^([a-z0-9]+)_(pass|fail)$`)
	reBarcodeDir  = regexp.MustCompile(`^barcode(\d+)$`)
	reReportFile  = regexp.MustCompile(`^report_(.+)\.(html|json|md)$`)
	reSampleSheet = regexp.MustCompile(`^sample_sheet_.*$`)
)

// knownDataPrefixes is the vocabulary of data directory prefixes which
// map onto file type categories.
var knownDataPrefixes = map[string]bool{
	"bam":   true,
	"fastq": true,
	"pod5":  true,
}

// matcher pairs a name pattern with an extractor building the
// classification from the submatches. New naming conventions are added
// here without touching the traversal logic.
type matcher struct {
	re      *regexp.Regexp
	extract func(groups []string) (Classification, error)
}

var matchers = []matcher{
	{
		re: reFlowCellName,
		extract: func(g []string) (Classification, error) {
			return Classification{
				Role:       RoleFlowCell,
				Datestamp:  g[1],
				Timestamp:  g[2],
				Position:   g[3],
				FlowCellID: g[4],
				Hash:       g[5],
			}, nil
		},
	},
	{
		re: reBarcodeDir,
		extract: func(g []string) (Classification, error) {
			if len(g[1]) != 2 {
				return Classification{}, errors.Errorf(
					"barcode%s: malformed barcode number (expected two digits)", g[1])
			}
			n, err := strconv.Atoi(g[1])
			if err != nil {
				return Classification{}, errors.Errorf("barcode%s: %w", g[1], err)
			}
			if n < MinBarcode || n > MaxBarcode {
				return Classification{}, errors.Errorf(
					"barcode%02d: barcode number out of range %d-%d", n, MinBarcode, MaxBarcode)
			}
			return Classification{Role: RoleBarcode, Barcode: n}, nil
		},
	},
	{
		re: reDataDir,
		extract: func(g []string) (Classification, error) {
			return Classification{
				Role:   RoleDataDir,
				Prefix: g[1],
				Pass:   g[2] == "pass",
				Known:  knownDataPrefixes[g[1]],
			}, nil
		},
	},
	{
		re: reReportFile,
		extract: func(g []string) (Classification, error) {
			return Classification{
				Role:   RoleReport,
				Format: ReportFormat(g[2]),
			}, nil
		},
	},
	{
		re: reSampleSheet,
		extract: func(g []string) (Classification, error) {
			return Classification{Role: RoleSampleSheet}, nil
		},
	},
}

// Classify classifies a single path component (a directory or file
// name, not a full path). Names matching no convention come back as
// RoleUnknown with a nil error; names which match a convention but
// violate its constraints (e.g. an out-of-range barcode number) come
// back as RoleUnknown with a non-nil error describing the problem.
func Classify(name string) (Classification, error) {
	for _, m := range matchers {
		groups := m.re.FindStringSubmatch(name)
		if groups == nil {
			continue
		}
		c, err := m.extract(groups)
		if err != nil {
			return Classification{Role: RoleUnknown}, err
		}
		return c, nil
	}
	// Near-miss flow cell names are worth a diagnostic
	if g := reFlowCellNameLoose.FindStringSubmatch(name); g != nil {
		return Classification{Role: RoleUnknown}, errors.Errorf(
			"%s: resembles a flow cell name but hash segment %q is not 8-char hex", name, g[5])
	}
	return Classification{Role: RoleUnknown}, nil
}

// IsFlowCellName reports whether a name looks like a flow cell
// directory name.
func IsFlowCellName(name string) bool {
	return reFlowCellName.MatchString(name)
}

// FlowCellID extracts the flow cell ID from a flow cell directory name,
// or "" if the name does not match the convention.
func FlowCellID(name string) string {
	g := reFlowCellName.FindStringSubmatch(name)
	if g == nil {
		return ""
	}
	return g[4]
}

// FlowCellDatestamp extracts the datestamp from a flow cell directory
// name, or "" if the name does not match the convention.
func FlowCellDatestamp(name string) string {
	g := reFlowCellName.FindStringSubmatch(name)
	if g == nil {
		return ""
	}
	return g[1]
}

// IsBasecallsDir reports whether the directory at path is a
// (re-)basecalling output directory. The test is structural rather than
// name based: the directory must contain both "pass" and "fail"
// subdirectories, each holding at least one barcode subdirectory.
func IsBasecallsDir(path string) bool {
	for _, sub := range []string{"pass", "fail"} {
		entries, err := os.ReadDir(filepath.Join(path, sub))
		if err != nil {
			return false
		}
		found := false
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if c, err := Classify(e.Name()); err == nil && c.Role == RoleBarcode {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// barcodeNumbers lists the barcode numbers found directly under a
// directory, together with any malformed barcode-like names.
func barcodeNumbers(path string) (numbers []int, malformed []error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, nil
	}
	seen := map[int]bool{}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "barcode") {
			continue
		}
		c, err := Classify(e.Name())
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		if c.Role == RoleBarcode && !seen[c.Barcode] {
			seen[c.Barcode] = true
			numbers = append(numbers, c.Barcode)
		}
	}
	sort.Ints(numbers)
	return numbers, malformed
}
