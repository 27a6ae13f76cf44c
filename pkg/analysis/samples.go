package analysis

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// SamplesFile is the name of the samples table inside an analysis
// directory.
const SamplesFile = "samples.tsv"

// Sample maps a sample name to the barcode and flow cell it was
// sequenced with.
type Sample struct {
	Name     string `csv:"Sample"`
	Barcode  int    `csv:"Barcode"`
	Flowcell string `csv:"Flowcell"`
}

// Samples is the per-sample metadata table of an analysis directory.
// Sample names are unique within the table.
type Samples struct {
	entries []Sample
}

// Add appends an entry. The sample name must not already be present
// and the barcode must be in range.
func (s *Samples) Add(name string, barcode int, flowcell string) error {
	if name == "" {
		return errors.New("sample name must not be empty")
	}
	if barcode < promethion.MinBarcode || barcode > promethion.MaxBarcode {
		return errors.Errorf("%s: barcode %d out of range %d-%d",
			name, barcode, promethion.MinBarcode, promethion.MaxBarcode)
	}
	for _, e := range s.entries {
		if e.Name == name {
			return errors.Errorf("%s: sample already present", name)
		}
	}
	s.entries = append(s.entries, Sample{Name: name, Barcode: barcode, Flowcell: flowcell})
	return nil
}

// Len returns the number of samples in the table.
func (s *Samples) Len() int {
	return len(s.entries)
}

// Entries returns the sample entries sorted by name prefix and index,
// so PG2 sorts before PG10.
func (s *Samples) Entries() []Sample {
	entries := make([]Sample, len(s.entries))
	copy(entries, s.entries)
	sort.SliceStable(entries, func(i, j int) bool {
		pi, ni := splitTrailingIndex(entries[i].Name)
		pj, nj := splitTrailingIndex(entries[j].Name)
		if pi != pj {
			return pi < pj
		}
		return ni < nj
	})
	return entries
}

// Names returns the sorted sample names.
func (s *Samples) Names() []string {
	entries := s.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Flowcells returns the distinct flow cell IDs referenced by the
// table.
func (s *Samples) Flowcells() []string {
	seen := map[string]bool{}
	var ids []string
	for _, e := range s.entries {
		if e.Flowcell != "" && !seen[e.Flowcell] {
			seen[e.Flowcell] = true
			ids = append(ids, e.Flowcell)
		}
	}
	sort.Strings(ids)
	return ids
}

// Save writes the table as TSV.
func (s *Samples) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("writing samples table: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := gocsv.MarshalCSV(s.Entries(), gocsv.NewSafeCSVWriter(w)); err != nil {
		return errors.Errorf("%s: marshalling samples table: %w", path, err)
	}
	return nil
}

// LoadSamples reads a samples table written by Save.
func LoadSamples(path string) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("reading samples table: %w", err)
	}
	defer f.Close()
	var entries []Sample
	if err := gocsv.UnmarshalCSV(tsvReader(f), &entries); err != nil {
		return nil, errors.Errorf("%s: parsing samples table: %w", path, err)
	}
	return &Samples{entries: entries}, nil
}

func tsvReader(r io.Reader) gocsv.CSVReader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	return reader
}

// ParseSamplesIndex parses an externally supplied samples index file:
// delimited text with a single header line (which may or may not start
// with "#"), then rows of "sample,barcode[,flowcell]". Later lines
// starting with "#" are comments. A blank or missing flow cell carries
// forward from the previous row; two-column rows are therefore only
// unambiguous when the project has exactly one flow cell, whose IDs are
// passed in flowcellIDs. Any malformed row fails the whole parse:
// metadata integrity at creation time matters more than partial
// success.
func ParseSamplesIndex(path string, flowcellIDs []string) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("reading samples index: %w", err)
	}
	defer f.Close()

	// Consume exactly one header line before handing the rest to the
	// csv reader, so a "#"-prefixed header cannot double-skip a data
	// row.
	buffered := bufio.NewReader(f)
	if _, err := buffered.ReadString('\n'); err != nil && err != io.EOF {
		return nil, errors.Errorf("%s: reading samples index: %w", path, err)
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1 // rows legitimately have 2 or 3 fields
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	known := map[string]bool{}
	for _, id := range flowcellIDs {
		known[id] = true
	}

	samples := &Samples{}
	prevFlowcell := ""
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("%s: reading samples index: %w", path, err)
		}
		// Physical line number: csv position plus the header line
		recordLine, _ := reader.FieldPos(0)
		line := recordLine + 1
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < 2 || len(record) > 3 {
			return nil, errors.Errorf("%s: line %d: expected 2 or 3 fields, got %d",
				path, line, len(record))
		}
		name := strings.TrimSpace(record[0])
		barcode, err := parseBarcode(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, errors.Errorf("%s: line %d: %w", path, line, err)
		}
		flowcell := ""
		if len(record) == 3 {
			flowcell = strings.TrimSpace(record[2])
		}
		if flowcell == "" {
			flowcell = prevFlowcell
		}
		if flowcell == "" {
			// No flow cell given and none to carry forward: only
			// valid when the project has exactly one flow cell
			if len(flowcellIDs) != 1 {
				return nil, errors.Errorf(
					"%s: line %d: no flow cell given for sample %q and project has %d flow cells",
					path, line, name, len(flowcellIDs))
			}
			flowcell = flowcellIDs[0]
		}
		if !known[flowcell] {
			return nil, errors.Errorf(
				"%s: line %d: flow cell %q is not part of the project", path, line, flowcell)
		}
		prevFlowcell = flowcell
		if err := samples.Add(name, barcode, flowcell); err != nil {
			return nil, errors.Errorf("%s: line %d: %w", path, line, err)
		}
	}
	return samples, nil
}

// parseBarcode accepts "3", "03" or "barcode03".
func parseBarcode(s string) (int, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(s), "barcode")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, errors.Errorf("%q: malformed barcode", s)
	}
	if n < promethion.MinBarcode || n > promethion.MaxBarcode {
		return 0, errors.Errorf("%q: barcode out of range %d-%d",
			s, promethion.MinBarcode, promethion.MaxBarcode)
	}
	return n, nil
}

// splitTrailingIndex splits a trailing integer off a sample name, e.g.
// "PG10" -> ("PG", 10).
func splitTrailingIndex(name string) (string, int) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return name, 0
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0
	}
	return name[:i], n
}

// FormatBarcode renders a barcode number in the zero-padded directory
// form, e.g. 3 -> "barcode03".
func FormatBarcode(n int) string {
	return fmt.Sprintf("barcode%02d", n)
}
