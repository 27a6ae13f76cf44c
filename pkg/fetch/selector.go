// Package fetch plans and runs selective transfers of primary
// sequencing data out of a project directory, using rsync include
// filters so only the requested file types travel.
package fetch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/bcf-ngs/promcat/pkg/promethion"
)

// FileType is a fetchable category of primary data.
type FileType string

const (
	TypeBAM    FileType = "bam"
	TypeFastq  FileType = "fastq"
	TypePOD5   FileType = "pod5"
	TypeReport FileType = "report"
)

// typePatterns maps each bulk data type onto the file glob patterns
// that select its files.
var typePatterns = map[FileType][]string{
	TypeBAM:   {"*.bam", "*.bai"},
	TypeFastq: {"*.fastq", "*.fastq.gz"},
	TypePOD5:  {"*.pod5"},
}

// reportPatterns selects report and sample sheet files.
var reportPatterns = []string{
	"report_*.html",
	"report_*.json",
	"report_*.md",
	"sample_sheet_*",
}

// ParseFileTypes validates a list of file type names. Order is kept,
// duplicates are dropped, unknown names are an error.
func ParseFileTypes(names []string) ([]FileType, error) {
	seen := map[FileType]bool{}
	var types []FileType
	for _, name := range names {
		t := FileType(strings.ToLower(strings.TrimSpace(name)))
		switch t {
		case TypeBAM, TypeFastq, TypePOD5, TypeReport:
		default:
			return nil, errors.Errorf("%s: unknown file type (expected bam, fastq, pod5 or report)", name)
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, errors.New("no file types given")
	}
	return types, nil
}

// Select computes the set of files a fetch of the given types would
// transfer, as sorted, duplicate-free paths relative to the project
// root. The selection is a plan, not a transfer: nothing is copied.
func Select(project *promethion.Project, types []FileType) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	add := func(path string) error {
		rel, err := filepath.Rel(project.Path, path)
		if err != nil {
			return err
		}
		if !seen[rel] {
			seen[rel] = true
			files = append(files, rel)
		}
		return nil
	}

	wantReports := false
	var bulkPatterns []string
	for _, t := range types {
		if t == TypeReport {
			wantReports = true
			continue
		}
		bulkPatterns = append(bulkPatterns, typePatterns[t]...)
	}

	for _, fc := range project.FlowCells {
		for _, d := range fc.DataDirs {
			if !d.Known || !prefixSelected(d.Prefix, types) {
				continue
			}
			matched, err := globDir(d.Path, bulkPatterns)
			if err != nil {
				return nil, err
			}
			for _, m := range matched {
				if err := add(m); err != nil {
					return nil, err
				}
			}
		}
		if wantReports {
			for _, r := range fc.Reports {
				if err := add(filepath.Join(fc.Path, r)); err != nil {
					return nil, err
				}
			}
			if fc.SampleSheet != "" {
				if err := add(filepath.Join(fc.Path, fc.SampleSheet)); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, bc := range project.BasecallsDirs {
		for _, sub := range []string{bc.PassDir, bc.FailDir} {
			matched, err := globDir(sub, bulkPatterns)
			if err != nil {
				return nil, err
			}
			for _, m := range matched {
				if err := add(m); err != nil {
					return nil, err
				}
			}
		}
		if wantReports {
			for _, r := range bc.Reports {
				if err := add(filepath.Join(bc.Path, r)); err != nil {
					return nil, err
				}
			}
			if bc.SampleSheet != "" {
				if err := add(filepath.Join(bc.Path, bc.SampleSheet)); err != nil {
					return nil, err
				}
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// prefixSelected reports whether a data directory prefix is covered by
// the requested types.
func prefixSelected(prefix string, types []FileType) bool {
	for _, t := range types {
		if string(t) == prefix {
			return true
		}
	}
	return false
}

// globDir matches the patterns recursively under dir and returns
// absolute paths. A missing directory matches nothing.
func globDir(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, nil
	}
	fsys := os.DirFS(dir)
	var matched []string
	for _, pat := range patterns {
		hits, err := doublestar.Glob(fsys, "**/"+pat)
		if err != nil {
			return nil, errors.Errorf("matching %q under %s: %w", pat, dir, err)
		}
		for _, h := range hits {
			matched = append(matched, filepath.Join(dir, filepath.FromSlash(h)))
		}
	}
	return matched, nil
}
