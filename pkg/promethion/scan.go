package promethion

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Project directories are conventionally named
// PromethION_Project_<NNN>_<Name>.
var reProjectDirName = regexp.MustCompile(`^PromethION_Project_(\d+)_(.+)$`)

// Diagnostic records a structural anomaly found while scanning. Scans
// never fail on anomalies; they are collected here instead.
type Diagnostic struct {
	Path    string
	Problem string
}

// DataDir is a data output directory within a flow cell directory
// (bam_pass, fastq_fail, pod5, ...).
type DataDir struct {
	Name   string
	Path   string
	Prefix string // "bam", "fastq", "pod5", or an uncategorized prefix
	Pass   bool
	Known  bool // prefix maps onto a file type category
}

// FlowCell is a single physical sequencing unit, identified by its
// vendor flow cell ID. It is discovered once and never split or merged.
type FlowCell struct {
	Path        string
	Name        string
	ID          string
	Datestamp   string
	Timestamp   string
	Position    string
	Pool        string // parent pool directory name ("" if missing)
	Run         string // grandparent run directory name ("" if missing)
	DataDirs    []DataDir
	Barcodes    []int
	Reports     []string // report file names, sorted
	SampleSheet string
	Metadata    Metadata
}

// Report returns the path of the first report with the given format,
// or "".
func (fc *FlowCell) Report(format ReportFormat) string {
	return reportWithFormat(fc.Path, fc.Reports, format)
}

// FileTypes lists the categorized file types present in the flow cell
// directory.
func (fc *FlowCell) FileTypes() []string {
	seen := map[string]bool{}
	var types []string
	for _, d := range fc.DataDirs {
		if d.Known && !seen[d.Prefix] {
			seen[d.Prefix] = true
			types = append(types, d.Prefix)
		}
	}
	sort.Strings(types)
	return types
}

func (fc *FlowCell) String() string {
	if fc.Pool == "" {
		return fc.Name
	}
	return fc.Pool + "/" + fc.Name
}

// BasecallsDir is a (re-)basecalling output directory, recognized
// structurally by its pass/fail/barcodeNN layout.
type BasecallsDir struct {
	Path        string
	Name        string
	Parent      string // immediate parent directory name
	Pool        string // associated pool ("" if not matched)
	Run         string // associated run ("" if not matched)
	PassDir     string
	FailDir     string
	Barcodes    []int
	Reports     []string
	SampleSheet string
	Metadata    Metadata
}

// Report returns the path of the first report with the given format,
// or "".
func (bc *BasecallsDir) Report(format ReportFormat) string {
	return reportWithFormat(bc.Path, bc.Reports, format)
}

func (bc *BasecallsDir) String() string {
	return bc.Parent + "/" + bc.Name
}

// Pool is a set of samples sequenced together on one flow cell. The
// same pool re-sequenced under a later run gets an incremented repeat
// counter.
type Pool struct {
	Name      string
	Run       string
	Repeat    int
	FlowCells []*FlowCell
}

// Project is the top level unit: the discovered tree of runs, pools,
// flow cells and basecalls directories under a project directory.
type Project struct {
	Path          string
	Name          string
	Number        int // numeric project ID, 0 if the name is unconventional
	FlowCells     []*FlowCell
	BasecallsDirs []*BasecallsDir
	Diagnostics   []Diagnostic
}

// ID returns the project ID string derived from the project number
// (e.g. "PROMETHION#002"), or "" for unconventional names.
func (p *Project) ID() string {
	if p.Number == 0 {
		return ""
	}
	return "PROMETHION#" + padNumber(p.Number, 3)
}

// FlowCell returns the discovered flow cell with the given vendor ID,
// or nil.
func (p *Project) FlowCell(id string) *FlowCell {
	for _, fc := range p.FlowCells {
		if fc.ID == id {
			return fc
		}
	}
	return nil
}

// FlowCellIDs lists the vendor IDs of all discovered flow cells, in
// scan order.
func (p *Project) FlowCellIDs() []string {
	ids := make([]string, 0, len(p.FlowCells))
	for _, fc := range p.FlowCells {
		ids = append(ids, fc.ID)
	}
	return ids
}

// Datestamp returns the earliest datestamp across the project's flow
// cells, or "".
func (p *Project) Datestamp() string {
	earliest := ""
	for _, fc := range p.FlowCells {
		if fc.Datestamp == "" {
			continue
		}
		if earliest == "" || fc.Datestamp < earliest {
			earliest = fc.Datestamp
		}
	}
	return earliest
}

// Pools groups the project's flow cells by pool name. Repeat instances
// of a pool (same name under distinct runs) are numbered in datestamp
// order starting from 1.
func (p *Project) Pools() []Pool {
	byName := map[string][]*FlowCell{}
	var order []string
	for _, fc := range p.FlowCells {
		name := fc.Pool
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = append(byName[name], fc)
	}
	var pools []Pool
	for _, name := range order {
		cells := byName[name]
		sort.SliceStable(cells, func(i, j int) bool {
			return cells[i].Datestamp < cells[j].Datestamp
		})
		runs := map[string]int{}
		for _, fc := range cells {
			if _, ok := runs[fc.Run]; !ok {
				runs[fc.Run] = len(runs) + 1
			}
		}
		if len(runs) <= 1 {
			pools = append(pools, Pool{Name: name, Run: cells[0].Run, Repeat: 1, FlowCells: cells})
			continue
		}
		// Re-sequenced pool: one Pool entry per run instance
		perRun := map[string][]*FlowCell{}
		var runOrder []string
		for _, fc := range cells {
			if _, ok := perRun[fc.Run]; !ok {
				runOrder = append(runOrder, fc.Run)
			}
			perRun[fc.Run] = append(perRun[fc.Run], fc)
		}
		for _, run := range runOrder {
			pools = append(pools, Pool{
				Name:      name,
				Run:       run,
				Repeat:    runs[run],
				FlowCells: perRun[run],
			})
		}
	}
	return pools
}

// Scan walks a project directory and builds the tree of discovered
// units. The walk is depth first and read only: flow cell and basecalls
// directories stop the descent, malformed or unreadable entries become
// diagnostics, and scanning the same unchanged tree twice yields
// structurally identical results.
func Scan(ctx context.Context, root string) (*Project, error) {
	logger := zerolog.Ctx(ctx)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	project := &Project{
		Path: abs,
		Name: filepath.Base(abs),
	}
	if g := reProjectDirName.FindStringSubmatch(project.Name); g != nil {
		n, _ := strconv.Atoi(g[1])
		project.Number = n
	} else {
		project.addDiagnostic(abs, "directory name does not follow the PromethION_Project_<NNN>_<Name> convention")
	}

	logger.Debug().Str("path", abs).Msg("scanning project directory")
	project.scanDir(ctx, abs)

	sort.Slice(project.FlowCells, func(i, j int) bool {
		return project.FlowCells[i].Name < project.FlowCells[j].Name
	})
	// Match basecalls dirs to pools discovered from flow cells
	for _, bc := range project.BasecallsDirs {
		project.assignBasecallsPool(bc)
	}
	sort.Slice(project.BasecallsDirs, func(i, j int) bool {
		return project.BasecallsDirs[i].Path < project.BasecallsDirs[j].Path
	})

	logger.Info().
		Int("flow_cells", len(project.FlowCells)).
		Int("basecalls_dirs", len(project.BasecallsDirs)).
		Int("diagnostics", len(project.Diagnostics)).
		Msg("scan complete")
	return project, nil
}

func (p *Project) addDiagnostic(path, problem string) {
	p.Diagnostics = append(p.Diagnostics, Diagnostic{Path: path, Problem: problem})
}

// scanDir applies the classifier to each child of dir, recording flow
// cell and basecalls units and recursing into anything unclassified.
func (p *Project) scanDir(ctx context.Context, dir string) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		p.addDiagnostic(dir, "unreadable directory: "+err.Error())
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		c, cerr := Classify(e.Name())
		if cerr != nil {
			p.addDiagnostic(path, cerr.Error())
			continue
		}
		switch c.Role {
		case RoleFlowCell:
			logger.Debug().Str("path", path).Str("flow_cell_id", c.FlowCellID).Msg("found flow cell directory")
			fc := p.loadFlowCell(ctx, path, c)
			p.FlowCells = append(p.FlowCells, fc)
		default:
			if IsBasecallsDir(path) {
				logger.Debug().Str("path", path).Msg("found basecalls directory")
				bc := p.loadBasecallsDir(ctx, path)
				p.BasecallsDirs = append(p.BasecallsDirs, bc)
				continue
			}
			p.scanDir(ctx, path)
		}
	}
}

// loadFlowCell inspects the contents of a recognized flow cell
// directory. The internal structure is fixed so no further structural
// inference happens below this level.
func (p *Project) loadFlowCell(ctx context.Context, path string, c Classification) *FlowCell {
	fc := &FlowCell{
		Path:      path,
		Name:      filepath.Base(path),
		ID:        c.FlowCellID,
		Datestamp: c.Datestamp,
		Timestamp: c.Timestamp,
		Position:  c.Position,
	}
	fc.Pool, fc.Run = p.poolAndRun(path)

	entries, err := os.ReadDir(path)
	if err != nil {
		p.addDiagnostic(path, "unreadable flow cell directory: "+err.Error())
		return fc
	}
	barcodes := map[int]bool{}
	for _, e := range entries {
		ec, eerr := Classify(e.Name())
		if eerr != nil {
			p.addDiagnostic(filepath.Join(path, e.Name()), eerr.Error())
			continue
		}
		switch {
		case e.IsDir() && ec.Role == RoleDataDir:
			d := DataDir{
				Name:   e.Name(),
				Path:   filepath.Join(path, e.Name()),
				Prefix: ec.Prefix,
				Pass:   ec.Pass,
				Known:  ec.Known,
			}
			fc.DataDirs = append(fc.DataDirs, d)
			nums, malformed := barcodeNumbers(d.Path)
			for _, n := range nums {
				barcodes[n] = true
			}
			for _, merr := range malformed {
				p.addDiagnostic(d.Path, merr.Error())
			}
		case e.IsDir() && (e.Name() == "pod5" || e.Name() == "pod5_skip"):
			// Bare POD5 output dirs predate the _pass/_fail convention
			fc.DataDirs = append(fc.DataDirs, DataDir{
				Name:   e.Name(),
				Path:   filepath.Join(path, e.Name()),
				Prefix: "pod5",
				Pass:   e.Name() == "pod5",
				Known:  true,
			})
		case !e.IsDir() && ec.Role == RoleReport:
			fc.Reports = append(fc.Reports, e.Name())
		case !e.IsDir() && ec.Role == RoleSampleSheet:
			fc.SampleSheet = e.Name()
		}
	}
	sort.Strings(fc.Reports)
	sort.Slice(fc.DataDirs, func(i, j int) bool { return fc.DataDirs[i].Name < fc.DataDirs[j].Name })
	for n := range barcodes {
		fc.Barcodes = append(fc.Barcodes, n)
	}
	sort.Ints(fc.Barcodes)
	fc.Metadata = ExtractMetadata(ctx, fc.Path, fc.Reports)
	return fc
}

// loadBasecallsDir inspects the contents of a structurally recognized
// basecalls directory.
func (p *Project) loadBasecallsDir(ctx context.Context, path string) *BasecallsDir {
	bc := &BasecallsDir{
		Path:    path,
		Name:    filepath.Base(path),
		Parent:  filepath.Base(filepath.Dir(path)),
		PassDir: filepath.Join(path, "pass"),
		FailDir: filepath.Join(path, "fail"),
	}
	barcodes := map[int]bool{}
	for _, sub := range []string{bc.PassDir, bc.FailDir} {
		nums, malformed := barcodeNumbers(sub)
		for _, n := range nums {
			barcodes[n] = true
		}
		for _, merr := range malformed {
			p.addDiagnostic(sub, merr.Error())
		}
	}
	for n := range barcodes {
		bc.Barcodes = append(bc.Barcodes, n)
	}
	sort.Ints(bc.Barcodes)

	entries, err := os.ReadDir(path)
	if err != nil {
		p.addDiagnostic(path, "unreadable basecalls directory: "+err.Error())
		return bc
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		c, cerr := Classify(e.Name())
		if cerr != nil {
			p.addDiagnostic(filepath.Join(path, e.Name()), cerr.Error())
			continue
		}
		switch c.Role {
		case RoleReport:
			bc.Reports = append(bc.Reports, e.Name())
		case RoleSampleSheet:
			bc.SampleSheet = e.Name()
		}
	}
	sort.Strings(bc.Reports)
	bc.Metadata = ExtractMetadata(ctx, bc.Path, bc.Reports)
	return bc
}

// poolAndRun infers the pool and run names for a unit at path from its
// parent and grandparent directories. Either collapses to "" when it
// coincides with the project root: the run level is optional and pools
// may attach directly to the project.
func (p *Project) poolAndRun(path string) (pool, run string) {
	poolDir := filepath.Dir(path)
	runDir := filepath.Dir(poolDir)
	if poolDir == p.Path {
		return "", ""
	}
	pool = filepath.Base(poolDir)
	if runDir == p.Path {
		return pool, ""
	}
	return pool, filepath.Base(runDir)
}

// assignBasecallsPool associates a basecalls directory with a pool and
// run by matching known pool names against its path segments, the same
// heuristic the sequencing facility applies by hand.
func (p *Project) assignBasecallsPool(bc *BasecallsDir) {
	rel, err := filepath.Rel(p.Path, bc.Path)
	if err != nil {
		return
	}
	segments := strings.Split(rel, string(filepath.Separator))
	for _, fc := range p.FlowCells {
		if fc.Pool == "" {
			continue
		}
		for _, s := range segments {
			if s == fc.Pool {
				bc.Pool = fc.Pool
				bc.Run = fc.Run
				return
			}
		}
	}
}

func reportWithFormat(dir string, reports []string, format ReportFormat) string {
	for _, r := range reports {
		if strings.HasSuffix(r, "."+string(format)) {
			return filepath.Join(dir, r)
		}
	}
	return ""
}

func padNumber(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
