package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"
)

// RenderMode selects the layout of a rendered report.
type RenderMode int

const (
	// RenderTSV renders the field values as a single tab-delimited
	// line, for pasting into spreadsheets.
	RenderTSV RenderMode = iota
	// RenderSummary renders a titled, human-readable key/value block.
	RenderSummary
)

// fieldAliases maps alternate field names onto their canonical form.
var fieldAliases = map[string]string{
	"#samples":     "nsamples",
	"sample_names": "samples",
	"":             "null",
}

var titleColor = color.New(color.Bold, color.FgCyan)

// Render produces a report of the analysis directory's metadata for
// the given field list. Unknown field names are an error; a "null" (or
// empty) field renders as a blank placeholder column. Values that are
// not known render as "?" so their absence is visible, except comments
// which simply render empty.
func Render(d *Dir, fields []string, mode RenderMode) (string, error) {
	values := make([]string, 0, len(fields))
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		// Field names are case-insensitive: site templates spell
		// NULL, PI and Sample_Names uppercase.
		name := strings.ToLower(field)
		if canon, ok := fieldAliases[name]; ok {
			name = canon
		}
		value, err := d.fieldValue(name)
		if err != nil {
			return "", err
		}
		names = append(names, name)
		values = append(values, value)
	}

	switch mode {
	case RenderTSV:
		return strings.Join(values, "\t"), nil
	case RenderSummary:
		return renderSummary(d, names, values), nil
	default:
		return "", errors.Errorf("unsupported render mode %d", mode)
	}
}

func renderSummary(d *Dir, names, values []string) string {
	title := d.Info.Name
	if title == "" {
		title = d.Path
	}
	var b strings.Builder
	b.WriteString(titleColor.Sprint(title))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len(title)))
	b.WriteString("\n")
	for i, name := range names {
		if name == "null" {
			continue
		}
		fmt.Fprintf(&b, "%-16s: %s\n", name, values[i])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (d *Dir) fieldValue(name string) (string, error) {
	switch name {
	case "null":
		return "", nil
	case "name":
		return d.Info.Name, nil
	case "id":
		return d.Info.ID, nil
	case "datestamp":
		return d.Info.Datestamp, nil
	case "platform":
		return d.Info.Platform, nil
	case "user":
		return d.Info.User, nil
	case "pi":
		return d.Info.PI, nil
	case "application":
		return d.Info.Application, nil
	case "organism":
		return d.Info.Organism, nil
	case "primary_data":
		return d.Info.DataDir, nil
	case "analysis_dir":
		return d.Path, nil
	case "comments":
		return d.Info.Comments, nil
	case "nsamples":
		if d.Samples == nil || d.Samples.Len() == 0 {
			return "?", nil
		}
		return strconv.Itoa(d.Samples.Len()), nil
	case "samples":
		if d.Samples == nil || d.Samples.Len() == 0 {
			return "?", nil
		}
		return strings.Join(d.Samples.Names(), ","), nil
	default:
		return "", errors.Errorf("%s: unknown report field", name)
	}
}
