// Package config handles promcat configuration: runner selection,
// permissions applied to created data, and named reporting templates.
package config

import (
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Config is the promcat configuration.
type Config struct {
	General            General           `json:"general" yaml:"general" hcl:"general,block"`
	Runners            Runners           `json:"runners" yaml:"runners" hcl:"runners,block"`
	ReportingTemplates map[string]string `json:"reporting_templates,omitempty" yaml:"reporting_templates,omitempty" hcl:"reporting_templates,optional"`
	DefaultFileTypes   []string          `json:"default_file_types,omitempty" yaml:"default_file_types,omitempty" hcl:"default_file_types,optional"`

	location string
}

// General holds the general section.
type General struct {
	DefaultRunner string `json:"default_runner,omitempty" yaml:"default_runner,omitempty" hcl:"default_runner,optional"`
	Permissions   string `json:"permissions,omitempty" yaml:"permissions,omitempty" hcl:"permissions,optional"`
	Group         string `json:"group,omitempty" yaml:"group,omitempty" hcl:"group,optional"`
}

// Runners holds per-job-type runner overrides. An unset override falls
// back to the general default runner.
type Runners struct {
	Rsync string `json:"rsync,omitempty" yaml:"rsync,omitempty" hcl:"rsync,optional"`
}

// Built-in reporting templates, overridable from the config file.
var builtinTemplates = map[string]string{
	// Default: for the projects spreadsheet
	"default": "name,id,null,null,user,pi,application,organism,null," +
		"nsamples,samples,null,null,null",
	// BCF: for the downstream bookkeeping spreadsheet
	"bcf": "datestamp,null,user,id,#samples,null,organism,application," +
		"pi,analysis_dir,null,primary_data",
	// Summary: for reporting a run for downstream analysis
	"summary": "name,id,datestamp,platform,analysis_dir,null," +
		"user,pi,application,organism,primary_data,comments",
}

// Default returns the built-in configuration used when no config file
// is present.
func Default() *Config {
	return &Config{
		General: General{
			DefaultRunner: "local",
		},
		DefaultFileTypes: []string{"bam", "report"},
	}
}

// Location returns the path of the file the config was loaded from, or
// "" for the built-in defaults.
func (c *Config) Location() string {
	return c.location
}

// RsyncRunner returns the runner to use for rsync jobs.
func (c *Config) RsyncRunner() string {
	if c.Runners.Rsync != "" {
		return c.Runners.Rsync
	}
	return c.General.DefaultRunner
}

// Template resolves a named reporting template to its field list.
// Templates from the config file shadow the built-in ones.
func (c *Config) Template(name string) ([]string, error) {
	spec, ok := c.ReportingTemplates[name]
	if !ok {
		spec, ok = builtinTemplates[name]
	}
	if !ok {
		return nil, errors.Errorf("%s: undefined reporting template", name)
	}
	return SplitFields(spec), nil
}

// TemplateNames lists the available template names, sorted.
func (c *Config) TemplateNames() []string {
	seen := map[string]bool{}
	var names []string
	for name := range builtinTemplates {
		seen[name] = true
		names = append(names, name)
	}
	for name := range c.ReportingTemplates {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SplitFields splits a comma-separated field list, trimming whitespace.
// Empty entries are kept: they render as blank placeholder columns.
func SplitFields(spec string) []string {
	parts := strings.Split(spec, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// applyDefaults fills unset fields from the built-in defaults.
func (c *Config) applyDefaults() {
	defaults := Default()
	if c.General.DefaultRunner == "" {
		c.General.DefaultRunner = defaults.General.DefaultRunner
	}
	if len(c.DefaultFileTypes) == 0 {
		c.DefaultFileTypes = defaults.DefaultFileTypes
	}
}
