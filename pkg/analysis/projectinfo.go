// Package analysis creates and manages analysis directories for
// PromethION projects: the persisted metadata record, the samples
// table, and the report renderer.
package analysis

import (
	"os"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// ProjectInfoFile is the name of the persisted metadata record inside
// an analysis directory.
const ProjectInfoFile = "project.info"

// Platform is the sequencing platform recorded for every project.
const Platform = "promethion"

// ProjectInfo is the top-level metadata record for a project analysis
// directory.
type ProjectInfo struct {
	Name        string `yaml:"name"`
	ID          string `yaml:"id"`
	Datestamp   string `yaml:"datestamp,omitempty"`
	Platform    string `yaml:"platform"`
	User        string `yaml:"user"`
	PI          string `yaml:"pi"`
	Application string `yaml:"application"`
	Organism    string `yaml:"organism"`
	DataDir     string `yaml:"data_dir"`
	Comments    string `yaml:"comments,omitempty"`
}

// LoadProjectInfo reads a persisted project info record.
func LoadProjectInfo(path string) (*ProjectInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading project info: %w", err)
	}
	var info ProjectInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, errors.Errorf("%s: parsing project info: %w", path, err)
	}
	return &info, nil
}

// Save writes the record to path.
func (i *ProjectInfo) Save(path string) error {
	data, err := yaml.Marshal(i)
	if err != nil {
		return errors.Errorf("marshalling project info: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("writing project info: %w", err)
	}
	return nil
}
