package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Load loads a configuration file from the given path. The format is
// determined by the file extension:
// - .json for JSON
// - .yaml or .yml for YAML
// - .hcl for HCL
// An empty path triggers a search of the default locations; if no file
// is found the built-in defaults are returned (a missing config file is
// not an error, an unparseable one is).
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	if path == "" {
		path = locate()
		if path == "" {
			logger.Debug().Msg("no config file found, using built-in defaults")
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	var cfg *Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		cfg, err = loadJSON(data)
	case ".yaml", ".yml":
		cfg, err = loadYAML(data)
	case ".hcl":
		cfg, err = loadHCL(data, path)
	default:
		return nil, errors.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return nil, err
	}

	cfg.location = path
	cfg.applyDefaults()
	if err := validate(cfg); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	logger.Debug().Str("path", path).Msg("loaded config file")
	return cfg, nil
}

// locate searches the default config file locations: $PROMCAT_CONFIG,
// the working directory, then the user config directory.
func locate() string {
	if path := os.Getenv("PROMCAT_CONFIG"); path != "" {
		return path
	}
	candidates := []string{"promcat.yaml", "promcat.yml", "promcat.hcl", "promcat.json"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	confDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	for _, c := range candidates {
		path := filepath.Join(confDir, "promcat", c)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadJSON loads a configuration from JSON data
func loadJSON(data []byte) (*Config, error) {
	var cfg Config
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &cfg, nil
}

// loadYAML loads a configuration from YAML data
func loadYAML(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// loadHCL loads a configuration from HCL data
func loadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var wire struct {
		General            *General          `hcl:"general,block"`
		Runners            *Runners          `hcl:"runners,block"`
		ReportingTemplates map[string]string `hcl:"reporting_templates,optional"`
		DefaultFileTypes   []string          `hcl:"default_file_types,optional"`
	}
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &wire)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		ReportingTemplates: wire.ReportingTemplates,
		DefaultFileTypes:   wire.DefaultFileTypes,
	}
	if wire.General != nil {
		cfg.General = *wire.General
	}
	if wire.Runners != nil {
		cfg.Runners = *wire.Runners
	}
	return cfg, nil
}

// validate checks the loaded configuration for values that would only
// fail later and less clearly.
func validate(cfg *Config) error {
	for name, spec := range cfg.ReportingTemplates {
		if strings.TrimSpace(spec) == "" {
			return errors.Errorf("reporting template %q: empty field list", name)
		}
	}
	return nil
}
