package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:     "yaml_config",
			filename: "promcat.yaml",
			config: `
general:
  default_runner: local
  permissions: ug+rwX
  group: bcf
runners:
  rsync: slurm
reporting_templates:
  weekly: "name,id,user,pi"
default_file_types:
  - pod5
  - report
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "local", cfg.General.DefaultRunner, "default runner should match")
				assert.Equal(t, "ug+rwX", cfg.General.Permissions, "permissions should match")
				assert.Equal(t, "bcf", cfg.General.Group, "group should match")
				assert.Equal(t, "slurm", cfg.RsyncRunner(), "rsync runner override should win")
				assert.Equal(t, []string{"pod5", "report"}, cfg.DefaultFileTypes, "file types should match")
				fields, err := cfg.Template("weekly")
				require.NoError(t, err, "user template should resolve")
				assert.Equal(t, []string{"name", "id", "user", "pi"}, fields, "template fields should match")
			},
		},
		{
			name:     "json_config",
			filename: "promcat.json",
			config: `{
  "general": {"default_runner": "local", "permissions": "", "group": ""},
  "runners": {},
  "default_file_types": ["bam"]
}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "local", cfg.RsyncRunner(), "rsync falls back to the default runner")
				assert.Equal(t, []string{"bam"}, cfg.DefaultFileTypes, "file types should match")
			},
		},
		{
			name:     "hcl_config",
			filename: "promcat.hcl",
			config: `
general {
  default_runner = "local"
  group          = "bcf"
}

runners {
  rsync = "local"
}

reporting_templates = {
  minimal = "id,user"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "bcf", cfg.General.Group, "group should match")
				fields, err := cfg.Template("minimal")
				require.NoError(t, err, "user template should resolve")
				assert.Equal(t, []string{"id", "user"}, fields, "template fields should match")
			},
		},
		{
			name:     "hcl_without_blocks",
			filename: "promcat.hcl",
			config:   `default_file_types = ["fastq"]`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "local", cfg.General.DefaultRunner, "missing blocks fall back to defaults")
				assert.Equal(t, []string{"fastq"}, cfg.DefaultFileTypes, "file types should match")
			},
		},
		{
			name:        "yaml_unknown_key",
			filename:    "promcat.yaml",
			config:      "genral:\n  default_runner: local\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:        "json_unknown_key",
			filename:    "promcat.json",
			config:      `{"genral": {}}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name:        "empty_template_field_list",
			filename:    "promcat.yaml",
			config:      "reporting_templates:\n  broken: \"  \"\n",
			wantErr:     true,
			errContains: "empty field list",
		},
		{
			name:        "unsupported_extension",
			filename:    "promcat.toml",
			config:      "anything",
			wantErr:     true,
			errContains: "unsupported config file extension",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0o644), "writing config file")

			cfg, err := Load(context.Background(), path)
			if tt.wantErr {
				require.Error(t, err, "load should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should name the problem")
				return
			}
			require.NoError(t, err, "load should succeed")
			assert.Equal(t, path, cfg.Location(), "location should record the source file")
			tt.check(t, cfg)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	// No config path and no file in the search locations: built-in
	// defaults apply.
	t.Setenv("PROMCAT_CONFIG", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err, "missing config file is not an error")
	assert.Empty(t, cfg.Location(), "defaults have no source location")
	assert.Equal(t, "local", cfg.General.DefaultRunner, "default runner should be local")
	assert.Equal(t, []string{"bam", "report"}, cfg.DefaultFileTypes, "default file types should match")
}

func TestTemplates(t *testing.T) {
	cfg := Default()

	t.Run("builtin_templates_resolve", func(t *testing.T) {
		for _, name := range []string{"default", "bcf", "summary"} {
			fields, err := cfg.Template(name)
			require.NoError(t, err, "built-in template %q should resolve", name)
			assert.NotEmpty(t, fields, "template %q should have fields", name)
		}
	})

	t.Run("unknown_template", func(t *testing.T) {
		_, err := cfg.Template("nope")
		require.Error(t, err, "unknown template should fail")
		assert.Contains(t, err.Error(), "undefined reporting template", "error should name the problem")
	})

	t.Run("config_shadows_builtin", func(t *testing.T) {
		shadowed := &Config{ReportingTemplates: map[string]string{"default": "id"}}
		fields, err := shadowed.Template("default")
		require.NoError(t, err, "shadowed template should resolve")
		assert.Equal(t, []string{"id"}, fields, "config definition should win over the built-in")
	})

	t.Run("names_are_merged_and_sorted", func(t *testing.T) {
		merged := &Config{ReportingTemplates: map[string]string{"weekly": "id", "default": "id"}}
		assert.Equal(t, []string{"bcf", "default", "summary", "weekly"}, merged.TemplateNames(),
			"names should merge built-ins with config, without duplicates")
	})
}

func TestSplitFields(t *testing.T) {
	assert.Equal(t, []string{"name", "id", "", "user"}, SplitFields("name, id , ,user"),
		"fields should be trimmed and empty entries kept")
}
