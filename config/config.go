// Package config holds the runtime configuration for docindex.
// Values are loaded from a YAML file and handed to the extraction and
// search components; no component reads the environment directly.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "config.yaml"

// DefaultExtensions is the extension allow-list used when the config file
// does not set one.
var DefaultExtensions = []string{".pdf"}

// Config is the full configuration surface consumed by the core.
type Config struct {
	// SourceFolder is the root folder that is scanned for documents.
	SourceFolder string `yaml:"source_folder"`

	// IndexFolder is where extracted text and extraction state live.
	IndexFolder string `yaml:"index_folder"`

	// FileExtensions is the allow-list of extensions to extract,
	// matched case-insensitively. Entries may be given with or
	// without the leading dot.
	FileExtensions []string `yaml:"file_extensions"`

	// ResultsPerPage is the search result page size.
	ResultsPerPage int `yaml:"results_per_page"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.IndexFolder == "" {
		c.IndexFolder = "./index"
	}
	if len(c.FileExtensions) == 0 {
		c.FileExtensions = append([]string(nil), DefaultExtensions...)
	}
	if c.ResultsPerPage <= 0 {
		c.ResultsPerPage = 20
	}
}

func (c *Config) validate() error {
	if c.SourceFolder == "" {
		return fmt.Errorf("config: source_folder is required")
	}
	return nil
}

// Extensions returns the allow-list normalized to lowercase with a
// leading dot, ready for extension comparison.
func (c *Config) Extensions() []string {
	out := make([]string, 0, len(c.FileExtensions))
	for _, ext := range c.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
