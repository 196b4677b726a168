package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/drcash-dev/drcash/internal/extract"
	"github.com/drcash-dev/drcash/internal/infer"
	"github.com/drcash-dev/drcash/internal/model"
)

// FileName is the config file written by init and read by default.
const FileName = "drcash.yaml"

// Config represents the top-level drcash.yaml configuration.
type Config struct {
	Inference InferenceConfig  `yaml:"inference"`
	Keywords  infer.KeywordSet `yaml:"keywords"`
	Extract   ExtractConfig    `yaml:"extract"`
	Server    ServerConfig     `yaml:"server"`
	Log       LogConfig        `yaml:"log"`
}

// InferenceConfig bounds the header search and the preview sample.
type InferenceConfig struct {
	HeaderScanRows int `yaml:"header_scan_rows"`
	PreviewRows    int `yaml:"preview_rows"`
}

// ExtractConfig controls record normalization during a run.
type ExtractConfig struct {
	TargetYear  int      `yaml:"target_year"` // 0 keeps every year
	DateLayouts []string `yaml:"date_layouts,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	DevMode bool   `yaml:"dev_mode"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a drcash.yaml file from disk. Settings missing from the file
// keep their default values; a keyword list in the file replaces the default
// list for that role only.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.fillKeywords()
	return cfg, nil
}

func (c *Config) fillKeywords() {
	defaults := infer.DefaultKeywords()
	if c.Keywords == nil {
		c.Keywords = defaults
		return
	}
	for doc, roles := range defaults {
		if c.Keywords[doc] == nil {
			c.Keywords[doc] = roles
			continue
		}
		for role, words := range roles {
			if len(c.Keywords[doc][role]) == 0 {
				c.Keywords[doc][role] = words
			}
		}
	}
}

// LoadOrDefault is Load, except a missing file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the built-in keyword lists.
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			HeaderScanRows: infer.DefaultScanRows,
			PreviewRows:    infer.DefaultPreviewRows,
		},
		Keywords: infer.DefaultKeywords(),
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Inference.HeaderScanRows <= 0 {
		return fmt.Errorf("inference.header_scan_rows must be positive, got %d", c.Inference.HeaderScanRows)
	}
	if c.Inference.PreviewRows <= 0 {
		return fmt.Errorf("inference.preview_rows must be positive, got %d", c.Inference.PreviewRows)
	}
	for _, doc := range []model.DocumentType{model.DocumentBank, model.DocumentTax} {
		kw := c.Keywords[doc]
		for _, role := range model.RolesFor(doc) {
			if len(kw[role]) == 0 {
				return fmt.Errorf("keywords.%s.%s is empty", doc, role)
			}
		}
	}
	if c.Extract.TargetYear < 0 {
		return fmt.Errorf("extract.target_year must not be negative, got %d", c.Extract.TargetYear)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// InferOptions returns the inference settings as builder options.
func (c *Config) InferOptions() infer.Options {
	return infer.Options{
		ScanRows:    c.Inference.HeaderScanRows,
		PreviewRows: c.Inference.PreviewRows,
		Keywords:    c.Keywords,
	}
}

// ExtractOptions returns the extraction settings.
func (c *Config) ExtractOptions() extract.Options {
	layouts := c.Extract.DateLayouts
	if len(layouts) == 0 {
		layouts = extract.DefaultDateLayouts
	}
	return extract.Options{DateLayouts: layouts, TargetYear: c.Extract.TargetYear}
}
