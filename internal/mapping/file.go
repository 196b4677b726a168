package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/drcash-dev/drcash/internal/model"
)

// File is a mapping.yaml document: explicit edits for bank files by upload
// position, and for the tax file.
type File struct {
	Bank []model.MappingConfig `yaml:"bank,omitempty"`
	Tax  *model.MappingConfig  `yaml:"tax,omitempty"`
}

// LoadFile reads a mapping.yaml file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing mapping file: %w", err)
	}
	for i, cfg := range f.Bank {
		if cfg.HeaderRow != nil && *cfg.HeaderRow < 0 {
			return nil, fmt.Errorf("bank[%d]: header_row must be >= 0, got %d", i, *cfg.HeaderRow)
		}
	}
	if f.Tax != nil && f.Tax.HeaderRow != nil && *f.Tax.HeaderRow < 0 {
		return nil, fmt.Errorf("tax: header_row must be >= 0, got %d", *f.Tax.HeaderRow)
	}
	return &f, nil
}

// SaveFile writes f as YAML.
func SaveFile(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling mapping file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing mapping file: %w", err)
	}
	return nil
}
