package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drcash-dev/drcash/internal/extract"
	"github.com/drcash-dev/drcash/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Extract.TargetYear = 2025
	cfg.Server.DevMode = true
	cfg.Keywords[model.DocumentBank][model.RoleAmount] = []string{"출금액"}

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Inference, got.Inference)
	assert.Equal(t, 2025, got.Extract.TargetYear)
	assert.True(t, got.Server.DevMode)
	assert.Equal(t, []string{"출금액"}, got.Keywords[model.DocumentBank][model.RoleAmount])
	assert.Equal(t, cfg.Keywords[model.DocumentTax], got.Keywords[model.DocumentTax])
	require.NoError(t, got.Validate())
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30, cfg.Inference.HeaderScanRows)
	assert.Equal(t, 5, cfg.Inference.PreviewRows)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Server.DevMode)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Extract.TargetYear)
	assert.Contains(t, cfg.Keywords[model.DocumentTax][model.RoleItem], "품목")
	require.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	yml := "inference:\n  preview_rows: 10\nkeywords:\n  tax:\n    item:\n      - 적요\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Inference.PreviewRows)
	assert.Equal(t, 30, cfg.Inference.HeaderScanRows)
	assert.Equal(t, []string{"적요"}, cfg.Keywords[model.DocumentTax][model.RoleItem])
	assert.Contains(t, cfg.Keywords[model.DocumentTax][model.RoleAmount], "금액")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("inference: [1, 2"), 0o644))

	_, err := LoadOrDefault(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero scan rows", func(c *Config) { c.Inference.HeaderScanRows = 0 }, "header_scan_rows"},
		{"negative preview rows", func(c *Config) { c.Inference.PreviewRows = -1 }, "preview_rows"},
		{"empty keyword list", func(c *Config) { c.Keywords[model.DocumentBank][model.RoleMemo] = nil }, "keywords.bank.memo"},
		{"missing document", func(c *Config) { delete(c.Keywords, model.DocumentTax) }, "keywords.tax"},
		{"negative year", func(c *Config) { c.Extract.TargetYear = -1 }, "target_year"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "header_scan_rows: 30")
	assert.Contains(t, contents, "preview_rows: 5")
	assert.Contains(t, contents, "addr: :8080")
	assert.Contains(t, contents, "level: info")
	assert.Contains(t, contents, "bank:")
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Extract.TargetYear = 2024

	opts := cfg.ExtractOptions()
	assert.Equal(t, 2024, opts.TargetYear)
	assert.Equal(t, extract.DefaultDateLayouts, opts.DateLayouts)

	io := cfg.InferOptions()
	assert.Equal(t, 30, io.ScanRows)
	assert.Equal(t, cfg.Keywords, io.Keywords)
}
