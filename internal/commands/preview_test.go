package commands_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drcash-dev/drcash/internal/model"
)

func TestPreview_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kb.csv", bankCSV)

	out, err := runDrcash(t, "preview", path, "--config", filepath.Join(dir, "drcash.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "File:       kb.csv (bank)")
	assert.Contains(t, out, "Header row: 1\n")
	assert.Contains(t, out, "amount  출금액")
	assert.Contains(t, out, "date    거래일시")
	assert.Contains(t, out, "Preview:    3 of 5 rows")
	assert.Contains(t, out, "김밥천국")
}

func TestPreview_Override(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "kb.csv", bankCSV)

	out, err := runDrcash(t, "preview", path, "--header-row", "0", "--config", filepath.Join(dir, "drcash.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Header row: 0 (detected 1)")

	_, err = runDrcash(t, "preview", path, "--header-row", "-1")
	assert.Error(t, err)
}

func TestPreview_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tax.csv", taxCSV)

	out, err := runDrcash(t, "preview", path, "--type", "tax", "--json", "--config", filepath.Join(dir, "drcash.yaml"))
	require.NoError(t, err)

	var res model.InferenceResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.HeaderRowIndex)
	assert.Equal(t, "품목", res.RoleDefaults[model.RoleItem])
	assert.Equal(t, "합계금액", res.RoleDefaults[model.RoleAmount])
	assert.Len(t, res.PreviewRows, 2)
}

func TestPreview_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "drcash.yaml")

	_, err := runDrcash(t, "preview", filepath.Join(dir, "missing.csv"), "--config", cfg)
	assert.Error(t, err)

	pdf := writeFile(t, dir, "statement.pdf", "%PDF-1.7")
	_, err = runDrcash(t, "preview", pdf, "--config", cfg)
	assert.ErrorContains(t, err, "unsupported file kind")

	csv := writeFile(t, dir, "kb.csv", bankCSV)
	_, err = runDrcash(t, "preview", csv, "--type", "card", "--config", cfg)
	assert.ErrorContains(t, err, "unknown document type")

	_, err = runDrcash(t, "preview", csv, "--log-level", "loud", "--config", cfg)
	assert.ErrorContains(t, err, "log.level")
}
