// Package infer recovers table structure from a decoded grid: header row
// location, column role proposals and a bounded preview.
package infer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drcash-dev/drcash/internal/model"
	"github.com/drcash-dev/drcash/internal/tabular"
)

// DefaultPreviewRows is the number of data rows sampled after the header.
const DefaultPreviewRows = 5

// ErrInvalidHeaderRow is returned for a negative header row override.
var ErrInvalidHeaderRow = errors.New("header row must be >= 0")

// Options configures a Builder. Zero values select defaults.
type Options struct {
	ScanRows    int
	PreviewRows int
	Keywords    KeywordSet
}

// Builder composes parsing, header location and role classification.
// It holds no per-call state; Build is safe for concurrent use.
type Builder struct {
	scanRows    int
	previewRows int
	classifier  *Classifier
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	if opts.ScanRows <= 0 {
		opts.ScanRows = DefaultScanRows
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.Keywords == nil {
		opts.Keywords = DefaultKeywords()
	}
	return &Builder{
		scanRows:    opts.ScanRows,
		previewRows: opts.PreviewRows,
		classifier:  NewClassifier(opts.Keywords),
	}
}

// Build parses data and infers its structure. A non-nil override, including
// 0, replaces the heuristic header row.
func (b *Builder) Build(data []byte, kind model.FileKind, doc model.DocumentType, override *int) (model.InferenceResult, error) {
	grid, err := tabular.Parse(data, kind)
	if err != nil {
		return model.InferenceResult{}, err
	}
	return b.Infer(grid, doc, override)
}

// Infer is Build over an already decoded grid.
func (b *Builder) Infer(grid model.Grid, doc model.DocumentType, override *int) (model.InferenceResult, error) {
	if override != nil && *override < 0 {
		return model.InferenceResult{}, fmt.Errorf("%w: got %d", ErrInvalidHeaderRow, *override)
	}

	detected := LocateHeader(grid, b.scanRows)
	headerRow := detected
	if override != nil {
		headerRow = *override
	}

	header := trimAll(grid.Row(headerRow))
	columns := make([]string, 0, len(header))
	for _, h := range header {
		if h != "" {
			columns = append(columns, h)
		}
	}

	fields := previewFields(header)
	rows := []map[string]string{}
	if headerRow < len(grid) {
		for i := headerRow + 1; i < len(grid) && len(rows) < b.previewRows; i++ {
			rec := make(map[string]string, len(header))
			for col := range header {
				rec[fieldName(header, col)] = strings.TrimSpace(grid.Cell(i, col))
			}
			rows = append(rows, rec)
		}
	}

	return model.InferenceResult{
		HeaderRowIndex: headerRow,
		Detected:       detected,
		Overridden:     override != nil,
		Columns:        columns,
		PreviewFields:  fields,
		PreviewRows:    rows,
		RoleDefaults:   b.classifier.Classify(columns, doc),
		RowCount:       len(grid),
	}, nil
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// fieldName is the preview record key for header position i.
func fieldName(header []string, i int) string {
	if header[i] != "" {
		return header[i]
	}
	return fmt.Sprintf("col_%d", i)
}

// previewFields lists record keys in header order, first occurrence only.
func previewFields(header []string) []string {
	seen := make(map[string]bool, len(header))
	fields := make([]string, 0, len(header))
	for i := range header {
		name := fieldName(header, i)
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields
}
