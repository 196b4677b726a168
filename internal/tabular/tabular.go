// Package tabular decodes delimited text and spreadsheet workbooks into a
// uniform grid of string cells.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/drcash-dev/drcash/internal/model"
)

// KindFromName maps a file name suffix to its kind.
func KindFromName(name string) (model.FileKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return model.KindDelimited, nil
	case ".xlsx":
		return model.KindSpreadsheet, nil
	}
	return "", &UnsupportedFileKindError{Name: name}
}

// Parse decodes data as kind. Empty input yields an empty grid and no error.
func Parse(data []byte, kind model.FileKind) (model.Grid, error) {
	if len(data) == 0 {
		return model.Grid{}, nil
	}
	switch kind {
	case model.KindDelimited:
		return parseDelimited(data)
	case model.KindSpreadsheet:
		return parseSpreadsheet(data)
	}
	return nil, &UnsupportedFileKindError{Name: string(kind)}
}
