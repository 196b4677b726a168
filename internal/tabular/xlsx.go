package tabular

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/drcash-dev/drcash/internal/model"
)

// parseSpreadsheet reads the first sheet as formatted text. Blank rows inside
// the sheet's extent are kept as empty rows.
func parseSpreadsheet(data []byte) (model.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, unreadable(model.KindSpreadsheet, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, unreadable(model.KindSpreadsheet, errors.New("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, unreadable(model.KindSpreadsheet, fmt.Errorf("reading sheet %q: %w", sheets[0], err))
	}

	grid := make(model.Grid, len(rows))
	for i, row := range rows {
		if row == nil {
			row = []string{}
		}
		grid[i] = row
	}
	return grid, nil
}
