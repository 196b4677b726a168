// Package extract turns a mapped grid into normalized bank and tax records.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/drcash-dev/drcash/internal/model"
)

// DefaultDateLayouts covers the date renderings seen in Korean bank and
// invoice exports, plus excelize's default short date.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
	"2006/01/02 15:04",
	"2006년 01월 02일",
	"2006년 1월 2일",
	"01-02-06",
	"1/2/2006",
}

// Options controls row normalization.
type Options struct {
	DateLayouts []string
	TargetYear  int // 0 keeps every year
}

// Result holds the extracted records of one file.
type Result[T any] struct {
	Records []T
	Skipped int // rows with a blank/unparsable amount or date, or outside TargetYear
}

// ErrMissingColumn is returned when a mapped column is not in the header row.
var ErrMissingColumn = errors.New("mapped column not found in header row")

// Bank extracts entries from grid using the header row and column mapping of cfg.
func Bank(grid model.Grid, headerRow int, cfg model.MappingConfig, source string, opts Options) (Result[model.BankEntry], error) {
	cols, err := resolve(grid.Row(headerRow), cfg, model.RequiredRoles(model.DocumentBank))
	if err != nil {
		return Result[model.BankEntry]{}, err
	}

	var res Result[model.BankEntry]
	for i := headerRow + 1; i < len(grid); i++ {
		if blankRow(grid[i]) {
			continue
		}
		date, amount, ok := dateAmount(grid, i, cols, opts)
		if !ok {
			res.Skipped++
			continue
		}
		memo := cell(grid, i, cols[model.RoleMemo])
		name := cell(grid, i, cols[model.RoleName])
		if name == "" {
			name = memo
		}
		res.Records = append(res.Records, model.BankEntry{
			Source:       source,
			Row:          i,
			Date:         date,
			Counterparty: name,
			Memo:         memo,
			Amount:       amount,
		})
	}
	return res, nil
}

// Tax extracts invoices from grid. The item column is optional.
func Tax(grid model.Grid, headerRow int, cfg model.MappingConfig, opts Options) (Result[model.TaxInvoice], error) {
	cols, err := resolve(grid.Row(headerRow), cfg, model.RequiredRoles(model.DocumentTax))
	if err != nil {
		return Result[model.TaxInvoice]{}, err
	}
	if item, ok := cfg.Column(model.RoleItem); ok && item != "" {
		if idx := indexOf(grid.Row(headerRow), item); idx >= 0 {
			cols[model.RoleItem] = idx
		}
	}

	var res Result[model.TaxInvoice]
	for i := headerRow + 1; i < len(grid); i++ {
		if blankRow(grid[i]) {
			continue
		}
		date, amount, ok := dateAmount(grid, i, cols, opts)
		if !ok {
			res.Skipped++
			continue
		}
		inv := model.TaxInvoice{
			Row:          i,
			Date:         date,
			Counterparty: cell(grid, i, cols[model.RoleName]),
			Amount:       amount,
		}
		if idx, ok := cols[model.RoleItem]; ok {
			inv.Item = cell(grid, i, idx)
		}
		res.Records = append(res.Records, inv)
	}
	return res, nil
}

func resolve(header []string, cfg model.MappingConfig, roles []model.Role) (map[model.Role]int, error) {
	cols := make(map[model.Role]int, len(roles))
	for _, role := range roles {
		name, ok := cfg.Column(role)
		if !ok || name == "" {
			return nil, fmt.Errorf("%s column is not mapped", role)
		}
		idx := indexOf(header, name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s column %q", ErrMissingColumn, role, name)
		}
		cols[role] = idx
	}
	return cols, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func dateAmount(grid model.Grid, row int, cols map[model.Role]int, opts Options) (time.Time, decimal.Decimal, bool) {
	amount, err := ParseAmount(cell(grid, row, cols[model.RoleAmount]))
	if err != nil {
		return time.Time{}, decimal.Decimal{}, false
	}
	date, err := ParseDate(cell(grid, row, cols[model.RoleDate]), opts.DateLayouts)
	if err != nil {
		return time.Time{}, decimal.Decimal{}, false
	}
	if opts.TargetYear != 0 && date.Year() != opts.TargetYear {
		return time.Time{}, decimal.Decimal{}, false
	}
	return date, amount, true
}

func cell(grid model.Grid, row, col int) string {
	return strings.TrimSpace(grid.Cell(row, col))
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
