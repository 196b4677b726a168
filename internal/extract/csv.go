package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/drcash-dev/drcash/internal/model"
)

// BankHeader is the CSV header for exported bank entries.
const BankHeader = "source,row,date,counterparty,memo,amount"

// TaxHeader is the CSV header for exported tax invoices.
const TaxHeader = "row,date,counterparty,item,amount"

const dateFormat = "2006-01-02"

// MarshalBankEntry converts a BankEntry to a CSV row.
func MarshalBankEntry(e model.BankEntry) []string {
	return []string{
		e.Source,
		strconv.Itoa(e.Row),
		e.Date.Format(dateFormat),
		e.Counterparty,
		e.Memo,
		e.Amount.String(),
	}
}

// MarshalTaxInvoice converts a TaxInvoice to a CSV row.
func MarshalTaxInvoice(inv model.TaxInvoice) []string {
	return []string{
		strconv.Itoa(inv.Row),
		inv.Date.Format(dateFormat),
		inv.Counterparty,
		inv.Item,
		inv.Amount.String(),
	}
}

// WriteBankEntries writes entries with a header row.
func WriteBankEntries(w io.Writer, entries []model.BankEntry) error {
	return writeRows(w, BankHeader, len(entries), func(i int) []string { return MarshalBankEntry(entries[i]) })
}

// WriteTaxInvoices writes invoices with a header row.
func WriteTaxInvoices(w io.Writer, invoices []model.TaxInvoice) error {
	return writeRows(w, TaxHeader, len(invoices), func(i int) []string { return MarshalTaxInvoice(invoices[i]) })
}

func writeRows(w io.Writer, header string, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
