// Package runlog keeps an append-only CSV history of extraction runs.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/drcash-dev/drcash/internal/workflow"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp   time.Time
	RunID       string
	Stage       string
	BankFiles   int
	BankEntries int
	TaxInvoices int
	Skipped     int
	OutDir      string
}

// Header is the CSV header for run-log.csv.
const Header = "timestamp,run_id,stage,bank_files,bank_entries,tax_invoices,skipped_rows,out_dir"

const (
	numFields      = 8
	logDir         = "logs"
	logFile        = "logs/run-log.csv"
	colTimestamp   = 0
	colRunID       = 1
	colStage       = 2
	colBankFiles   = 3
	colBankEntries = 4
	colTaxInvoices = 5
	colSkipped     = 6
	colOutDir      = 7
)

// FromResult builds the log entry for a finished run.
func FromResult(res *workflow.RunResult, stage, outDir string) Entry {
	return Entry{
		Timestamp:   res.CreatedAt,
		RunID:       res.ID,
		Stage:       stage,
		BankFiles:   res.BankFiles,
		BankEntries: len(res.Bank),
		TaxInvoices: len(res.Tax),
		Skipped:     res.Skipped,
		OutDir:      outDir,
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colStage] = e.Stage
	row[colBankFiles] = strconv.Itoa(e.BankFiles)
	row[colBankEntries] = strconv.Itoa(e.BankEntries)
	row[colTaxInvoices] = strconv.Itoa(e.TaxInvoices)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colOutDir] = e.OutDir
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	counts := make([]int, 0, 4)
	for _, col := range []int{colBankFiles, colBankEntries, colTaxInvoices, colSkipped} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts = append(counts, n)
	}

	return Entry{
		Timestamp:   ts,
		RunID:       record[colRunID],
		Stage:       record[colStage],
		BankFiles:   counts[0],
		BankEntries: counts[1],
		TaxInvoices: counts[2],
		Skipped:     counts[3],
		OutDir:      record[colOutDir],
	}, nil
}

// Append writes entries to <root>/logs/run-log.csv, creating the file and header if needed.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/run-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
