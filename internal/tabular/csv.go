package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/drcash-dev/drcash/internal/model"
)

const sniffLines = 10

var delimiters = []rune{',', '\t', ';', '|'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func parseDelimited(data []byte) (model.Grid, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, unreadable(model.KindDelimited, err)
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	grid := model.Grid{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, unreadable(model.KindDelimited, fmt.Errorf("reading CSV: %w", err))
		}
		grid = append(grid, rec)
	}
	return grid, nil
}

// decodeText returns data as UTF-8. Korean bank exports are often EUC-KR (CP949).
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("decoding EUC-KR: %w", err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errors.New("text is neither UTF-8 nor EUC-KR")
	}
	return string(out), nil
}

// sniffDelimiter picks the candidate found on the most of the first
// non-blank records, then the one with the highest count. Separators inside
// quoted fields are ignored. Comma wins remaining ties.
func sniffDelimiter(text string) rune {
	lines := make(map[rune]int, len(delimiters))
	totals := make(map[rune]int, len(delimiters))
	for _, rec := range sampleRecords(text, sniffLines) {
		for _, d := range delimiters {
			if n := rec[d]; n > 0 {
				lines[d]++
				totals[d] += n
			}
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if lines[d] > lines[best] || (lines[d] == lines[best] && totals[d] > totals[best]) {
			best = d
		}
	}
	return best
}

// sampleRecords counts unquoted candidate separators per record for up to
// limit non-blank records. A newline inside quotes does not end a record.
func sampleRecords(text string, limit int) []map[rune]int {
	var out []map[rune]int
	cur := map[rune]int{}
	inQuotes, blank := false, true
	for _, r := range text {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			blank = false
		case r == '\n' && !inQuotes:
			if !blank {
				out = append(out, cur)
				if len(out) == limit {
					return out
				}
			}
			cur, blank = map[rune]int{}, true
		case inQuotes:
		case slices.Contains(delimiters, r):
			cur[r]++
			blank = false
		case r != ' ' && r != '\r':
			blank = false
		}
	}
	if !blank {
		out = append(out, cur)
	}
	return out
}
