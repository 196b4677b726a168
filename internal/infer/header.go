package infer

import (
	"strings"

	"github.com/drcash-dev/drcash/internal/model"
)

// DefaultScanRows bounds the header search window.
const DefaultScanRows = 30

// LocateHeader returns the index of the most header-like row among the first
// scanRows rows. Rows without any non-empty cell are never chosen; if no row
// qualifies, 0 is returned. Ties keep the earliest row.
func LocateHeader(grid model.Grid, scanRows int) int {
	n := min(len(grid), scanRows)

	best, bestScore := 0, -1
	for i := 0; i < n; i++ {
		score, ok := headerScore(grid[i])
		if !ok {
			continue
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// headerScore is 2 x distinct lowercase values + values containing a letter.
func headerScore(row []string) (int, bool) {
	distinct := make(map[string]struct{}, len(row))
	lettered := 0
	for _, cell := range row {
		v := strings.TrimSpace(cell)
		if v == "" {
			continue
		}
		distinct[strings.ToLower(v)] = struct{}{}
		if hasLetter(v) {
			lettered++
		}
	}
	if len(distinct) == 0 {
		return 0, false
	}
	return 2*len(distinct) + lettered, true
}

// hasLetter reports an ASCII Latin letter or a precomposed Hangul syllable.
func hasLetter(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return true
		case r >= '가' && r <= '힣':
			return true
		}
	}
	return false
}
