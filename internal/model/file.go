package model

import (
	"fmt"
	"time"
)

// FileIdentity distinguishes uploaded files for caching and mapping state.
// Two uploads sharing index, name, size and modification time are the same file.
type FileIdentity struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"` // unix milliseconds
}

// NewFileIdentity builds an identity for the file at position index of its upload slot.
func NewFileIdentity(index int, name string, size int64, modTime time.Time) FileIdentity {
	var ms int64
	if !modTime.IsZero() {
		ms = modTime.UnixMilli()
	}
	return FileIdentity{Index: index, Name: name, Size: size, ModTime: ms}
}

// String is for logs only; the struct itself is the map key.
func (id FileIdentity) String() string {
	return fmt.Sprintf("#%d %s (%d bytes)", id.Index, id.Name, id.Size)
}

// Grid is a row-major table of string cells. Rows may be ragged.
type Grid [][]string

// Cell returns the cell at (row, col), or "" when out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// Row returns row i, or nil when out of range.
func (g Grid) Row(i int) []string {
	if i < 0 || i >= len(g) {
		return nil
	}
	return g[i]
}
