package model

// InferenceResult is the inferred structure of one file.
type InferenceResult struct {
	HeaderRowIndex int                 `json:"header_row"`
	Detected       int                 `json:"detected_header_row"`
	Overridden     bool                `json:"overridden"`
	Columns        []string            `json:"columns"`
	PreviewFields  []string            `json:"preview_fields"`
	PreviewRows    []map[string]string `json:"preview_rows"`
	RoleDefaults   map[Role]string     `json:"role_defaults"`
	RowCount       int                 `json:"row_count"`
}

// Default returns the proposed column for role. ok is false when no column was proposed.
func (r InferenceResult) Default(role Role) (string, bool) {
	col, ok := r.RoleDefaults[role]
	return col, ok
}

// Empty reports a degenerate result: no columns or no preview rows.
// It is a warning condition, not a failure.
func (r InferenceResult) Empty() bool {
	return len(r.Columns) == 0 || len(r.PreviewRows) == 0
}
