package model

// MappingConfig holds the column-role assignments of one file.
// A nil field is unset. An empty string column is an explicit "no column".
type MappingConfig struct {
	HeaderRow *int    `json:"header_row,omitempty" yaml:"header_row,omitempty"`
	Label     *string `json:"label,omitempty" yaml:"label,omitempty"`
	AmountCol *string `json:"amt_col,omitempty" yaml:"amt_col,omitempty"`
	NameCol   *string `json:"name_col,omitempty" yaml:"name_col,omitempty"`
	MemoCol   *string `json:"memo_col,omitempty" yaml:"memo_col,omitempty"`
	DateCol   *string `json:"date_col,omitempty" yaml:"date_col,omitempty"`
	ItemCol   *string `json:"item_col,omitempty" yaml:"item_col,omitempty"`
}

// Column returns the assignment for role and whether it is set.
func (c MappingConfig) Column(role Role) (string, bool) {
	p := c.columnPtr(role)
	if p == nil || *p == nil {
		return "", false
	}
	return **p, true
}

// SetColumn assigns role to col.
func (c *MappingConfig) SetColumn(role Role, col string) {
	if p := c.columnPtr(role); p != nil {
		*p = &col
	}
}

func (c *MappingConfig) columnPtr(role Role) **string {
	switch role {
	case RoleAmount:
		return &c.AmountCol
	case RoleName:
		return &c.NameCol
	case RoleMemo:
		return &c.MemoCol
	case RoleDate:
		return &c.DateCol
	case RoleItem:
		return &c.ItemCol
	}
	return nil
}

// Clone returns a deep copy.
func (c MappingConfig) Clone() MappingConfig {
	return MappingConfig{
		HeaderRow: cloneInt(c.HeaderRow),
		Label:     cloneString(c.Label),
		AmountCol: cloneString(c.AmountCol),
		NameCol:   cloneString(c.NameCol),
		MemoCol:   cloneString(c.MemoCol),
		DateCol:   cloneString(c.DateCol),
		ItemCol:   cloneString(c.ItemCol),
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// WorkflowStage is derived from files, mappings and run state. It is never stored.
type WorkflowStage string

const (
	StageUploadPending  WorkflowStage = "upload_pending"
	StageMappingPending WorkflowStage = "mapping_pending"
	StageReady          WorkflowStage = "ready"
	StageComplete       WorkflowStage = "complete"
)
