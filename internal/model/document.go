package model

import (
	"fmt"
	"strings"
)

// DocumentType selects keyword sets and required roles.
type DocumentType string

const (
	DocumentBank DocumentType = "bank"
	DocumentTax  DocumentType = "tax"
)

// ParseDocumentType accepts "bank" or "tax" in any case.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case DocumentBank:
		return DocumentBank, nil
	case DocumentTax:
		return DocumentTax, nil
	}
	return "", fmt.Errorf("unknown document type %q", s)
}

// Role is the semantic purpose a column serves.
type Role string

const (
	RoleAmount Role = "amount"
	RoleName   Role = "name"
	RoleMemo   Role = "memo"
	RoleDate   Role = "date"
	RoleItem   Role = "item"
)

// RolesFor returns the roles a document type maps, in display order.
func RolesFor(doc DocumentType) []Role {
	switch doc {
	case DocumentBank:
		return []Role{RoleAmount, RoleName, RoleMemo, RoleDate}
	case DocumentTax:
		return []Role{RoleAmount, RoleName, RoleDate, RoleItem}
	}
	return nil
}

// RequiredRoles returns the roles that must be assigned for a config to be complete.
func RequiredRoles(doc DocumentType) []Role {
	switch doc {
	case DocumentBank:
		return []Role{RoleAmount, RoleName, RoleMemo, RoleDate}
	case DocumentTax:
		return []Role{RoleAmount, RoleName, RoleDate}
	}
	return nil
}

// FileKind is the decoding format of an uploaded file.
type FileKind string

const (
	KindDelimited   FileKind = "csv"
	KindSpreadsheet FileKind = "xlsx"
)
