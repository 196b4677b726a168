package mapping

import "github.com/drcash-dev/drcash/internal/model"

// Complete reports whether cfg is ready for doc. BANK needs a header row and
// amount, name, memo and date columns. TAX needs amount, name and date; the
// item column and header row are optional.
func Complete(cfg model.MappingConfig, doc model.DocumentType) bool {
	if doc == model.DocumentBank && cfg.HeaderRow == nil {
		return false
	}
	roles := model.RequiredRoles(doc)
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if col, ok := cfg.Column(role); !ok || col == "" {
			return false
		}
	}
	return true
}

// Missing lists what keeps cfg from being complete for doc: "header_row"
// and the names of unassigned required roles.
func Missing(cfg model.MappingConfig, doc model.DocumentType) []string {
	var missing []string
	if doc == model.DocumentBank && cfg.HeaderRow == nil {
		missing = append(missing, "header_row")
	}
	for _, role := range model.RequiredRoles(doc) {
		if col, ok := cfg.Column(role); !ok || col == "" {
			missing = append(missing, string(role))
		}
	}
	return missing
}
