package infer

import (
	"strings"

	"github.com/drcash-dev/drcash/internal/model"
)

// Classifier proposes a column for each role from header text.
type Classifier struct {
	keywords KeywordSet
}

// NewClassifier creates a Classifier. Keywords are lowercased once here.
func NewClassifier(keywords KeywordSet) *Classifier {
	lowered := make(KeywordSet, len(keywords))
	for doc, roles := range keywords {
		lr := make(Keywords, len(roles))
		for role, words := range roles {
			lw := make([]string, 0, len(words))
			for _, w := range words {
				if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
					lw = append(lw, w)
				}
			}
			lr[role] = lw
		}
		lowered[doc] = lr
	}
	return &Classifier{keywords: lowered}
}

// Classify returns the proposed column per role of doc. For each role the
// first column containing any keyword wins; with no match the first column
// is proposed. Roles are absent from the map only when columns is empty.
// A column may be proposed for several roles.
func (c *Classifier) Classify(columns []string, doc model.DocumentType) map[model.Role]string {
	defaults := make(map[model.Role]string)
	if len(columns) == 0 {
		return defaults
	}

	lower := make([]string, len(columns))
	for i, col := range columns {
		lower[i] = strings.ToLower(col)
	}

	for _, role := range model.RolesFor(doc) {
		defaults[role] = pick(columns, lower, c.keywords[doc][role])
	}
	return defaults
}

func pick(columns, lower, keys []string) string {
	for i, lc := range lower {
		for _, k := range keys {
			if strings.Contains(lc, k) {
				return columns[i]
			}
		}
	}
	return columns[0]
}
