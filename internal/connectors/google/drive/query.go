package drive

import (
	"strings"

	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// quoteReplacer escapes a value for a single-quoted Drive query literal.
var quoteReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quote renders s as a Drive query string literal.
func quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}

// buildQuery renders a ListQuery in Drive search syntax.
func buildQuery(q driven.ListQuery) string {
	var clauses []string
	if q.ParentID != "" {
		clauses = append(clauses, quote(q.ParentID)+" in parents")
	}
	if q.NameContains != "" {
		clauses = append(clauses, "name contains "+quote(q.NameContains))
	}
	if !q.IncludeTrashed {
		clauses = append(clauses, "trashed = false")
	}
	return strings.Join(clauses, " and ")
}
