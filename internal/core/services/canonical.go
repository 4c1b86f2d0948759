package services

import (
	"strings"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// corporateSuffixes are trailing tokens dropped from entity names. "s.a."
// appears without its final dot because trailing punctuation is trimmed first.
var corporateSuffixes = map[string]bool{
	"ltd":         true,
	"limited":     true,
	"inc":         true,
	"llc":         true,
	"plc":         true,
	"corp":        true,
	"corporation": true,
	"co":          true,
	"company":     true,
	"gmbh":        true,
	"s.a":         true,
	"srl":         true,
}

const trailingPunctuation = ".,;:!?"

// NormalizeName lowercases a name, collapses whitespace, and repeatedly
// strips trailing punctuation and corporate-suffix tokens until nothing
// more comes off. A name that is nothing but a suffix is left alone.
// NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(raw string) string {
	s := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	for {
		before := s
		s = strings.TrimSpace(strings.TrimRight(s, trailingPunctuation))
		s = stripCorporateSuffix(s)
		if s == before {
			return s
		}
	}
}

func stripCorporateSuffix(s string) string {
	i := strings.LastIndexAny(s, " ,")
	if i < 0 {
		return s
	}
	if !corporateSuffixes[s[i+1:]] {
		return s
	}
	return strings.TrimRight(s[:i], " ,")
}

// normalizeType lowercases and trims an entity type.
func normalizeType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// aliasLookup resolves normalized names through an alias table.
type aliasLookup struct {
	byAlias map[string][]domain.AliasRow

	// byDisplay maps normalized display names back to their canonical form
	// so entities already rewritten to a display name still resolve.
	byDisplay map[string]string
}

func newAliasLookup(table *domain.EntityAliases) *aliasLookup {
	l := &aliasLookup{
		byAlias:   make(map[string][]domain.AliasRow),
		byDisplay: make(map[string]string),
	}
	if table == nil {
		return l
	}
	for _, row := range table.Aliases {
		alias := NormalizeName(row.Alias)
		if alias == "" {
			continue
		}
		l.byAlias[alias] = append(l.byAlias[alias], row)
		if row.DisplayName != "" {
			display := NormalizeName(row.DisplayName)
			if _, taken := l.byDisplay[display]; !taken {
				l.byDisplay[display] = NormalizeName(row.Canonical)
			}
		}
	}
	return l
}

// row returns the alias row for a normalized name, preferring one whose
// type matches.
func (l *aliasLookup) row(normalized, typ string) (domain.AliasRow, bool) {
	rows := l.byAlias[normalized]
	if len(rows) == 0 {
		return domain.AliasRow{}, false
	}
	for _, r := range rows {
		if typ != "" && normalizeType(r.Type) == typ {
			return r, true
		}
	}
	return rows[0], true
}

// key returns the canonical identity of a free-text name: the alias
// table's canonical value if the name is a known alias or display name,
// otherwise the normalized name.
func (l *aliasLookup) key(name string) string {
	n := NormalizeName(name)
	if r, ok := l.row(n, ""); ok {
		return NormalizeName(r.Canonical)
	}
	if c, ok := l.byDisplay[n]; ok {
		return c
	}
	return n
}

// Canonicalize normalizes entity names and resolves them through the alias
// table. Resolved entities take the row's display name (or canonical) and
// its type when set. Output is deduplicated by (canonical name, type) in
// first-occurrence order; empty names are dropped.
func Canonicalize(entities []domain.Entity, table *domain.EntityAliases) []domain.Entity {
	return canonicalizeWith(entities, newAliasLookup(table))
}

func canonicalizeWith(entities []domain.Entity, l *aliasLookup) []domain.Entity {
	out := []domain.Entity{}
	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		name := NormalizeName(e.Name)
		if name == "" {
			continue
		}
		typ := normalizeType(e.Type)

		resolved := domain.Entity{Name: name, Type: typ}
		key := name
		if r, ok := l.row(name, typ); ok {
			key = NormalizeName(r.Canonical)
			resolved.Name = r.DisplayName
			if resolved.Name == "" {
				resolved.Name = key
			}
			if r.Type != "" {
				resolved.Type = normalizeType(r.Type)
			}
		}

		dedupe := key + "\x00" + resolved.Type
		if seen[dedupe] {
			continue
		}
		seen[dedupe] = true
		out = append(out, resolved)
	}
	return out
}

// NormalizeAliasRows prepares rows for storage: alias and canonical are
// normalized, rows where they collapse to the same value (or to nothing)
// are rejected, and duplicates by (alias, canonical, type) are dropped,
// including duplicates of rows already in existing.
func NormalizeAliasRows(existing, rows []domain.AliasRow) (accepted, rejected []domain.AliasRow) {
	seen := make(map[string]bool, len(existing)+len(rows))
	rowKey := func(r domain.AliasRow) string {
		return r.Alias + "\x00" + r.Canonical + "\x00" + r.Type
	}
	for _, r := range existing {
		seen[rowKey(r)] = true
	}

	for _, r := range rows {
		n := domain.AliasRow{
			Alias:       NormalizeName(r.Alias),
			Canonical:   NormalizeName(r.Canonical),
			DisplayName: strings.TrimSpace(r.DisplayName),
			Type:        normalizeType(r.Type),
		}
		if n.Alias == "" || n.Canonical == "" || n.Alias == n.Canonical {
			rejected = append(rejected, r)
			continue
		}
		k := rowKey(n)
		if seen[k] {
			continue
		}
		seen[k] = true
		accepted = append(accepted, n)
	}
	return accepted, rejected
}
