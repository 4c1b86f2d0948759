package services

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// NormalizeCitations is the only place provider-asserted citations are
// checked against the context the provider was actually given. It trims
// excerpts, drops citations to artifacts outside allowedIDs (and those
// with nothing left to quote), clamps excerpt length, removes duplicate
// excerpts by normalized text keeping the first, and caps the list length.
func NormalizeCitations(citations []domain.Citation, allowedIDs []string, limits domain.CitationLimits) []domain.Citation {
	limits = limits.WithDefaults()

	allowed := make(map[string]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}

	out := []domain.Citation{}
	seen := make(map[string]bool, len(citations))
	for _, c := range citations {
		if len(out) >= limits.MaxCitations {
			break
		}
		id := strings.TrimSpace(c.ArtifactID)
		if !allowed[id] {
			continue
		}
		excerpt := clampRunes(strings.TrimSpace(c.Excerpt), limits.MaxExcerptChars)
		if excerpt == "" {
			continue
		}
		key := normalizeExcerpt(excerpt)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, domain.Citation{ArtifactID: id, Excerpt: excerpt})
	}
	return out
}

func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}

func normalizeExcerpt(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// intersectIDs keeps the ids of claimed that appear in allowed, in claimed
// order, without duplicates.
func intersectIDs(claimed, allowed []string) []string {
	set := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		set[id] = true
	}
	out := []string{}
	seen := make(map[string]bool, len(claimed))
	for _, id := range claimed {
		id = strings.TrimSpace(id)
		if set[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
