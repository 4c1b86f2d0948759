package services

import (
	"strings"
	"unicode"

	"github.com/custodia-labs/distill/internal/core/domain"
)

const (
	idSeparator  = "--"
	legacySuffix = ".selection.json"
	maxSlugRunes = 60
	fallbackSlug = "artifact"
)

// artifactDocumentName returns "<slug>--<id><suffix>" for an artifact.
func artifactDocumentName(a *domain.Artifact) string {
	return slugify(a.Title) + idSeparator + a.ID + a.Kind.FileSuffix()
}

// slugify lowercases a title and folds every run of non-alphanumerics into one dash.
func slugify(title string) string {
	var b strings.Builder
	dash := false
	n := 0
	for _, r := range strings.ToLower(title) {
		if n >= maxSlugRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			n++
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
			n++
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// classifiedName is what a document's name says about it.
type classifiedName struct {
	kind  domain.ArtifactKind
	title string
	id    string
}

// classifyDocumentName recognises artifact documents by filename suffix.
// The id is taken from a trailing "--<id>"; without one, ok is still true
// and id is empty so callers fall back to the document id.
func classifyDocumentName(name string) (classifiedName, bool) {
	var c classifiedName
	var stem string
	switch {
	case strings.HasSuffix(name, domain.KindSummary.FileSuffix()):
		c.kind = domain.KindSummary
		stem = strings.TrimSuffix(name, domain.KindSummary.FileSuffix())
	case strings.HasSuffix(name, domain.KindSynthesis.FileSuffix()):
		c.kind = domain.KindSynthesis
		stem = strings.TrimSuffix(name, domain.KindSynthesis.FileSuffix())
	case strings.HasSuffix(name, legacySuffix):
		c.kind = domain.KindSynthesis
		stem = strings.TrimSuffix(name, legacySuffix)
	default:
		return c, false
	}

	if i := strings.LastIndex(stem, idSeparator); i >= 0 {
		c.id = stem[i+len(idSeparator):]
		stem = stem[:i]
	}
	c.title = strings.TrimSpace(strings.ReplaceAll(stem, "-", " "))
	if c.title == "" {
		c.title = "Untitled"
	}
	return c, true
}
