package domain

import (
	"sort"
	"time"
)

// IndexVersion is the current artifact index schema version.
const IndexVersion = 1

// Well-known document names inside a space.
const (
	IndexDocumentName   = "_artifact_index.json"
	AliasesDocumentName = "_entity_aliases.json"
)

// ArtifactIndexEntry is the denormalized summary of one artifact.
// The counts are approximate accelerants for prefiltering; the full
// artifact document is authoritative.
type ArtifactIndexEntry struct {
	ID             string       `json:"id"`
	DocumentID     string       `json:"documentId"`
	Kind           ArtifactKind `json:"kind"`
	Title          string       `json:"title"`
	ContentDateISO string       `json:"contentDateISO,omitempty"`
	UpdatedAtISO   string       `json:"updatedAtISO,omitempty"`
	Tags           []string     `json:"tags"`
	Topics         []string     `json:"topics"`
	Participants   []string     `json:"participants"`
	Entities       []Entity     `json:"entities"`
	DecisionsCount int          `json:"decisionsCount"`
	OpenLoopsCount int          `json:"openLoopsCount"`
	RisksCount     int          `json:"risksCount"`
}

// ArtifactIndex is the single catalog document of a space.
// Entries are unique by ID; array order carries no meaning.
type ArtifactIndex struct {
	Version         int                  `json:"version"`
	UpdatedAtISO    string               `json:"updatedAtISO"`
	OwnerID         string               `json:"ownerId"`
	IndexDocumentID string               `json:"indexDocumentId,omitempty"`
	Artifacts       []ArtifactIndexEntry `json:"artifacts"`
}

// NewArtifactIndex returns an empty index for the owner.
func NewArtifactIndex(ownerID string, now time.Time) *ArtifactIndex {
	return &ArtifactIndex{
		Version:      IndexVersion,
		UpdatedAtISO: FormatTime(now),
		OwnerID:      ownerID,
		Artifacts:    []ArtifactIndexEntry{},
	}
}

// Upsert replaces the entry with a matching ID or appends it, and always
// bumps the index's UpdatedAtISO.
func (x *ArtifactIndex) Upsert(entry ArtifactIndexEntry, now time.Time) {
	replaced := false
	for i := range x.Artifacts {
		if x.Artifacts[i].ID == entry.ID {
			x.Artifacts[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		x.Artifacts = append(x.Artifacts, entry)
	}
	x.UpdatedAtISO = FormatTime(now)
}

// Lookup returns the entry with the given artifact ID.
func (x *ArtifactIndex) Lookup(id string) (ArtifactIndexEntry, bool) {
	for i := range x.Artifacts {
		if x.Artifacts[i].ID == id {
			return x.Artifacts[i], true
		}
	}
	return ArtifactIndexEntry{}, false
}

// SortByUpdated orders entries by UpdatedAtISO, newest first.
func SortByUpdated(entries []ArtifactIndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UpdatedAtISO > entries[j].UpdatedAtISO
	})
}

// SortByRecency orders entries by (ContentDateISO desc, UpdatedAtISO desc).
// Entries without a content date sort after dated ones.
func SortByRecency(entries []ArtifactIndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ContentDateISO != b.ContentDateISO {
			return a.ContentDateISO > b.ContentDateISO
		}
		return a.UpdatedAtISO > b.UpdatedAtISO
	})
}

// FormatTime renders a timestamp the way every document in a space stores it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
