package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/distill/internal/core/domain"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "q3-planning-sync", slugify("Q3 Planning: Sync!"))
	assert.Equal(t, "artifact", slugify("  ***  "))
	assert.Equal(t, "café-notes", slugify("Café Notes"))
	assert.LessOrEqual(t, len([]rune(slugify(string(make([]byte, 200))+"abc"))), maxSlugRunes)
}

func TestArtifactDocumentName(t *testing.T) {
	a := &domain.Artifact{ID: "abc-123", Kind: domain.KindSynthesis, Title: "Weekly Review"}
	assert.Equal(t, "weekly-review--abc-123.synthesis.json", artifactDocumentName(a))
}

func TestClassifyDocumentName(t *testing.T) {
	tests := []struct {
		name  string
		want  classifiedName
		found bool
	}{
		{"weekly-review--abc-123.summary.json", classifiedName{domain.KindSummary, "weekly review", "abc-123"}, true},
		{"board-notes--x9.synthesis.json", classifiedName{domain.KindSynthesis, "board notes", "x9"}, true},
		{"old-pick.selection.json", classifiedName{domain.KindSynthesis, "old pick", ""}, true},
		{"--only-id.summary.json", classifiedName{domain.KindSummary, "Untitled", "only-id"}, true},
		{domain.IndexDocumentName, classifiedName{}, false},
		{"notes.txt", classifiedName{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifyDocumentName(tt.name)
			assert.Equal(t, tt.found, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestClassifyDocumentName_RoundTrip(t *testing.T) {
	a := &domain.Artifact{ID: "7f1c", Kind: domain.KindSummary, Title: "Vendor Call"}
	got, ok := classifyDocumentName(artifactDocumentName(a))
	assert.True(t, ok)
	assert.Equal(t, a.ID, got.id)
	assert.Equal(t, a.Kind, got.kind)
}
