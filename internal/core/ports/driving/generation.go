package driving

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
)

// SummarizeRequest is the source material for a new summary artifact.
type SummarizeRequest struct {
	Title          string
	Text           string
	ContentDateISO string
	Tags           []string
	Participants   []string
	SourceRef      string
}

// SynthesizeRequest selects artifacts to synthesize across.
type SynthesizeRequest struct {
	ArtifactIDs []string
	Instruction string
	Title       string
	Tags        []string
}

// ChatRequest is a question over explicitly selected or queried artifacts.
// When ArtifactIDs is empty, Filter selects the context.
type ChatRequest struct {
	Question    string
	ArtifactIDs []string
	Filter      *domain.QueryRequest
	History     []driven.ChatTurn
}

// CreatedArtifact is an artifact written to the store and recorded in the index.
type CreatedArtifact struct {
	Artifact   *domain.Artifact
	DocumentID string
}

// ChatAnswer is a grounded answer.
type ChatAnswer struct {
	Answer          string            `json:"answer"`
	Citations       []domain.Citation `json:"citations"`
	UsedArtifactIDs []string          `json:"usedArtifactIds"`
}

// GenerationService invokes the generation provider and persists results.
type GenerationService interface {
	// Summarize creates a summary artifact.
	Summarize(ctx context.Context, spaceID string, req SummarizeRequest) (*CreatedArtifact, error)

	// Synthesize creates a synthesis artifact over existing artifacts.
	Synthesize(ctx context.Context, spaceID string, req SynthesizeRequest) (*CreatedArtifact, error)

	// Chat answers a question with normalized citations.
	Chat(ctx context.Context, spaceID string, req ChatRequest) (*ChatAnswer, error)

	// BackfillContentDate patches an artifact's content date and refreshes its index entry.
	BackfillContentDate(ctx context.Context, spaceID, artifactID, dateISO string) (*CreatedArtifact, error)
}
