package driven

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// GenerationProvider produces summaries, syntheses and chat answers.
// Output that cannot be parsed into the defined shape is a terminal
// bad_output failure and is never retried.
type GenerationProvider interface {
	// Summarize produces a structured summary of one source text.
	Summarize(ctx context.Context, in SummarizeInput) (*SummarizeOutput, error)

	// Synthesize produces a cross-artifact synthesis with citations.
	Synthesize(ctx context.Context, in SynthesizeInput) (*SynthesizeOutput, error)

	// Chat answers a question over the supplied context with citations.
	Chat(ctx context.Context, in ChatInput) (*ChatOutput, error)

	// ModelName returns the underlying model name.
	ModelName() string
}

// ContextArtifact is one artifact supplied to the provider as context.
type ContextArtifact struct {
	ID             string
	Kind           domain.ArtifactKind
	Title          string
	ContentDateISO string
	Text           string
}

// SummarizeInput is the source material for a summary.
type SummarizeInput struct {
	Title          string
	Text           string
	ContentDateISO string
}

// SummarizeOutput is the structured summary returned by a provider.
type SummarizeOutput struct {
	Summary        string            `json:"summary"`
	Highlights     []string          `json:"highlights"`
	Title          string            `json:"title,omitempty"`
	ContentDateISO string            `json:"contentDateISO,omitempty"`
	Topics         []string          `json:"topics,omitempty"`
	Entities       []domain.Entity   `json:"entities,omitempty"`
	Decisions      []domain.Decision `json:"decisions,omitempty"`
	OpenLoops      []domain.OpenLoop `json:"openLoops,omitempty"`
	Risks          []domain.Risk     `json:"risks,omitempty"`
}

// SynthesizeInput asks for a synthesis across artifacts.
type SynthesizeInput struct {
	Instruction string
	Context     []ContextArtifact
}

// SynthesizeOutput is a synthesis with provider-asserted citations.
type SynthesizeOutput struct {
	Synthesis string            `json:"synthesis"`
	Title     string            `json:"title,omitempty"`
	Citations []domain.Citation `json:"citations"`
	Entities  []domain.Entity   `json:"entities,omitempty"`
	Decisions []domain.Decision `json:"decisions,omitempty"`
	OpenLoops []domain.OpenLoop `json:"openLoops,omitempty"`
	Risks     []domain.Risk     `json:"risks,omitempty"`
}

// ChatTurn is one prior exchange in a conversation.
type ChatTurn struct {
	Role    string
	Content string
}

// ChatInput is a question over supplied context.
type ChatInput struct {
	Question string
	History  []ChatTurn
	Context  []ContextArtifact
}

// ChatOutput is an answer with provider-asserted citations.
type ChatOutput struct {
	Answer          string            `json:"answer"`
	Citations       []domain.Citation `json:"citations"`
	UsedArtifactIDs []string          `json:"usedArtifactIds,omitempty"`
}
