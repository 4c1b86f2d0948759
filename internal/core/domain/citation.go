package domain

// Citation is a claimed grounding pointer emitted by a generation provider.
type Citation struct {
	ArtifactID string `json:"artifactId"`
	Excerpt    string `json:"excerpt"`
}

// Default citation limits.
const (
	DefaultMaxCitations    = 10
	DefaultMaxExcerptChars = 300
)

// CitationLimits bounds normalized citation output.
type CitationLimits struct {
	MaxCitations    int
	MaxExcerptChars int
}

// WithDefaults fills zero fields with defaults.
func (l CitationLimits) WithDefaults() CitationLimits {
	if l.MaxCitations <= 0 {
		l.MaxCitations = DefaultMaxCitations
	}
	if l.MaxExcerptChars <= 0 {
		l.MaxExcerptChars = DefaultMaxExcerptChars
	}
	return l
}
