package domain

// ArtifactKind is the closed set of artifact variants.
type ArtifactKind string

// Artifact kinds.
const (
	// KindSummary is a summary generated from one source document or message.
	KindSummary ArtifactKind = "summary"

	// KindSynthesis is a cross-artifact synthesis with its own citation list.
	KindSynthesis ArtifactKind = "synthesis"
)

// IsValid returns true if the kind is recognised.
func (k ArtifactKind) IsValid() bool {
	switch k {
	case KindSummary, KindSynthesis:
		return true
	default:
		return false
	}
}

// FileSuffix returns the filename suffix used for documents of this kind.
func (k ArtifactKind) FileSuffix() string {
	switch k {
	case KindSummary:
		return ".summary.json"
	case KindSynthesis:
		return ".synthesis.json"
	default:
		return ".json"
	}
}

// String returns the string representation.
func (k ArtifactKind) String() string {
	return string(k)
}

// Severity grades a risk.
type Severity string

// Risk severities.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid returns true if the severity is recognised.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// LoopStatus is the state of an open loop.
type LoopStatus string

// Open loop states.
const (
	LoopOpen   LoopStatus = "open"
	LoopClosed LoopStatus = "closed"
)

// IsValid returns true if the status is recognised.
func (s LoopStatus) IsValid() bool {
	return s == LoopOpen || s == LoopClosed
}

// Entity is a named thing mentioned by an artifact.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Decision is a decision recorded in an artifact.
type Decision struct {
	Text       string   `json:"text"`
	DateISO    string   `json:"dateISO,omitempty"`
	Owner      string   `json:"owner,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// OpenLoop is an action item or unresolved thread.
type OpenLoop struct {
	Text       string     `json:"text"`
	Owner      string     `json:"owner,omitempty"`
	DueDateISO string     `json:"dueDateISO,omitempty"`
	Status     LoopStatus `json:"status"`
	Confidence *float64   `json:"confidence,omitempty"`
}

// Risk is a risk called out in an artifact.
type Risk struct {
	Text       string   `json:"text"`
	Severity   Severity `json:"severity"`
	Likelihood string   `json:"likelihood,omitempty"`
	Owner      string   `json:"owner,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// SummaryBody holds the fields only a summary carries.
type SummaryBody struct {
	Summary    string   `json:"summary"`
	Highlights []string `json:"highlights,omitempty"`
	SourceRef  string   `json:"sourceRef,omitempty"`
}

// SynthesisBody holds the fields only a synthesis carries.
type SynthesisBody struct {
	Synthesis         string     `json:"synthesis"`
	Instruction       string     `json:"instruction,omitempty"`
	SourceArtifactIDs []string   `json:"sourceArtifactIds"`
	Citations         []Citation `json:"citations"`
}

// Artifact is the full, authoritative artifact document.
// Exactly one of Summary or Synthesis is set, matching Kind.
type Artifact struct {
	ID             string       `json:"id"`
	Kind           ArtifactKind `json:"kind"`
	Title          string       `json:"title"`
	ContentDateISO string       `json:"contentDateISO,omitempty"`
	CreatedAtISO   string       `json:"createdAtISO,omitempty"`
	UpdatedAtISO   string       `json:"updatedAtISO,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	Topics         []string     `json:"topics,omitempty"`
	Participants   []string     `json:"participants,omitempty"`
	Entities       []Entity     `json:"entities,omitempty"`
	Decisions      []Decision   `json:"decisions,omitempty"`
	OpenLoops      []OpenLoop   `json:"openLoops,omitempty"`
	Risks          []Risk       `json:"risks,omitempty"`

	Summary   *SummaryBody   `json:"-"`
	Synthesis *SynthesisBody `json:"-"`
}

// Body returns the prose body of the artifact regardless of kind.
func (a *Artifact) Body() string {
	switch a.Kind {
	case KindSummary:
		if a.Summary != nil {
			return a.Summary.Summary
		}
	case KindSynthesis:
		if a.Synthesis != nil {
			return a.Synthesis.Synthesis
		}
	}
	return ""
}

// IndexEntry derives the denormalized index entry for the artifact.
func (a *Artifact) IndexEntry(documentID string) ArtifactIndexEntry {
	return ArtifactIndexEntry{
		ID:             a.ID,
		DocumentID:     documentID,
		Kind:           a.Kind,
		Title:          a.Title,
		ContentDateISO: a.ContentDateISO,
		UpdatedAtISO:   a.UpdatedAtISO,
		Tags:           nonNil(a.Tags),
		Topics:         nonNil(a.Topics),
		Participants:   nonNil(a.Participants),
		Entities:       append([]Entity{}, a.Entities...),
		DecisionsCount: len(a.Decisions),
		OpenLoopsCount: len(a.OpenLoops),
		RisksCount:     len(a.Risks),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
