package domain

import (
	"strings"
	"time"
)

// Query limits.
const (
	DefaultLimitArtifacts        = 10
	MaxLimitArtifacts            = 50
	DefaultLimitItemsPerArtifact = 5
	MaxLimitItemsPerArtifact     = 50
	DefaultScanBuffer            = 10
)

// DateRange is an inclusive range of ISO dates. Either bound may be empty.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r *DateRange) IsZero() bool {
	return r == nil || (r.From == "" && r.To == "")
}

// Contains reports whether the ISO date falls inside the range.
// Comparison is on the calendar day so that date-only and timestamp
// values compare sensibly. An empty or unparseable date is never contained.
func (r *DateRange) Contains(iso string) bool {
	if r.IsZero() {
		return true
	}
	day, ok := DayOf(iso)
	if !ok {
		return false
	}
	if r.From != "" {
		from, _ := DayOf(r.From)
		if day < from {
			return false
		}
	}
	if r.To != "" {
		to, _ := DayOf(r.To)
		if day > to {
			return false
		}
	}
	return true
}

// DayOf returns the YYYY-MM-DD day of an ISO date or RFC3339 timestamp.
func DayOf(iso string) (string, bool) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return "", false
	}
	if t, err := time.Parse("2006-01-02", iso); err == nil {
		return t.Format("2006-01-02"), true
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t.UTC().Format("2006-01-02"), true
	}
	return "", false
}

// QueryRequest is a structured filter over a space's artifacts.
// Nil tri-state booleans mean "don't care".
type QueryRequest struct {
	DateRange             *DateRange     `json:"dateRange,omitempty"`
	Kind                  []ArtifactKind `json:"kind,omitempty"`
	Entity                string         `json:"entity,omitempty"`
	Tags                  []string       `json:"tags,omitempty"`
	Participants          []string       `json:"participants,omitempty"`
	HasOpenLoops          *bool          `json:"hasOpenLoops,omitempty"`
	HasRisks              *bool          `json:"hasRisks,omitempty"`
	HasDecisions          *bool          `json:"hasDecisions,omitempty"`
	OpenLoopStatus        LoopStatus     `json:"openLoopStatus,omitempty"`
	OpenLoopDueRange      *DateRange     `json:"openLoopDueRange,omitempty"`
	RiskSeverity          Severity       `json:"riskSeverity,omitempty"`
	DecisionDateRange     *DateRange     `json:"decisionDateRange,omitempty"`
	LimitArtifacts        int            `json:"limitArtifacts,omitempty"`
	LimitItemsPerArtifact int            `json:"limitItemsPerArtifact,omitempty"`

	// ScanBuffer is engine-internal slack added to LimitArtifacts when
	// bounding detailed document reads.
	ScanBuffer int `json:"-"`
}

// Validate checks the request and fills defaults. Every offending field is
// listed in the returned invalid_request error.
func (q *QueryRequest) Validate() error {
	var bad []string

	checkRange := func(name string, r *DateRange) {
		if r.IsZero() {
			return
		}
		from, okFrom := DayOf(r.From)
		to, okTo := DayOf(r.To)
		if r.From != "" && !okFrom {
			bad = append(bad, name+".from")
		}
		if r.To != "" && !okTo {
			bad = append(bad, name+".to")
		}
		if okFrom && okTo && from > to {
			bad = append(bad, name)
		}
	}
	checkRange("dateRange", q.DateRange)
	checkRange("openLoopDueRange", q.OpenLoopDueRange)
	checkRange("decisionDateRange", q.DecisionDateRange)

	if len(q.Kind) > 0 {
		kinds := make([]ArtifactKind, len(q.Kind))
		for i, k := range q.Kind {
			kinds[i] = ArtifactKind(strings.ToLower(strings.TrimSpace(string(k))))
		}
		q.Kind = kinds
	}
	q.OpenLoopStatus = LoopStatus(strings.ToLower(strings.TrimSpace(string(q.OpenLoopStatus))))
	q.RiskSeverity = Severity(strings.ToLower(strings.TrimSpace(string(q.RiskSeverity))))

	for _, k := range q.Kind {
		if !k.IsValid() {
			bad = append(bad, "kind")
			break
		}
	}
	if q.OpenLoopStatus != "" && !q.OpenLoopStatus.IsValid() {
		bad = append(bad, "openLoopStatus")
	}
	if q.RiskSeverity != "" && !q.RiskSeverity.IsValid() {
		bad = append(bad, "riskSeverity")
	}

	switch {
	case q.LimitArtifacts == 0:
		q.LimitArtifacts = DefaultLimitArtifacts
	case q.LimitArtifacts < 0 || q.LimitArtifacts > MaxLimitArtifacts:
		bad = append(bad, "limitArtifacts")
	}
	switch {
	case q.LimitItemsPerArtifact == 0:
		q.LimitItemsPerArtifact = DefaultLimitItemsPerArtifact
	case q.LimitItemsPerArtifact < 0 || q.LimitItemsPerArtifact > MaxLimitItemsPerArtifact:
		bad = append(bad, "limitItemsPerArtifact")
	}
	if q.ScanBuffer <= 0 {
		q.ScanBuffer = DefaultScanBuffer
	}

	q.Entity = strings.TrimSpace(q.Entity)

	if len(bad) > 0 {
		return InvalidRequest("query.validate", "invalid filter: "+strings.Join(bad, ", "), bad)
	}
	return nil
}

// QueryTotals are running totals across accepted artifacts. Item totals count
// every matched item, before per-artifact truncation.
type QueryTotals struct {
	ArtifactsMatched int `json:"artifactsMatched"`
	OpenLoopsMatched int `json:"openLoopsMatched"`
	RisksMatched     int `json:"risksMatched"`
	DecisionsMatched int `json:"decisionsMatched"`
}

// ItemMatches are the matched sub-lists of one artifact, truncated for output.
type ItemMatches struct {
	OpenLoops []OpenLoop `json:"openLoops,omitempty"`
	Risks     []Risk     `json:"risks,omitempty"`
	Decisions []Decision `json:"decisions,omitempty"`
}

// QueryResult is one accepted artifact.
type QueryResult struct {
	ArtifactID     string       `json:"artifactId"`
	Kind           ArtifactKind `json:"kind"`
	Title          string       `json:"title"`
	ContentDateISO string       `json:"contentDateISO,omitempty"`
	Entities       []Entity     `json:"entities"`
	Matches        ItemMatches  `json:"matches"`
}

// QueryResponse echoes the effective query (entity rewritten to its
// canonical form when resolved) alongside totals and results.
type QueryResponse struct {
	Query   QueryRequest  `json:"query"`
	Totals  QueryTotals   `json:"totals"`
	Results []QueryResult `json:"results"`

	// DocumentsRead is the number of full artifact documents fetched.
	DocumentsRead int `json:"documentsRead"`

	// Partial is set when the index had to be rebuilt and the rebuild hit its scan cap.
	Partial bool `json:"partial,omitempty"`
}
