package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// artifactFields drops Artifact's methods so it can be embedded in the wire form.
type artifactFields Artifact

// artifactWire is the flat on-disk shape of an artifact document.
// Kind-specific fields sit beside the common ones.
type artifactWire struct {
	artifactFields

	Summary    *string  `json:"summary,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
	SourceRef  string   `json:"sourceRef,omitempty"`

	// Synthesis lists are pointers so that a synthesis always writes them,
	// empty or not, while summaries leave them out.
	Synthesis         *string     `json:"synthesis,omitempty"`
	Instruction       string      `json:"instruction,omitempty"`
	SourceArtifactIDs *[]string   `json:"sourceArtifactIds,omitempty"`
	Citations         *[]Citation `json:"citations,omitempty"`
}

// unwrapPayload accepts a JSON document or a JSON string holding one.
func unwrapPayload(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, err
		}
		return []byte(inner), nil
	}
	return trimmed, nil
}

// DecodeArtifact is the single decode-and-validate boundary for artifact
// documents. It dispatches on the explicit kind field.
func DecodeArtifact(raw []byte) (*Artifact, error) {
	payload, err := unwrapPayload(raw)
	if err != nil {
		return nil, &ParseError{DocType: "artifact", Reason: "invalid string payload", Err: err}
	}
	if len(payload) == 0 {
		return nil, &ParseError{DocType: "artifact", Reason: "empty payload"}
	}

	var w artifactWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, &ParseError{DocType: "artifact", Reason: "invalid JSON", Err: err}
	}

	a := Artifact(w.artifactFields)
	switch a.Kind {
	case KindSummary:
		if w.Summary == nil {
			return nil, &ParseError{DocType: "artifact", Reason: "summary document has no summary field"}
		}
		a.Summary = &SummaryBody{
			Summary:    *w.Summary,
			Highlights: w.Highlights,
			SourceRef:  w.SourceRef,
		}
	case KindSynthesis:
		if w.Synthesis == nil {
			return nil, &ParseError{DocType: "artifact", Reason: "synthesis document has no synthesis field"}
		}
		a.Synthesis = &SynthesisBody{
			Synthesis:         *w.Synthesis,
			Instruction:       w.Instruction,
			SourceArtifactIDs: derefSlice(w.SourceArtifactIDs),
			Citations:         derefSlice(w.Citations),
		}
	default:
		return nil, &ParseError{DocType: "artifact", Reason: "unknown kind " + strings.TrimSpace(string(a.Kind))}
	}

	for i := range a.OpenLoops {
		status := LoopStatus(strings.ToLower(strings.TrimSpace(string(a.OpenLoops[i].Status))))
		if status == "" {
			status = LoopOpen
		}
		a.OpenLoops[i].Status = status
	}
	for i := range a.Risks {
		a.Risks[i].Severity = Severity(strings.ToLower(strings.TrimSpace(string(a.Risks[i].Severity))))
	}

	return &a, nil
}

// EncodeArtifact renders an artifact in its on-disk shape.
func EncodeArtifact(a *Artifact) ([]byte, error) {
	w := artifactWire{artifactFields: artifactFields(*a)}
	switch a.Kind {
	case KindSummary:
		if a.Summary == nil {
			return nil, &ParseError{DocType: "artifact", Reason: "summary artifact has no body"}
		}
		w.Summary = &a.Summary.Summary
		w.Highlights = a.Summary.Highlights
		w.SourceRef = a.Summary.SourceRef
	case KindSynthesis:
		if a.Synthesis == nil {
			return nil, &ParseError{DocType: "artifact", Reason: "synthesis artifact has no body"}
		}
		w.Synthesis = &a.Synthesis.Synthesis
		w.Instruction = a.Synthesis.Instruction
		sources := append([]string{}, a.Synthesis.SourceArtifactIDs...)
		citations := append([]Citation{}, a.Synthesis.Citations...)
		w.SourceArtifactIDs = &sources
		w.Citations = &citations
	default:
		return nil, &ParseError{DocType: "artifact", Reason: "unknown kind " + string(a.Kind)}
	}
	return json.MarshalIndent(w, "", "  ")
}

func derefSlice[T any](p *[]T) []T {
	if p == nil {
		return nil
	}
	return *p
}

// DecodeIndex is the decode-and-validate boundary for the artifact index.
func DecodeIndex(raw []byte) (*ArtifactIndex, error) {
	payload, err := unwrapPayload(raw)
	if err != nil {
		return nil, &ParseError{DocType: "index", Reason: "invalid string payload", Err: err}
	}
	var x ArtifactIndex
	if err := json.Unmarshal(payload, &x); err != nil {
		return nil, &ParseError{DocType: "index", Reason: "invalid JSON", Err: err}
	}
	if x.Artifacts == nil {
		return nil, &ParseError{DocType: "index", Reason: "missing artifacts array"}
	}

	// Enforce unique ids; the last occurrence wins, matching upsert semantics.
	seen := make(map[string]int, len(x.Artifacts))
	unique := x.Artifacts[:0]
	for _, e := range x.Artifacts {
		if e.ID == "" || !e.Kind.IsValid() {
			continue
		}
		if pos, ok := seen[e.ID]; ok {
			unique[pos] = e
			continue
		}
		seen[e.ID] = len(unique)
		unique = append(unique, e)
	}
	x.Artifacts = unique
	return &x, nil
}

// EncodeIndex renders the index document.
func EncodeIndex(x *ArtifactIndex) ([]byte, error) {
	return json.MarshalIndent(x, "", "  ")
}

// DecodeAliases is the decode-and-validate boundary for the alias table.
func DecodeAliases(raw []byte) (*EntityAliases, error) {
	payload, err := unwrapPayload(raw)
	if err != nil {
		return nil, &ParseError{DocType: "aliases", Reason: "invalid string payload", Err: err}
	}
	var t EntityAliases
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, &ParseError{DocType: "aliases", Reason: "invalid JSON", Err: err}
	}
	if t.Aliases == nil {
		t.Aliases = []AliasRow{}
	}
	return &t, nil
}

// EncodeAliases renders the alias table document.
func EncodeAliases(t *EntityAliases) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
