package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryService filters a space's artifacts in two phases: a cheap prefilter
// over the index, then a bounded sequential scan of full documents.
type QueryService struct {
	store      driven.ObjectStore
	index      driving.IndexService
	aliases    driving.AliasService
	scanBuffer int
}

// NewQueryService creates a new query service.
func NewQueryService(store driven.ObjectStore, index driving.IndexService, aliases driving.AliasService) *QueryService {
	return &QueryService{
		store:      store,
		index:      index,
		aliases:    aliases,
		scanBuffer: domain.DefaultScanBuffer,
	}
}

// SetScanBuffer overrides the slack added to limitArtifacts when bounding reads.
func (s *QueryService) SetScanBuffer(n int) {
	if n > 0 {
		s.scanBuffer = n
	}
}

// Query runs a structured query. At most min(candidates, limitArtifacts +
// scanBuffer) full documents are read.
func (s *QueryService) Query(ctx context.Context, spaceID string, req domain.QueryRequest) (*domain.QueryResponse, error) {
	logger.Section("Query Execution")

	if req.ScanBuffer <= 0 {
		req.ScanBuffer = s.scanBuffer
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lookup := newAliasLookup(nil)
	entityKey := ""
	if req.Entity != "" {
		table, err := s.aliases.Load(ctx, spaceID)
		if err != nil {
			return nil, err
		}
		lookup = newAliasLookup(table)
		entityKey = lookup.key(req.Entity)
		logger.Debug("Entity %q resolved to %q", req.Entity, entityKey)
		req.Entity = entityKey
	}

	loaded, err := s.index.Load(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	candidates := prefilter(loaded.Index.Artifacts, &req, entityKey, lookup)
	domain.SortByRecency(candidates)

	budget := req.LimitArtifacts + req.ScanBuffer
	if len(candidates) < budget {
		budget = len(candidates)
	}
	logger.Debug("Prefilter: %s", logger.KV("indexed", len(loaded.Index.Artifacts),
		"candidates", len(candidates), "readBudget", budget))

	resp := &domain.QueryResponse{
		Query:   req,
		Results: []domain.QueryResult{},
		Partial: loaded.Partial,
	}

	for _, entry := range candidates {
		if len(resp.Results) >= req.LimitArtifacts || resp.DocumentsRead >= budget {
			break
		}
		resp.DocumentsRead++

		art, err := s.readArtifact(ctx, spaceID, entry.DocumentID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isSkippable(err) {
				logger.Warn("Skipping artifact %s: %v", entry.ID, err)
				continue
			}
			return nil, err
		}

		m, ok := matchDetail(art, &req)
		if !ok {
			continue
		}

		resp.Totals.ArtifactsMatched++
		resp.Totals.OpenLoopsMatched += len(m.OpenLoops)
		resp.Totals.RisksMatched += len(m.Risks)
		resp.Totals.DecisionsMatched += len(m.Decisions)

		resp.Results = append(resp.Results, resultFor(entry, art, m, req.LimitItemsPerArtifact))
	}

	logger.Debug("Query done: %s", logger.KV("accepted", len(resp.Results), "reads", resp.DocumentsRead))
	return resp, nil
}

func (s *QueryService) readArtifact(ctx context.Context, spaceID, documentID string) (*domain.Artifact, error) {
	body, _, err := readInSpace(ctx, s.store, spaceID, documentID)
	if err != nil {
		return nil, err
	}
	return domain.DecodeArtifact(body)
}

// prefilter applies the cheap predicates to index entries. The has*
// predicates use the approximate counts.
func prefilter(
	entries []domain.ArtifactIndexEntry, q *domain.QueryRequest, entityKey string, lookup *aliasLookup,
) []domain.ArtifactIndexEntry {
	out := make([]domain.ArtifactIndexEntry, 0, len(entries))
	for _, e := range entries {
		if !q.DateRange.IsZero() && !q.DateRange.Contains(e.ContentDateISO) {
			continue
		}
		if len(q.Kind) > 0 && !containsKind(q.Kind, e.Kind) {
			continue
		}
		if entityKey != "" && !hasEntity(e.Entities, entityKey, lookup) {
			continue
		}
		if len(q.Tags) > 0 && !overlaps(q.Tags, e.Tags) {
			continue
		}
		if len(q.Participants) > 0 && !overlaps(q.Participants, e.Participants) {
			continue
		}
		if !countMatches(q.HasOpenLoops, e.OpenLoopsCount) ||
			!countMatches(q.HasRisks, e.RisksCount) ||
			!countMatches(q.HasDecisions, e.DecisionsCount) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsKind(kinds []domain.ArtifactKind, k domain.ArtifactKind) bool {
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

func hasEntity(entities []domain.Entity, key string, lookup *aliasLookup) bool {
	for _, e := range entities {
		if lookup.key(e.Name) == key {
			return true
		}
	}
	return false
}

// overlaps reports whether the lists share a value, ignoring case.
func overlaps(want, have []string) bool {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[strings.ToLower(strings.TrimSpace(h))] = true
	}
	for _, w := range want {
		if set[strings.ToLower(strings.TrimSpace(w))] {
			return true
		}
	}
	return false
}

func countMatches(want *bool, count int) bool {
	if want == nil {
		return true
	}
	return *want == (count > 0)
}

// matchDetail applies the exact predicates to the authoritative sub-lists.
// A group is active when its item filter is set or its has* flag is true;
// every active group must match at least one item. has*=false requires
// the authoritative list to be empty. Only active groups report matches.
func matchDetail(a *domain.Artifact, q *domain.QueryRequest) (domain.ItemMatches, bool) {
	var m domain.ItemMatches

	if (isFalse(q.HasOpenLoops) && len(a.OpenLoops) > 0) ||
		(isFalse(q.HasRisks) && len(a.Risks) > 0) ||
		(isFalse(q.HasDecisions) && len(a.Decisions) > 0) {
		return m, false
	}

	if isTrue(q.HasOpenLoops) || q.OpenLoopStatus != "" || !q.OpenLoopDueRange.IsZero() {
		for _, l := range a.OpenLoops {
			if q.OpenLoopStatus != "" && l.Status != q.OpenLoopStatus {
				continue
			}
			if !q.OpenLoopDueRange.IsZero() && !q.OpenLoopDueRange.Contains(l.DueDateISO) {
				continue
			}
			m.OpenLoops = append(m.OpenLoops, l)
		}
		if len(m.OpenLoops) == 0 {
			return m, false
		}
	}

	if isTrue(q.HasRisks) || q.RiskSeverity != "" {
		for _, r := range a.Risks {
			if q.RiskSeverity != "" && r.Severity != q.RiskSeverity {
				continue
			}
			m.Risks = append(m.Risks, r)
		}
		if len(m.Risks) == 0 {
			return m, false
		}
	}

	if isTrue(q.HasDecisions) || !q.DecisionDateRange.IsZero() {
		for _, d := range a.Decisions {
			if !q.DecisionDateRange.IsZero() && !q.DecisionDateRange.Contains(d.DateISO) {
				continue
			}
			m.Decisions = append(m.Decisions, d)
		}
		if len(m.Decisions) == 0 {
			return m, false
		}
	}

	return m, true
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }

func resultFor(entry domain.ArtifactIndexEntry, a *domain.Artifact, m domain.ItemMatches, limit int) domain.QueryResult {
	r := domain.QueryResult{
		ArtifactID:     entry.ID,
		Kind:           a.Kind,
		Title:          a.Title,
		ContentDateISO: a.ContentDateISO,
		Entities:       a.Entities,
		Matches: domain.ItemMatches{
			OpenLoops: truncate(m.OpenLoops, limit),
			Risks:     truncate(m.Risks, limit),
			Decisions: truncate(m.Decisions, limit),
		},
	}
	if r.Title == "" {
		r.Title = entry.Title
	}
	if r.ContentDateISO == "" {
		r.ContentDateISO = entry.ContentDateISO
	}
	if r.Entities == nil {
		r.Entities = entry.Entities
	}
	if r.Entities == nil {
		r.Entities = []domain.Entity{}
	}
	return r
}

func truncate[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
