package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

// Ensure GenerationService implements the interface.
var _ driving.GenerationService = (*GenerationService)(nil)

// DefaultProviderPolicy bounds generation calls. Generation is slow, so the
// per-attempt budget is generous and only one retry is allowed.
var DefaultProviderPolicy = resilience.Policy{
	Timeout:     90 * time.Second,
	MaxAttempts: 2,
	BaseDelay:   time.Second,
	MaxDelay:    4 * time.Second,
}

// GenerationService calls the generation provider, enforces citation
// integrity on its output, and persists new artifacts with an index upsert.
type GenerationService struct {
	store    driven.ObjectStore
	index    driving.IndexService
	aliases  driving.AliasService
	query    driving.QueryService
	provider driven.GenerationProvider
	limits   domain.CitationLimits
	policy   resilience.Policy
	now      func() time.Time
	newID    func() string
}

// NewGenerationService creates a new generation service. The provider is
// optional (can be nil); generation operations then fail with not_configured.
func NewGenerationService(
	store driven.ObjectStore,
	index driving.IndexService,
	aliases driving.AliasService,
	query driving.QueryService,
	provider driven.GenerationProvider,
) *GenerationService {
	return &GenerationService{
		store:    store,
		index:    index,
		aliases:  aliases,
		query:    query,
		provider: provider,
		limits:   domain.CitationLimits{}.WithDefaults(),
		policy:   DefaultProviderPolicy,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetCitationLimits overrides the citation normalizer caps.
func (s *GenerationService) SetCitationLimits(limits domain.CitationLimits) {
	s.limits = limits.WithDefaults()
}

// SetProviderPolicy overrides the timeout and retry policy for provider calls.
func (s *GenerationService) SetProviderPolicy(p resilience.Policy) {
	s.policy = p
}

func (s *GenerationService) requireProvider(op string) error {
	if s.provider != nil {
		return nil
	}
	e := domain.NewError(domain.KindNotConfigured, op, "no generation provider is configured")
	e.Err = domain.ErrLLMUnavailable
	return e
}

// Summarize asks the provider for a summary, canonicalizes its entities,
// writes the summary document and records it in the index.
func (s *GenerationService) Summarize(
	ctx context.Context, spaceID string, req driving.SummarizeRequest,
) (*driving.CreatedArtifact, error) {
	logger.Section("Summarize")
	if err := s.requireProvider("generation.summarize"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, domain.InvalidRequest("generation.summarize", "text is required", []string{"text"})
	}
	contentDate, err := optionalDay("contentDateISO", req.ContentDateISO)
	if err != nil {
		return nil, err
	}

	out, err := resilience.Call(ctx, s.policy, "provider.summarize",
		func(ctx context.Context) (*driven.SummarizeOutput, error) {
			return s.provider.Summarize(ctx, driven.SummarizeInput{
				Title:          req.Title,
				Text:           req.Text,
				ContentDateISO: contentDate,
			})
		})
	if err != nil {
		return nil, err
	}

	table, err := s.aliases.Load(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	now := domain.FormatTime(s.now())
	a := &domain.Artifact{
		ID:             s.newID(),
		Kind:           domain.KindSummary,
		Title:          firstNonEmpty(req.Title, out.Title, "Untitled"),
		ContentDateISO: firstNonEmpty(contentDate, dayOrEmpty(out.ContentDateISO)),
		CreatedAtISO:   now,
		UpdatedAtISO:   now,
		Tags:           req.Tags,
		Topics:         out.Topics,
		Participants:   req.Participants,
		Entities:       Canonicalize(out.Entities, table),
		Decisions:      out.Decisions,
		OpenLoops:      out.OpenLoops,
		Risks:          out.Risks,
		Summary: &domain.SummaryBody{
			Summary:    out.Summary,
			Highlights: out.Highlights,
			SourceRef:  req.SourceRef,
		},
	}
	normalizeItems(a)

	return s.persist(ctx, spaceID, a)
}

// Synthesize reads the selected artifacts, asks the provider for a
// synthesis across them, keeps only citations to those artifacts, writes
// the synthesis document and records it in the index.
func (s *GenerationService) Synthesize(
	ctx context.Context, spaceID string, req driving.SynthesizeRequest,
) (*driving.CreatedArtifact, error) {
	logger.Section("Synthesize")
	if err := s.requireProvider("generation.synthesize"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, domain.InvalidRequest("generation.synthesize", "instruction is required", []string{"instruction"})
	}
	if len(req.ArtifactIDs) == 0 {
		return nil, domain.InvalidRequest("generation.synthesize", "at least one artifact id is required", []string{"artifactIds"})
	}

	sources, err := s.selectArtifacts(ctx, spaceID, "generation.synthesize", req.ArtifactIDs)
	if err != nil {
		return nil, err
	}
	supplied := artifactIDs(sources)

	out, err := resilience.Call(ctx, s.policy, "provider.synthesize",
		func(ctx context.Context) (*driven.SynthesizeOutput, error) {
			return s.provider.Synthesize(ctx, driven.SynthesizeInput{
				Instruction: req.Instruction,
				Context:     toContext(sources),
			})
		})
	if err != nil {
		return nil, err
	}
	citations := NormalizeCitations(out.Citations, supplied, s.limits)
	logger.Debug("Synthesis citations: %s", logger.KV("asserted", len(out.Citations), "kept", len(citations)))

	table, err := s.aliases.Load(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	entities := out.Entities
	if len(entities) == 0 {
		for _, src := range sources {
			entities = append(entities, src.Entities...)
		}
	}

	now := domain.FormatTime(s.now())
	a := &domain.Artifact{
		ID:             s.newID(),
		Kind:           domain.KindSynthesis,
		Title:          firstNonEmpty(req.Title, out.Title, "Synthesis: "+clampRunes(req.Instruction, 60)),
		ContentDateISO: latestContentDate(sources),
		CreatedAtISO:   now,
		UpdatedAtISO:   now,
		Tags:           req.Tags,
		Participants:   unionParticipants(sources),
		Entities:       Canonicalize(entities, table),
		Decisions:      out.Decisions,
		OpenLoops:      out.OpenLoops,
		Risks:          out.Risks,
		Synthesis: &domain.SynthesisBody{
			Synthesis:         out.Synthesis,
			Instruction:       req.Instruction,
			SourceArtifactIDs: supplied,
			Citations:         citations,
		},
	}
	normalizeItems(a)

	return s.persist(ctx, spaceID, a)
}

// Chat answers a question over explicitly selected artifacts or, when none
// are named, over the results of a structured query. Nothing is persisted.
func (s *GenerationService) Chat(ctx context.Context, spaceID string, req driving.ChatRequest) (*driving.ChatAnswer, error) {
	logger.Section("Chat")
	if err := s.requireProvider("generation.chat"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, domain.InvalidRequest("generation.chat", "question is required", []string{"question"})
	}

	var sources []*domain.Artifact
	var err error
	if len(req.ArtifactIDs) > 0 {
		sources, err = s.selectArtifacts(ctx, spaceID, "generation.chat", req.ArtifactIDs)
	} else {
		sources, err = s.queryArtifacts(ctx, spaceID, req.Filter)
	}
	if err != nil {
		return nil, err
	}
	supplied := artifactIDs(sources)
	logger.Debug("Chat context: %d artifacts", len(supplied))

	out, err := resilience.Call(ctx, s.policy, "provider.chat",
		func(ctx context.Context) (*driven.ChatOutput, error) {
			return s.provider.Chat(ctx, driven.ChatInput{
				Question: req.Question,
				History:  req.History,
				Context:  toContext(sources),
			})
		})
	if err != nil {
		return nil, err
	}

	citations := NormalizeCitations(out.Citations, supplied, s.limits)
	claimed := out.UsedArtifactIDs
	if len(claimed) == 0 {
		for _, c := range citations {
			claimed = append(claimed, c.ArtifactID)
		}
	}
	return &driving.ChatAnswer{
		Answer:          out.Answer,
		Citations:       citations,
		UsedArtifactIDs: intersectIDs(claimed, supplied),
	}, nil
}

// BackfillContentDate sets an artifact's content date and refreshes its
// index entry.
func (s *GenerationService) BackfillContentDate(
	ctx context.Context, spaceID, artifactID, dateISO string,
) (*driving.CreatedArtifact, error) {
	day, ok := domain.DayOf(dateISO)
	if !ok {
		return nil, domain.InvalidRequest("generation.backfill", "date must be YYYY-MM-DD or RFC3339", []string{"date"})
	}

	loaded, err := s.index.Load(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	entry, found := loaded.Index.Lookup(artifactID)
	if !found {
		return nil, unknownIDs("generation.backfill", []string{artifactID})
	}

	a, err := s.readArtifact(ctx, spaceID, entry.DocumentID)
	if err != nil {
		return nil, err
	}
	a.ContentDateISO = day
	a.UpdatedAtISO = domain.FormatTime(s.now())

	body, err := domain.EncodeArtifact(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	if _, err := s.store.Update(ctx, entry.DocumentID, body); err != nil {
		return nil, fmt.Errorf("update artifact %s: %w", a.ID, err)
	}
	if err := s.index.Record(ctx, spaceID, a.IndexEntry(entry.DocumentID)); err != nil {
		return nil, err
	}
	logger.Info("Backfilled content date of %s to %s", a.ID, day)
	return &driving.CreatedArtifact{Artifact: a, DocumentID: entry.DocumentID}, nil
}

// persist writes a new artifact document and upserts its index entry in
// the same operation, so the artifact is queryable before any listing
// would show it.
func (s *GenerationService) persist(ctx context.Context, spaceID string, a *domain.Artifact) (*driving.CreatedArtifact, error) {
	body, err := domain.EncodeArtifact(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	docID, err := s.store.Create(ctx, artifactDocumentName(a), spaceID, driven.MimeJSON, body)
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := s.index.Record(ctx, spaceID, a.IndexEntry(docID)); err != nil {
		return nil, err
	}
	logger.Info("Created %s %s (%s)", a.Kind, a.ID, a.Title)
	return &driving.CreatedArtifact{Artifact: a, DocumentID: docID}, nil
}

// selectArtifacts resolves explicitly named artifact ids through the index
// and reads each one. Any id the index does not know, or whose document
// cannot be read from the space, fails the whole request.
func (s *GenerationService) selectArtifacts(
	ctx context.Context, spaceID, op string, ids []string,
) ([]*domain.Artifact, error) {
	loaded, err := s.index.Load(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	var unknown []string
	var entries []domain.ArtifactIndexEntry
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		entry, ok := loaded.Index.Lookup(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		entries = append(entries, entry)
	}
	if len(unknown) > 0 {
		return nil, unknownIDs(op, unknown)
	}

	out := make([]*domain.Artifact, 0, len(entries))
	for _, entry := range entries {
		a, err := s.readArtifact(ctx, spaceID, entry.DocumentID)
		if err != nil {
			if isSkippable(err) {
				unknown = append(unknown, entry.ID)
				continue
			}
			return nil, err
		}
		a.ID = entry.ID
		out = append(out, a)
	}
	if len(unknown) > 0 {
		return nil, unknownIDs(op, unknown)
	}
	return out, nil
}

// queryArtifacts selects chat context with the query engine.
func (s *GenerationService) queryArtifacts(
	ctx context.Context, spaceID string, filter *domain.QueryRequest,
) ([]*domain.Artifact, error) {
	var req domain.QueryRequest
	if filter != nil {
		req = *filter
	}
	resp, err := s.query.Query(ctx, spaceID, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		ids = append(ids, r.ArtifactID)
	}
	return s.selectArtifacts(ctx, spaceID, "generation.chat", ids)
}

func (s *GenerationService) readArtifact(ctx context.Context, spaceID, documentID string) (*domain.Artifact, error) {
	body, _, err := readInSpace(ctx, s.store, spaceID, documentID)
	if err != nil {
		return nil, err
	}
	return domain.DecodeArtifact(body)
}

func unknownIDs(op string, ids []string) *domain.Error {
	return domain.InvalidRequest(op, "unknown artifact ids: "+strings.Join(ids, ", "), ids).
		WithDetail("unknownIds", ids)
}

func artifactIDs(arts []*domain.Artifact) []string {
	ids := make([]string, 0, len(arts))
	for _, a := range arts {
		ids = append(ids, a.ID)
	}
	return ids
}

// toContext renders artifacts as provider context.
func toContext(arts []*domain.Artifact) []driven.ContextArtifact {
	out := make([]driven.ContextArtifact, 0, len(arts))
	for _, a := range arts {
		out = append(out, driven.ContextArtifact{
			ID:             a.ID,
			Kind:           a.Kind,
			Title:          a.Title,
			ContentDateISO: a.ContentDateISO,
			Text:           contextText(a),
		})
	}
	return out
}

func contextText(a *domain.Artifact) string {
	var b strings.Builder
	b.WriteString(a.Body())
	if a.Summary != nil {
		for _, h := range a.Summary.Highlights {
			b.WriteString("\n- " + h)
		}
	}
	for _, d := range a.Decisions {
		fmt.Fprintf(&b, "\nDecision: %s", d.Text)
		if d.DateISO != "" {
			fmt.Fprintf(&b, " (%s)", d.DateISO)
		}
	}
	for _, l := range a.OpenLoops {
		fmt.Fprintf(&b, "\nOpen loop [%s]: %s", l.Status, l.Text)
		if l.Owner != "" {
			fmt.Fprintf(&b, " (owner %s)", l.Owner)
		}
	}
	for _, r := range a.Risks {
		fmt.Fprintf(&b, "\nRisk [%s]: %s", r.Severity, r.Text)
	}
	return b.String()
}

// normalizeItems applies the same item normalization as the decode boundary
// to provider output before it is written.
func normalizeItems(a *domain.Artifact) {
	for i := range a.OpenLoops {
		st := domain.LoopStatus(strings.ToLower(strings.TrimSpace(string(a.OpenLoops[i].Status))))
		if !st.IsValid() {
			st = domain.LoopOpen
		}
		a.OpenLoops[i].Status = st
		a.OpenLoops[i].DueDateISO = dayOrEmpty(a.OpenLoops[i].DueDateISO)
	}
	for i := range a.Risks {
		sev := domain.Severity(strings.ToLower(strings.TrimSpace(string(a.Risks[i].Severity))))
		if !sev.IsValid() {
			sev = domain.SeverityMedium
		}
		a.Risks[i].Severity = sev
	}
	for i := range a.Decisions {
		a.Decisions[i].DateISO = dayOrEmpty(a.Decisions[i].DateISO)
	}
}

func latestContentDate(arts []*domain.Artifact) string {
	latest := ""
	for _, a := range arts {
		if d := dayOrEmpty(a.ContentDateISO); d > latest {
			latest = d
		}
	}
	return latest
}

func unionParticipants(arts []*domain.Artifact) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range arts {
		for _, p := range a.Participants {
			k := strings.ToLower(strings.TrimSpace(p))
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, p)
		}
	}
	return out
}

func optionalDay(field, iso string) (string, error) {
	if strings.TrimSpace(iso) == "" {
		return "", nil
	}
	day, ok := domain.DayOf(iso)
	if !ok {
		return "", domain.InvalidRequest("generation.validate", field+" must be YYYY-MM-DD or RFC3339", []string{field})
	}
	return day, nil
}

func dayOrEmpty(iso string) string {
	day, _ := domain.DayOf(iso)
	return day
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
