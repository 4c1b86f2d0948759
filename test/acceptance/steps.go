package acceptance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/distill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/core/services"
)

// scriptedProvider turns "key: value" lines of the source text into
// summary output, so feature files control what each summary contains.
//
//	entity: Acme Inc
//	loop: send revised quote
//	risk: high: budget freeze
//	decision: keep current tier
type scriptedProvider struct{}

func (scriptedProvider) Summarize(_ context.Context, in driven.SummarizeInput) (*driven.SummarizeOutput, error) {
	out := &driven.SummarizeOutput{Summary: "Scripted summary."}
	for _, line := range strings.Split(in.Text, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(key) {
		case "entity":
			out.Entities = append(out.Entities, domain.Entity{Name: value, Type: "org"})
		case "loop":
			out.OpenLoops = append(out.OpenLoops, domain.OpenLoop{Text: value, Status: domain.LoopOpen})
		case "risk":
			sev, text, _ := strings.Cut(value, ":")
			out.Risks = append(out.Risks, domain.Risk{
				Text:     strings.TrimSpace(text),
				Severity: domain.Severity(strings.TrimSpace(sev)),
			})
		case "decision":
			out.Decisions = append(out.Decisions, domain.Decision{Text: value})
		}
	}
	return out, nil
}

func (scriptedProvider) Synthesize(context.Context, driven.SynthesizeInput) (*driven.SynthesizeOutput, error) {
	return nil, errors.New("synthesis is not scripted")
}

func (scriptedProvider) Chat(context.Context, driven.ChatInput) (*driven.ChatOutput, error) {
	return nil, errors.New("chat is not scripted")
}

func (scriptedProvider) ModelName() string { return "scripted" }

// TestContext holds state between steps.
type TestContext struct {
	ctx   context.Context
	space string
	store *memory.ObjectStore

	index      *services.IndexService
	aliases    *services.AliasService
	query      *services.QueryService
	generation *services.GenerationService

	lastResponse *domain.QueryResponse
	lastErr      error
}

func newTestContext() *TestContext {
	return &TestContext{ctx: context.Background()}
}

func (tc *TestContext) emptySpace(space string) error {
	tc.space = space
	tc.store = memory.NewObjectStore()
	tc.index = services.NewIndexService(tc.store)
	tc.aliases = services.NewAliasService(tc.store)
	tc.query = services.NewQueryService(tc.store, tc.index, tc.aliases)
	tc.generation = services.NewGenerationService(tc.store, tc.index, tc.aliases, tc.query, scriptedProvider{})
	tc.lastResponse, tc.lastErr = nil, nil
	return nil
}

func (tc *TestContext) addAlias(alias, canonical string) error {
	res, err := tc.aliases.Add(tc.ctx, tc.space, []domain.AliasRow{{Alias: alias, Canonical: canonical}})
	if err != nil {
		return err
	}
	if len(res.Added) != 1 {
		return fmt.Errorf("alias %q was rejected", alias)
	}
	return nil
}

func (tc *TestContext) summarize(title, date string, body *godog.DocString) error {
	_, err := tc.generation.Summarize(tc.ctx, tc.space, driving.SummarizeRequest{
		Title:          title,
		Text:           body.Content,
		ContentDateISO: date,
	})
	return err
}

func (tc *TestContext) loseIndex() error {
	id, ok, err := tc.index.Find(tc.ctx, tc.space)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("space has no index")
	}
	return tc.store.Trash(id)
}

func (tc *TestContext) run(req domain.QueryRequest) error {
	tc.lastResponse, tc.lastErr = tc.query.Query(tc.ctx, tc.space, req)
	return nil
}

func (tc *TestContext) queryEntity(entity string) error {
	return tc.run(domain.QueryRequest{Entity: entity})
}

func (tc *TestContext) queryWithOpenLoops() error {
	yes := true
	return tc.run(domain.QueryRequest{HasOpenLoops: &yes})
}

func (tc *TestContext) queryWithoutRisks() error {
	no := false
	return tc.run(domain.QueryRequest{HasRisks: &no})
}

func (tc *TestContext) querySeverity(severity string) error {
	return tc.run(domain.QueryRequest{RiskSeverity: domain.Severity(severity)})
}

func (tc *TestContext) queryEntitySeverityKind(entity, severity, kind string) error {
	return tc.run(domain.QueryRequest{
		Entity:       entity,
		RiskSeverity: domain.Severity(severity),
		Kind:         []domain.ArtifactKind{domain.ArtifactKind(kind)},
	})
}

func (tc *TestContext) queryRange(from, to string) error {
	return tc.run(domain.QueryRequest{DateRange: &domain.DateRange{From: from, To: to}})
}

func (tc *TestContext) queryAll() error {
	return tc.run(domain.QueryRequest{})
}

func (tc *TestContext) response() (*domain.QueryResponse, error) {
	if tc.lastErr != nil {
		return nil, fmt.Errorf("query failed: %w", tc.lastErr)
	}
	if tc.lastResponse == nil {
		return nil, errors.New("no query has been run")
	}
	return tc.lastResponse, nil
}

func (tc *TestContext) artifactsMatched(n int) error {
	resp, err := tc.response()
	if err != nil {
		return err
	}
	if resp.Totals.ArtifactsMatched != n || len(resp.Results) != n {
		return fmt.Errorf("expected %d artifacts, got %d (%d results)",
			n, resp.Totals.ArtifactsMatched, len(resp.Results))
	}
	return nil
}

func (tc *TestContext) openLoopsMatched(n int) error {
	resp, err := tc.response()
	if err != nil {
		return err
	}
	if resp.Totals.OpenLoopsMatched != n {
		return fmt.Errorf("expected %d open loops, got %d", n, resp.Totals.OpenLoopsMatched)
	}
	return nil
}

func (tc *TestContext) risksMatched(n int) error {
	resp, err := tc.response()
	if err != nil {
		return err
	}
	if resp.Totals.RisksMatched != n {
		return fmt.Errorf("expected %d risks, got %d", n, resp.Totals.RisksMatched)
	}
	return nil
}

func (tc *TestContext) firstResult(title string) error {
	resp, err := tc.response()
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		return errors.New("no results")
	}
	if got := resp.Results[0].Title; got != title {
		return fmt.Errorf("expected first result %q, got %q", title, got)
	}
	return nil
}

func (tc *TestContext) echoedEntity(entity string) error {
	resp, err := tc.response()
	if err != nil {
		return err
	}
	if resp.Query.Entity != entity {
		return fmt.Errorf("expected echoed entity %q, got %q", entity, resp.Query.Entity)
	}
	return nil
}

func (tc *TestContext) rejectedInvalid() error {
	if tc.lastErr == nil {
		return errors.New("expected the query to fail")
	}
	if !domain.IsKind(tc.lastErr, domain.KindInvalidRequest) {
		return fmt.Errorf("expected an invalid request, got %v", tc.lastErr)
	}
	return nil
}
