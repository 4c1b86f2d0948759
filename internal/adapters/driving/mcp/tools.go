package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
)

// Tool names. They double as rate-limit keys.
const (
	toolQuery = "query_artifacts"
	toolChat  = "chat_artifacts"
)

// DateRangeInput is an inclusive range of ISO dates.
type DateRangeInput struct {
	From string `json:"from,omitempty" jsonschema:"first day, YYYY-MM-DD or RFC3339"`
	To   string `json:"to,omitempty" jsonschema:"last day, YYYY-MM-DD or RFC3339"`
}

// QueryInput is the input schema for the query_artifacts tool.
type QueryInput struct {
	DateRange             *DateRangeInput `json:"dateRange,omitempty" jsonschema:"content date range of the artifact"`
	Kind                  []string        `json:"kind,omitempty" jsonschema:"artifact kinds to include: summary, synthesis"`
	Entity                string          `json:"entity,omitempty" jsonschema:"organisation or person name; aliases resolve to the canonical name"`
	Tags                  []string        `json:"tags,omitempty" jsonschema:"artifacts must carry any of these tags"`
	Participants          []string        `json:"participants,omitempty" jsonschema:"artifacts must list any of these participants"`
	HasOpenLoops          *bool           `json:"hasOpenLoops,omitempty" jsonschema:"require (true) or exclude (false) artifacts with open loops"`
	HasRisks              *bool           `json:"hasRisks,omitempty" jsonschema:"require (true) or exclude (false) artifacts with risks"`
	HasDecisions          *bool           `json:"hasDecisions,omitempty" jsonschema:"require (true) or exclude (false) artifacts with decisions"`
	OpenLoopStatus        string          `json:"openLoopStatus,omitempty" jsonschema:"open or closed"`
	OpenLoopDueRange      *DateRangeInput `json:"openLoopDueRange,omitempty" jsonschema:"due date range for open loops"`
	RiskSeverity          string          `json:"riskSeverity,omitempty" jsonschema:"low, medium or high"`
	DecisionDateRange     *DateRangeInput `json:"decisionDateRange,omitempty" jsonschema:"date range for decisions"`
	LimitArtifacts        int             `json:"limitArtifacts,omitempty" jsonschema:"maximum artifacts to return (default 10, max 50)"`
	LimitItemsPerArtifact int             `json:"limitItemsPerArtifact,omitempty" jsonschema:"maximum matched items per list (default 5, max 50)"`
}

// QueryOutput is the output schema for the query_artifacts tool.
type QueryOutput struct {
	Entity        string              `json:"entity,omitempty" jsonschema:"the entity filter after alias resolution"`
	Totals        domain.QueryTotals  `json:"totals"`
	Results       []QueryResultOutput `json:"results"`
	DocumentsRead int                 `json:"documentsRead"`
	Partial       bool                `json:"partial,omitempty"`
}

// QueryResultOutput is one matching artifact.
type QueryResultOutput struct {
	ArtifactID     string            `json:"artifactId"`
	Kind           string            `json:"kind"`
	Title          string            `json:"title"`
	ContentDateISO string            `json:"contentDateISO,omitempty"`
	Entities       []string          `json:"entities"`
	OpenLoops      []domain.OpenLoop `json:"openLoops"`
	Risks          []domain.Risk     `json:"risks"`
	Decisions      []domain.Decision `json:"decisions"`
}

// ChatTurnInput is one earlier exchange.
type ChatTurnInput struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content"`
}

// ChatInput is the input schema for the chat_artifacts tool.
type ChatInput struct {
	Question    string          `json:"question" jsonschema:"the question to answer (required)"`
	ArtifactIDs []string        `json:"artifactIds,omitempty" jsonschema:"artifacts to answer from; when empty the filter selects them"`
	Filter      *QueryInput     `json:"filter,omitempty" jsonschema:"query used to select context when artifactIds is empty"`
	History     []ChatTurnInput `json:"history,omitempty" jsonschema:"earlier turns of the conversation"`
}

// ChatOutput is the output schema for the chat_artifacts tool.
type ChatOutput struct {
	Answer          string           `json:"answer"`
	Citations       []CitationOutput `json:"citations"`
	UsedArtifactIDs []string         `json:"usedArtifactIds"`
}

// CitationOutput grounds part of an answer in one artifact.
type CitationOutput struct {
	ArtifactID string `json:"artifactId"`
	Excerpt    string `json:"excerpt"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolQuery,
		Description: "Filter summarised calls, emails and syntheses by date, entity, tags and their open loops, risks and decisions",
	}, s.handleQuery)

	if s.ports.Generation != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        toolChat,
			Description: "Answer a question from selected artifacts, with citations that only reference those artifacts",
		}, s.handleChat)
	}
}

// enforce applies the sliding-window limit for one tool.
func (s *Server) enforce(ctx context.Context, tool string, cfg Config) error {
	if s.ports.Limiter == nil {
		return nil
	}
	return s.ports.Limiter.Enforce(ctx, cfg.SpaceID+":"+tool, cfg.Limit)
}

// handleQuery handles the query_artifacts tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	cfg := s.config()
	output := QueryOutput{Results: []QueryResultOutput{}}

	if err := s.enforce(ctx, toolQuery, cfg); err != nil {
		return nil, output, newToolError(err, toolQuery)
	}

	resp, err := s.ports.Query.Query(ctx, cfg.SpaceID, input.toRequest())
	if err != nil {
		return nil, output, newToolError(err, toolQuery)
	}

	output.Entity = resp.Query.Entity
	output.Totals = resp.Totals
	output.DocumentsRead = resp.DocumentsRead
	output.Partial = resp.Partial
	for i := range resp.Results {
		output.Results = append(output.Results, toResultOutput(&resp.Results[i]))
	}
	return nil, output, nil
}

// handleChat handles the chat_artifacts tool invocation.
func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	cfg := s.config()
	output := ChatOutput{Citations: []CitationOutput{}, UsedArtifactIDs: []string{}}

	if err := s.enforce(ctx, toolChat, cfg); err != nil {
		return nil, output, newToolError(err, toolChat)
	}

	req := driving.ChatRequest{
		Question:    input.Question,
		ArtifactIDs: input.ArtifactIDs,
	}
	if input.Filter != nil {
		filter := input.Filter.toRequest()
		req.Filter = &filter
	}
	for _, turn := range input.History {
		req.History = append(req.History, driven.ChatTurn{Role: turn.Role, Content: turn.Content})
	}

	answer, err := s.ports.Generation.Chat(ctx, cfg.SpaceID, req)
	if err != nil {
		return nil, output, newToolError(err, toolChat)
	}

	output.Answer = answer.Answer
	for _, c := range answer.Citations {
		output.Citations = append(output.Citations, CitationOutput{ArtifactID: c.ArtifactID, Excerpt: c.Excerpt})
	}
	output.UsedArtifactIDs = append(output.UsedArtifactIDs, answer.UsedArtifactIDs...)
	return nil, output, nil
}

func (in *QueryInput) toRequest() domain.QueryRequest {
	req := domain.QueryRequest{
		DateRange:             in.DateRange.toRange(),
		Entity:                in.Entity,
		Tags:                  in.Tags,
		Participants:          in.Participants,
		HasOpenLoops:          in.HasOpenLoops,
		HasRisks:              in.HasRisks,
		HasDecisions:          in.HasDecisions,
		OpenLoopStatus:        domain.LoopStatus(in.OpenLoopStatus),
		OpenLoopDueRange:      in.OpenLoopDueRange.toRange(),
		RiskSeverity:          domain.Severity(in.RiskSeverity),
		DecisionDateRange:     in.DecisionDateRange.toRange(),
		LimitArtifacts:        in.LimitArtifacts,
		LimitItemsPerArtifact: in.LimitItemsPerArtifact,
	}
	for _, k := range in.Kind {
		req.Kind = append(req.Kind, domain.ArtifactKind(k))
	}
	return req
}

func (r *DateRangeInput) toRange() *domain.DateRange {
	if r == nil {
		return nil
	}
	return &domain.DateRange{From: r.From, To: r.To}
}

func toResultOutput(r *domain.QueryResult) QueryResultOutput {
	out := QueryResultOutput{
		ArtifactID:     r.ArtifactID,
		Kind:           string(r.Kind),
		Title:          r.Title,
		ContentDateISO: r.ContentDateISO,
		Entities:       make([]string, 0, len(r.Entities)),
		OpenLoops:      append([]domain.OpenLoop{}, r.Matches.OpenLoops...),
		Risks:          append([]domain.Risk{}, r.Matches.Risks...),
		Decisions:      append([]domain.Decision{}, r.Matches.Decisions...),
	}
	for _, e := range r.Entities {
		out.Entities = append(out.Entities, e.Name)
	}
	return out
}
