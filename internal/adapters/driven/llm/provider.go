// Package llm turns a raw text generator into a generation provider:
// it renders prompts, asks for JSON and validates every response against
// an embedded JSON schema before decoding it.
package llm

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.GenerationProvider = (*Provider)(nil)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemaBase anchors the embedded schemas so relative $refs resolve
// without touching the network or the filesystem.
const schemaBase = "https://schemas.distill.local/"

// Schema names, one per provider operation.
const (
	schemaSummary   = "summary.json"
	schemaSynthesis = "synthesis.json"
	schemaChat      = "chat.json"
)

// Provider implements driven.GenerationProvider over a TextGenerator.
type Provider struct {
	gen     driven.TextGenerator
	prompts driven.PromptStore
	schemas map[string]*jsonschema.Schema
	opts    driven.GenerateOptions
}

// NewProvider compiles the embedded schemas and returns a provider.
func NewProvider(gen driven.TextGenerator, prompts driven.PromptStore) (*Provider, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Provider{
		gen:     gen,
		prompts: prompts,
		schemas: schemas,
		opts:    driven.GenerateOptions{JSON: true, Temperature: 0.2},
	}, nil
}

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", e.Name(), err)
		}
		if err := c.AddResource(schemaBase+e.Name(), doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", e.Name(), err)
		}
	}

	out := make(map[string]*jsonschema.Schema, 3)
	for _, name := range []string{schemaSummary, schemaSynthesis, schemaChat} {
		sch, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = sch
	}
	return out, nil
}

// ModelName returns the underlying model name.
func (p *Provider) ModelName() string {
	return p.gen.ModelName()
}

// Summarize produces a structured summary of one source text.
func (p *Provider) Summarize(ctx context.Context, in driven.SummarizeInput) (*driven.SummarizeOutput, error) {
	var b strings.Builder
	if in.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", in.Title)
	}
	if in.ContentDateISO != "" {
		fmt.Fprintf(&b, "Content date: %s\n", in.ContentDateISO)
	}
	b.WriteString("\nSource:\n")
	b.WriteString(in.Text)

	var out driven.SummarizeOutput
	if err := p.generate(ctx, "provider.summarize", driven.PromptSummarize, schemaSummary, b.String(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Synthesize produces a cross-artifact synthesis with citations.
func (p *Provider) Synthesize(ctx context.Context, in driven.SynthesizeInput) (*driven.SynthesizeOutput, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Instruction: %s\n\n", in.Instruction)
	writeContext(&b, in.Context)

	var out driven.SynthesizeOutput
	if err := p.generate(ctx, "provider.synthesize", driven.PromptSynthesize, schemaSynthesis, b.String(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat answers a question over the supplied context with citations.
func (p *Provider) Chat(ctx context.Context, in driven.ChatInput) (*driven.ChatOutput, error) {
	var b strings.Builder
	writeContext(&b, in.Context)
	if len(in.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range in.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\n", in.Question)

	var out driven.ChatOutput
	if err := p.generate(ctx, "provider.chat", driven.PromptChat, schemaChat, b.String(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// generate runs one prompt and decodes the validated JSON into dst.
// Transport failures are returned as-is for the caller's retry policy;
// anything wrong with the response body is a terminal bad_output error.
func (p *Provider) generate(ctx context.Context, op, promptName, schemaName, payload string, dst any) error {
	system, err := p.prompts.Load(promptName)
	if err != nil {
		return fmt.Errorf("%s: load prompt: %w", op, err)
	}

	raw, err := p.gen.Generate(ctx, system, payload, p.opts)
	if err != nil {
		return err
	}
	logger.Debug("%s: %d bytes from %s", op, len(raw), p.gen.ModelName())

	body := extractJSON(raw)
	if body == "" {
		return badOutput(op, "response contains no JSON object", nil)
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(body))
	if err != nil {
		return badOutput(op, "response is not valid JSON", err)
	}
	if err := p.schemas[schemaName].Validate(inst); err != nil {
		return badOutput(op, "response does not match the expected shape", err)
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return badOutput(op, "response could not be decoded", err)
	}
	return nil
}

func badOutput(op, reason string, err error) error {
	e := domain.NewError(domain.KindBadOutput, op, reason)
	e.Err = &domain.ParseError{DocType: "provider output", Reason: reason, Err: err}
	return e
}

// extractJSON returns the outermost JSON object in a model response,
// tolerating code fences and prose around it.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func writeContext(b *strings.Builder, arts []driven.ContextArtifact) {
	b.WriteString("Context artifacts:\n\n")
	for _, a := range arts {
		fmt.Fprintf(b, "[artifact id=%q kind=%s", a.ID, a.Kind)
		if a.Title != "" {
			fmt.Fprintf(b, " title=%q", a.Title)
		}
		if a.ContentDateISO != "" {
			fmt.Fprintf(b, " date=%s", a.ContentDateISO)
		}
		b.WriteString("]\n")
		b.WriteString(a.Text)
		b.WriteString("\n\n")
	}
}
