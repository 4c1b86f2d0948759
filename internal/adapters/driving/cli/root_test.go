package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/distill/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/services"
	"github.com/custodia-labs/distill/internal/resilience"
)

const testSpace = "space-test"

// stubProvider returns canned generation output.
type stubProvider struct {
	summarizeErr error
}

func (p *stubProvider) Summarize(_ context.Context, in driven.SummarizeInput) (*driven.SummarizeOutput, error) {
	if p.summarizeErr != nil {
		return nil, p.summarizeErr
	}
	return &driven.SummarizeOutput{
		Summary:    "Acme agreed to renew. " + firstLine(in.Text),
		Highlights: []string{"renewal agreed"},
		Entities:   []domain.Entity{{Name: "Acme Inc.", Type: "org"}},
		OpenLoops:  []domain.OpenLoop{{Text: "send revised quote", Owner: "alice", Status: domain.LoopOpen}},
		Risks:      []domain.Risk{{Text: "budget freeze", Severity: domain.SeverityHigh}},
		Decisions:  []domain.Decision{{Text: "keep current tier", DateISO: "2024-05-01"}},
	}, nil
}

func (p *stubProvider) Synthesize(_ context.Context, in driven.SynthesizeInput) (*driven.SynthesizeOutput, error) {
	out := &driven.SynthesizeOutput{Synthesis: "Pricing was discussed in every call."}
	for _, a := range in.Context {
		out.Citations = append(out.Citations, domain.Citation{ArtifactID: a.ID, Excerpt: "pricing"})
	}
	return out, nil
}

func (p *stubProvider) Chat(_ context.Context, in driven.ChatInput) (*driven.ChatOutput, error) {
	out := &driven.ChatOutput{Answer: "They agreed to renew."}
	for _, a := range in.Context {
		out.Citations = append(out.Citations, domain.Citation{ArtifactID: a.ID, Excerpt: "renew"})
	}
	// A citation outside the supplied context is always dropped.
	out.Citations = append(out.Citations, domain.Citation{ArtifactID: "not-supplied", Excerpt: "x"})
	return out, nil
}

func (p *stubProvider) ModelName() string { return "stub" }

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// stubSettings is an in-memory driving.SettingsService.
type stubSettings struct {
	settings    domain.Settings
	validateErr error
	gets        int

	llmProvider domain.AIProvider
	llmModel    string
	llmKey      string
}

func newStubSettings() *stubSettings {
	s := domain.DefaultSettings()
	s.SpaceID = testSpace
	s.Store.Backend = domain.StoreMemory
	return &stubSettings{settings: s}
}

func (s *stubSettings) Get() (*domain.Settings, error) {
	s.gets++
	out := s.settings
	return &out, nil
}

func (s *stubSettings) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if apiKey == "" {
		return errors.New("API key required")
	}
	s.llmProvider, s.llmModel, s.llmKey = provider, model, apiKey
	s.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (s *stubSettings) ValidateLLMConfig() error { return s.validateErr }

func (s *stubSettings) SetSpace(spaceID string) error {
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return domain.ErrInvalidInput
	}
	s.settings.SpaceID = spaceID
	return nil
}

// testEnv exposes the wired services to tests.
type testEnv struct {
	store    *memory.ObjectStore
	provider *stubProvider
	settings *stubSettings
	watcher  *memory.ConfigStore
}

// setupTestServices wires real services over an in-memory store and
// returns a cleanup function restoring the previous wiring.
func setupTestServices() func() {
	cleanup, _ := setupTestEnv()
	return cleanup
}

func setupTestEnv() (func(), *testEnv) {
	env := &testEnv{
		store:    memory.NewObjectStore(),
		provider: &stubProvider{},
		settings: newStubSettings(),
		watcher:  memory.NewConfigStore(),
	}
	index := services.NewIndexService(env.store)
	aliases := services.NewAliasService(env.store)
	query := services.NewQueryService(env.store, index, aliases)
	gen := services.NewGenerationService(env.store, index, aliases, query, env.provider)
	gen.SetProviderPolicy(resilience.Policy{Timeout: time.Second, MaxAttempts: 1})

	old := Services{
		Query:      queryService,
		Index:      indexService,
		Aliases:    aliasService,
		Generation: generationService,
		Settings:   settingsService,
		Limiter:    rateLimiter,
		Watcher:    configWatcher,
	}
	SetServices(Services{
		Query:      query,
		Index:      index,
		Aliases:    aliases,
		Generation: gen,
		Settings:   env.settings,
		Limiter:    resilience.NewRateLimiter(memory.NewCounterStore()),
		Watcher:    env.watcher,
	})

	return func() {
		SetServices(old)
		resetFlags(rootCmd)
		rootCmd.SetIn(nil)
	}, env
}

// clearServices unwires every service for "not configured" tests.
func clearServices() func() {
	old := Services{
		Query:      queryService,
		Index:      indexService,
		Aliases:    aliasService,
		Generation: generationService,
		Settings:   settingsService,
		Limiter:    rateLimiter,
		Watcher:    configWatcher,
	}
	SetServices(Services{})
	return func() {
		SetServices(old)
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag to its default; cobra keeps parsed values
// on package-level commands between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil) //nolint:errcheck // string slices accept nil
		} else {
			_ = f.Value.Set(f.DefValue) //nolint:errcheck // defaults always parse
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// summarizeFixture creates one summary artifact through the CLI and returns its id.
func summarizeFixture(t *testing.T, title, date string) string {
	t.Helper()
	rootCmd.SetIn(strings.NewReader("Call with Acme about the renewal.\nPricing held."))
	defer rootCmd.SetIn(nil)

	out, err := execute(t, "summarize", "--title", title, "--date", date, "--json")
	require.NoError(t, err)

	a, err := domain.DecodeArtifact([]byte(out))
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	return a.ID
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "distill", rootCmd.Use)
}

func TestRootCmd_HasPersistentFlags(t *testing.T) {
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("space"))
	assert.Equal(t, "v", rootCmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestResolveSpace_FlagWins(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	spaceFlag = "  other-space "
	defer func() { spaceFlag = "" }()

	space, err := resolveSpace()
	require.NoError(t, err)
	assert.Equal(t, "other-space", space)
}

func TestResolveSpace_FromSettings(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	space, err := resolveSpace()
	require.NoError(t, err)
	assert.Equal(t, testSpace, space)
}

func TestResolveSpace_NoSettings(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	_, err := resolveSpace()
	assert.Error(t, err)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
