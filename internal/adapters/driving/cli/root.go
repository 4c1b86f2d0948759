// Package cli implements the distill command line on top of cobra.
package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	spaceFlag string
)

// Services wired by main. Commands fail with "... service not configured"
// when theirs is nil.
var (
	queryService      driving.QueryService
	indexService      driving.IndexService
	aliasService      driving.AliasService
	generationService driving.GenerationService
	settingsService   driving.SettingsService
	rateLimiter       *resilience.RateLimiter
	configWatcher     driven.ConfigWatcher
)

// Services groups the ports the commands drive.
type Services struct {
	Query      driving.QueryService
	Index      driving.IndexService
	Aliases    driving.AliasService
	Generation driving.GenerationService
	Settings   driving.SettingsService

	// Limiter guards the MCP tools. Optional.
	Limiter *resilience.RateLimiter

	// Watcher reports config file edits to a running MCP server. Optional.
	Watcher driven.ConfigWatcher
}

// SetServices installs the services used by every command.
func SetServices(s Services) {
	queryService = s.Query
	indexService = s.Index
	aliasService = s.Aliases
	generationService = s.Generation
	settingsService = s.Settings
	rateLimiter = s.Limiter
	configWatcher = s.Watcher
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Summaries, syntheses and structured queries over your conversations",
	Long: `distill turns call notes and email threads into structured summary
artifacts, synthesises across them and answers structured queries about
open loops, risks and decisions. Artifacts live in a per-space folder of
an object store (local SQLite, memory or Google Drive).`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&spaceFlag, "space", "", "space id (defaults to the configured space)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// resolveSpace returns the --space flag or the configured space.
func resolveSpace() (string, error) {
	if s := strings.TrimSpace(spaceFlag); s != "" {
		return s, nil
	}
	if settingsService == nil {
		return "", errors.New("no space given: pass --space or configure a settings service")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return "", err
	}
	return spaceFrom(settings)
}

// spaceFrom returns the --space flag or the space in settings.
func spaceFrom(settings *domain.Settings) (string, error) {
	if s := strings.TrimSpace(spaceFlag); s != "" {
		return s, nil
	}
	if settings == nil || settings.SpaceID == "" {
		return "", errors.New("no space configured: run 'distill settings space <id>'")
	}
	return settings.SpaceID, nil
}
