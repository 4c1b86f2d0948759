package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/distill/internal/adapters/driving/mcp"
	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query and
chat over the artifacts of the active space.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead, for MCP Inspector or remote access.

Edits to the config file (active space, rate limit) are picked up without
a restart.

Examples:
  # Stdio mode (default)
  distill mcp serve

  # HTTP mode
  distill mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "distill": {
        "command": "/path/to/distill",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if queryService == nil {
		return errors.New("query service not configured")
	}

	cfg, err := mcpConfig()
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Query:      queryService,
		Generation: generationService,
		Index:      indexService,
		Aliases:    aliasService,
		Limiter:    rateLimiter,
	}

	server, err := mcp.NewServer(ports, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	watchConfig(ctx, server)

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}

// mcpConfig derives the server config from one read of the settings.
// --space wins over the configured space.
func mcpConfig() (mcp.Config, error) {
	if settingsService == nil {
		space, err := resolveSpace()
		if err != nil {
			return mcp.Config{}, err
		}
		return mcp.Config{SpaceID: space}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return mcp.Config{}, fmt.Errorf("failed to get settings: %w", err)
	}
	space, err := spaceFrom(settings)
	if err != nil {
		return mcp.Config{}, err
	}
	return mcp.Config{
		SpaceID: space,
		Limit:   resilience.Limit{Limit: settings.RateLimit.Limit, Window: settings.RateLimit.Window},
	}, nil
}

// watchConfig reconfigures server whenever the config file changes.
func watchConfig(ctx context.Context, server *mcp.Server) {
	if configWatcher == nil {
		return
	}
	err := configWatcher.Watch(ctx, func() {
		cfg, err := mcpConfig()
		if err != nil {
			logger.Warn("mcp: ignoring config change: %v", err)
			return
		}
		server.Reconfigure(cfg)
	})
	if err != nil {
		logger.Warn("mcp: config changes will not be picked up: %v", err)
	}
}
