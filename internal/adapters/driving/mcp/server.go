package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Config is the part of the server's behaviour that can change while it runs.
type Config struct {
	// SpaceID is the space every tool operates on.
	SpaceID string

	// Limit is the per-tool sliding-window budget.
	Limit resilience.Limit
}

// Server is the MCP server for Distill.
type Server struct {
	ports  *Ports
	server *mcp.Server

	mu  sync.RWMutex
	cfg Config
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "distill",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, nil),
		cfg:    cfg,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Reconfigure swaps the space and rate limit used by subsequent calls.
func (s *Server) Reconfigure(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	logger.Info("mcp: space=%s limit=%d/%s", cfg.SpaceID, cfg.Limit.Limit, cfg.Limit.Window)
}

func (s *Server) config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Run starts the MCP server over stdio.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server over HTTP on the specified address.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
