package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/immich-mcp/pkg/auth"
	"github.com/yourusername/immich-mcp/pkg/cache"
	"github.com/yourusername/immich-mcp/pkg/config"
	"github.com/yourusername/immich-mcp/pkg/immich"
	"github.com/yourusername/immich-mcp/pkg/tools"
	"golang.org/x/time/rate"
)

const (
	serverName    = "immich-mcp"
	serverVersion = "1.0.0"
)

// Server represents the MCP Immich server
type Server struct {
	config         *config.Config
	mcpServer      *server.MCPServer
	streamableHTTP *server.StreamableHTTPServer
	immich         *immich.Client
	cache          *cache.Cache
	adapters       []tools.Adapter
	rateLimiter    *rate.Limiter
	authProvider   auth.Provider
}

// New creates a new MCP Immich server
func New(cfg *config.Config) (*Server, error) {
	// Create cache
	cacheStore := cache.New(cfg.CacheTTL())

	// Create Immich client
	immichClient := immich.NewClient(
		cfg.ImmichURL,
		cfg.ImmichAPIKey,
		cfg.ImmichTimeout,
		cacheStore,
		immich.WithDeviceID(cfg.DeviceID),
	)

	// Create rate limiter
	rateLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)

	// Create auth provider
	authProvider, err := auth.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	// Register all tools
	adapters := tools.NewAdapters(immichClient)
	tools.RegisterTools(mcpServer, adapters...)

	s := &Server{
		config:         cfg,
		mcpServer:      mcpServer,
		streamableHTTP: server.NewStreamableHTTPServer(mcpServer),
		immich:         immichClient,
		cache:          cacheStore,
		adapters:       adapters,
		rateLimiter:    rateLimiter,
		authProvider:   authProvider,
	}

	return s, nil
}

// Adapters returns the tool adapters registered with the MCP server.
func (s *Server) Adapters() []tools.Adapter {
	return s.adapters
}

// Start serves MCP on the configured transport until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	switch s.config.Transport {
	case config.TransportStdio:
		return s.startStdio(ctx, os.Stdin, os.Stdout)
	case config.TransportHTTP, "":
		return s.startHTTP(ctx)
	default:
		return fmt.Errorf("unsupported transport: %s", s.config.Transport)
	}
}

// startStdio serves a single MCP session over the given streams.
func (s *Server) startStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(stdlog.New(log.Logger, "", 0))

	log.Info().Msg("Serving MCP over stdio")

	err := stdio.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Handler returns the HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// MCP StreamableHTTP endpoint
	mux.Handle("/mcp", s.streamableHTTP)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Ready check
	mux.HandleFunc("/ready", s.handleReady)

	// Apply middleware
	return s.loggingMiddleware(
		s.rateLimitMiddleware(
			s.authMiddleware(mux),
		),
	)
}

// startHTTP starts the server with StreamableHTTP transport
func (s *Server) startHTTP(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      s.config.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	log.Info().Str("addr", s.config.ListenAddr).Msg("Starting StreamableHTTP server")

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"cacheEntries": s.cache.Len(),
	})
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check Immich connectivity
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.immich.ValidateConnection(ctx); err != nil {
		log.Warn().Err(err).Msg("Immich not reachable")
		writeStatus(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"reason": "immich_unavailable",
			"error":  immich.ErrorMessage(err),
		})
		return
	}

	writeStatus(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}
