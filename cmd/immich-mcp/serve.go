package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yourusername/immich-mcp/pkg/config"
	mcpserver "github.com/yourusername/immich-mcp/pkg/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var forceStdio bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long:  "Run the MCP server over streamable HTTP, or over stdin/stdout with --stdio.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if forceStdio {
				cfg.Transport = config.TransportStdio
			}

			server, err := mcpserver.New(cfg)
			if err != nil {
				return err
			}

			log.Info().
				Str("version", version).
				Str("commit", commit).
				Str("built_at", date).
				Str("transport", cfg.Transport).
				Str("immich_url", cfg.ImmichURL).
				Dur("cache_ttl", cfg.CacheTTL()).
				Msg("Starting Immich MCP server")

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("server terminated with error")
				return err
			}

			log.Info().Msg("Server exited gracefully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&forceStdio, "stdio", false, "serve over stdin/stdout instead of HTTP")

	return cmd
}
