package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/yourusername/immich-mcp/pkg/cache"
	"github.com/yourusername/immich-mcp/pkg/config"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

const defaultConfigFile = "config.yaml"

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "immich-mcp",
		Short:        "MCP server exposing an Immich photo library as tools",
		Version:      version + " (" + commit + ")",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (defaults to ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newUploadCmd(opts),
		newToolsCmd(),
		newConfigCmd(opts),
	)

	return rootCmd
}

// load reads configuration, applies flag overrides and configures logging.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.resolveConfigFile())
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	setupLogging(cfg)

	return cfg, nil
}

func (o *rootOptions) resolveConfigFile() string {
	if o.configFile != "" {
		return o.configFile
	}
	if _, err := os.Stat(defaultConfigFile); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return defaultConfigFile
	}
	return ""
}

// setupLogging points the global logger at stderr; stdout belongs to the stdio transport.
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func newClient(cfg *config.Config) *immich.Client {
	return immich.NewClient(
		cfg.ImmichURL,
		cfg.ImmichAPIKey,
		cfg.ImmichTimeout,
		cache.New(cfg.CacheTTL()),
		immich.WithDeviceID(cfg.DeviceID),
	)
}
