package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport modes
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Inbound auth modes
const (
	AuthModeNone   = "none"
	AuthModeAPIKey = "api_key"
)

// DefaultDeviceID identifies this adapter to Immich as the uploading device.
const DefaultDeviceID = "immich-mcp"

// Config holds all application configuration
type Config struct {
	// Server settings
	ListenAddr string `mapstructure:"listen_addr"`
	Transport  string `mapstructure:"transport"` // "http" or "stdio"

	// Immich connection
	ImmichURL    string `mapstructure:"immich_url"`
	ImmichAPIKey string `mapstructure:"immich_api_key"`
	DeviceID     string `mapstructure:"device_id"`

	// Authentication
	AuthMode string   `mapstructure:"auth_mode"` // "none" or "api_key"
	APIKeys  []string `mapstructure:"api_keys"`

	// Cache settings
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`

	// Rate limiting
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`

	// Timeouts
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ImmichTimeout  time.Duration `mapstructure:"immich_timeout"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// envAliases are the conventional variable names accepted alongside the MCP_ prefixed ones.
var envAliases = map[string][]string{
	"immich_url":     {"MCP_IMMICH_URL", "IMMICH_URL"},
	"immich_api_key": {"MCP_IMMICH_API_KEY", "IMMICH_API_KEY"},
}

// Load loads configuration from file and environment
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Read environment variables
	v.SetEnvPrefix("MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("transport", TransportHTTP)

	// Immich defaults. Empty values still need registering so AutomaticEnv sees them on Unmarshal.
	v.SetDefault("immich_url", "")
	v.SetDefault("immich_api_key", "")
	v.SetDefault("device_id", DefaultDeviceID)

	// Auth defaults
	v.SetDefault("auth_mode", AuthModeNone)
	v.SetDefault("api_keys", []string{})

	// Cache defaults
	v.SetDefault("cache_ttl_seconds", 300)

	// Rate limiting defaults
	v.SetDefault("rate_limit_per_second", 100)
	v.SetDefault("rate_limit_burst", 200)

	// Timeout defaults
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("immich_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// applyDerivedDefaults fills zero values a config file may have set explicitly.
func applyDerivedDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if cfg.Transport == "" {
		cfg.Transport = TransportHTTP
	}
	cfg.Transport = strings.ToLower(cfg.Transport)

	if cfg.DeviceID == "" {
		cfg.DeviceID = DefaultDeviceID
	}

	// Ensure auth mode is set even if empty string was provided
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthModeNone
	}

	if cfg.CacheTTLSeconds <= 0 {
		cfg.CacheTTLSeconds = 300
	}

	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 100
	}

	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 200
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	if cfg.ImmichTimeout <= 0 {
		cfg.ImmichTimeout = 30 * time.Second
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// CacheTTL returns the response cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ImmichURL == "" {
		return fmt.Errorf("immich_url is required")
	}

	if c.ImmichAPIKey == "" {
		return fmt.Errorf("immich_api_key is required")
	}

	switch c.Transport {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("invalid transport: %s (must be 'http' or 'stdio')", c.Transport)
	}

	switch c.AuthMode {
	case AuthModeNone:
	case AuthModeAPIKey:
		if len(c.APIKeys) == 0 {
			return fmt.Errorf("api_keys required when auth_mode is %s", c.AuthMode)
		}
	default:
		return fmt.Errorf("invalid auth_mode: %s", c.AuthMode)
	}

	return nil
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() Config {
	out := *c
	out.ImmichAPIKey = mask(c.ImmichAPIKey)
	out.APIKeys = make([]string, len(c.APIKeys))
	for i, key := range c.APIKeys {
		out.APIKeys[i] = mask(key)
	}
	return out
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-4)
}
