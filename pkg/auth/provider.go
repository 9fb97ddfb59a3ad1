package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yourusername/immich-mcp/pkg/config"
)

var (
	// ErrMissingKey is returned when a request carries no client key.
	ErrMissingKey = errors.New("no API key provided")
	// ErrInvalidKey is returned when the client key is not configured.
	ErrInvalidKey = errors.New("invalid API key")
)

// Context keys for authentication
type contextKey int

const contextKeyAPIKey contextKey = iota

// Provider defines the authentication interface
type Provider interface {
	Authenticate(r *http.Request) (context.Context, error)
}

// NewProvider builds the provider for the configured auth mode.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.AuthMode {
	case config.AuthModeNone:
		return NewNoOpProvider(), nil
	case config.AuthModeAPIKey:
		if len(cfg.APIKeys) == 0 {
			return nil, fmt.Errorf("api_keys required when auth_mode is %s", cfg.AuthMode)
		}
		return NewAPIKeyProvider(cfg.APIKeys), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.AuthMode)
	}
}

// NoOpProvider provides no authentication
type NoOpProvider struct{}

// NewNoOpProvider creates a new no-op auth provider
func NewNoOpProvider() Provider {
	return &NoOpProvider{}
}

// Authenticate always succeeds for no-op provider
func (p *NoOpProvider) Authenticate(r *http.Request) (context.Context, error) {
	return r.Context(), nil
}

// APIKeyProvider provides API key authentication
type APIKeyProvider struct {
	validKeys [][]byte
}

// NewAPIKeyProvider creates a new API key provider
func NewAPIKeyProvider(keys []string) Provider {
	validKeys := make([][]byte, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			validKeys = append(validKeys, []byte(key))
		}
	}
	return &APIKeyProvider{validKeys: validKeys}
}

// Authenticate validates the client key from the X-API-Key header, a bearer token
// or the api_key query parameter, in that order.
func (p *APIKeyProvider) Authenticate(r *http.Request) (context.Context, error) {
	apiKey := r.Header.Get("X-API-Key")

	if apiKey == "" {
		if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "bearer") {
			apiKey = strings.TrimSpace(token)
		}
	}

	// Check query parameter as fallback
	if apiKey == "" {
		apiKey = r.URL.Query().Get("api_key")
	}

	if apiKey == "" {
		return nil, ErrMissingKey
	}

	if !p.valid(apiKey) {
		return nil, ErrInvalidKey
	}

	// Add API key to context
	ctx := context.WithValue(r.Context(), contextKeyAPIKey, apiKey)
	return ctx, nil
}

func (p *APIKeyProvider) valid(apiKey string) bool {
	candidate := []byte(apiKey)
	match := false
	for _, key := range p.validKeys {
		if subtle.ConstantTimeCompare(candidate, key) == 1 {
			match = true
		}
	}
	return match
}

// ClientKey returns the client key an authenticated request presented, if any.
func ClientKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(contextKeyAPIKey).(string)
	return key, ok
}
