package immich

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/immich-mcp/pkg/cache"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const apiKeyHeader = "x-api-key"

// healthEndpoints are probed in order by ValidateConnection. Older servers
// only expose the server-info variants.
var healthEndpoints = []string{
	"/server/ping",
	"/server-info/ping",
	"/server/version",
	"/server-info/version",
}

// Client represents an Immich API client
type Client struct {
	apiRoot      string
	apiKey       string
	deviceID     string
	httpClient   *http.Client
	uploadClient *http.Client
	cache        *cache.Cache
}

// Option configures a Client
type Option func(*Client)

// WithDeviceID overrides the device identifier sent with uploads.
func WithDeviceID(id string) Option {
	return func(c *Client) {
		if id != "" {
			c.deviceID = id
		}
	}
}

// NewClient creates a new Immich client. Reads go through responseCache;
// a nil cache disables caching entirely.
func NewClient(baseURL, apiKey string, timeout time.Duration, responseCache *cache.Cache, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		MaxIdleConns:       10,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	c := &Client{
		apiRoot:  apiRootFor(baseURL),
		apiKey:   apiKey,
		deviceID: DefaultDeviceID,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		// Uploads share the pool but have no deadline; media files can be large.
		uploadClient: &http.Client{Transport: transport},
		cache:        responseCache,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// apiRootFor normalises the configured server URL to the /api root.
func apiRootFor(baseURL string) string {
	root := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(root, "/api") {
		root += "/api"
	}
	return root
}

// APIRoot returns the resolved API root URL.
func (c *Client) APIRoot() string {
	return c.apiRoot
}

// Cache returns the response cache, or nil when caching is disabled.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// ClearCache drops every cached read. It returns the number of entries removed.
func (c *Client) ClearCache() int {
	if c.cache == nil {
		return 0
	}
	n := c.cache.Len()
	c.cache.Clear()
	log.Info().Int("entries", n).Msg("Cleared Immich response cache")
	return n
}

// RequestOption adjusts a single Get call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	useCache bool
}

// WithoutCache makes a Get bypass the cache for both lookup and store.
func WithoutCache() RequestOption {
	return func(o *requestOptions) {
		o.useCache = false
	}
}

// Get fetches endpoint with the given query parameters and decodes the body into result.
// Responses are served from and stored in the cache unless WithoutCache is passed.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, result interface{}, opts ...RequestOption) error {
	options := requestOptions{useCache: c.cache != nil}
	for _, opt := range opts {
		opt(&options)
	}
	if c.cache == nil {
		options.useCache = false
	}

	fullURL := c.buildURL(endpoint, params)

	var key string
	if options.useCache {
		key = cache.Key(http.MethodGet, endpoint, params)
		if payload, ok := c.cache.Get(key); ok {
			log.Debug().
				Str("method", http.MethodGet).
				Str("url", fullURL).
				Bool("cached", true).
				Msg("Serving Immich API response from cache")
			return decodeInto(payload, result)
		}
	}

	payload, err := c.request(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}

	if options.useCache {
		c.cache.Set(key, payload)
	}

	return decodeInto(payload, result)
}

// Post sends body as JSON to endpoint and decodes the response into result.
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPost, endpoint, body, result)
}

// Put sends body as JSON to endpoint and decodes the response into result.
func (c *Client) Put(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPut, endpoint, body, result)
}

// Patch sends body as JSON to endpoint and decodes the response into result.
func (c *Client) Patch(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPatch, endpoint, body, result)
}

// Delete sends a DELETE with an optional JSON body. Immich answers most deletes with 204.
func (c *Client) Delete(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodDelete, endpoint, body, result)
}

// ValidateConnection checks that the server is reachable with the configured key.
// Health endpoints are tried in order; the API root is the final fallback.
func (c *Client) ValidateConnection(ctx context.Context) error {
	for _, endpoint := range healthEndpoints {
		err := c.Get(ctx, endpoint, nil, nil, WithoutCache())
		if err == nil {
			log.Debug().Str("endpoint", endpoint).Msg("Immich connection validated")
			return nil
		}
		log.Debug().Err(err).Str("endpoint", endpoint).Msg("Health endpoint unavailable")
	}

	if _, err := c.request(ctx, http.MethodGet, c.apiRoot, nil); err != nil {
		return fmt.Errorf("immich server unreachable at %s: %w", c.apiRoot, err)
	}

	log.Debug().Str("endpoint", c.apiRoot).Msg("Immich connection validated via API root")
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body interface{}, result interface{}) error {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	payload, err := c.request(ctx, method, c.buildURL(endpoint, nil), jsonBody)
	if err != nil {
		return err
	}

	return decodeInto(payload, result)
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	fullURL := c.apiRoot + "/" + strings.TrimLeft(endpoint, "/")
	if encoded := params.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}
	return fullURL
}

// request is the single point every JSON call passes through: it attaches
// the API key, logs both directions and normalizes failures.
func (c *Client) request(ctx context.Context, method, fullURL string, jsonBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if jsonBody != nil {
		bodyReader = bytes.NewReader(jsonBody)
	}

	requestLogger := log.Info().
		Str("method", method).
		Str("url", fullURL).
		Bool("cached", false)
	if len(jsonBody) > 0 && zerolog.GlobalLevel() <= zerolog.DebugLevel {
		requestLogger = requestLogger.RawJSON("payload", jsonBody)
	}
	requestLogger.Msg("Calling Immich API")

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(c.httpClient, req)
}

// do executes req and returns the response body, or an APIError.
func (c *Client) do(httpClient *http.Client, req *http.Request) ([]byte, error) {
	start := time.Now()

	resp, err := httpClient.Do(req)
	if err != nil {
		apiErr := newTransportError(err)
		log.Error().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status", apiErr.StatusCode).
			Str("error_code", apiErr.ErrorCode).
			Dur("duration", time.Since(start)).
			Msg("Immich API request failed")
		return nil, apiErr
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(resp.Body)

	responseLogger := log.Info().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start))
	if len(payload) > 0 && zerolog.GlobalLevel() <= zerolog.DebugLevel && json.Valid(payload) {
		responseLogger = responseLogger.RawJSON("response", payload)
	}
	responseLogger.Msg("Received Immich API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newResponseError(resp.StatusCode, payload)
		log.Warn().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status", apiErr.StatusCode).
			Str("error_code", apiErr.ErrorCode).
			Str("message", apiErr.Message).
			Msg("Immich API returned an error")
		return nil, apiErr
	}

	if readErr != nil {
		return nil, newTransportError(readErr)
	}

	return payload, nil
}

func decodeInto(payload []byte, result interface{}) error {
	if result == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
