// Package cloudinary wraps the parts of the Cloudinary Admin and Upload APIs
// the media service relies on: searching resources, destroying a resource
// and pinging the account. Signing, destroy and ping go through the official
// SDK; search is issued directly so optional fields such as duration survive
// decoding.
package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	cldsdk "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	sdklogger "github.com/cloudinary/cloudinary-go/v2/logger"
)

const maxErrorBody = 64 << 10

// Client talks to a single Cloudinary account. It is safe for concurrent
// use and holds no per-request state.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	media      *cldsdk.Cloudinary
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger routes the SDK's diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New validates the configuration and returns a ready Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}

	conf, err := cfg.sdkConfiguration()
	if err != nil {
		return nil, err
	}
	media, err := cldsdk.NewFromConfiguration(*conf)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary sdk client: %w", err)
	}
	media.Logger.Writer = sdkLogWriter{logger: client.logger.With("component", "cloudinary-sdk")}
	media.Admin.Client = *client.httpClient
	media.Upload.Client = *client.httpClient
	client.media = media
	return client, nil
}

// CloudName reports the account the client is bound to.
func (c *Client) CloudName() string {
	return c.cfg.CloudName
}

// Search runs a Search API query.
func (c *Client) Search(ctx context.Context, query SearchQuery) (*SearchResult, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("resources", "search"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)

	var result SearchResult
	if err := c.do(request, "search", &result); err != nil {
		return nil, err
	}
	if result.Resources == nil {
		result.Resources = []Asset{}
	}
	return &result, nil
}

// Destroy deletes a single asset of the given resource type. The response
// body is returned as Cloudinary sent it; a missing asset is reported as
// {"result":"not found"} rather than an error.
func (c *Client) Destroy(ctx context.Context, publicID, resourceType string) (DestroyResult, error) {
	if resourceType == "" {
		resourceType = ResourceTypeVideo
	}
	result, err := c.media.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("destroy: %w", err)
	}
	if message := strings.TrimSpace(result.Error.Message); message != "" {
		return nil, &APIError{Operation: "destroy", Message: message}
	}
	if result.Response == nil {
		return nil, errors.New("destroy: empty response body")
	}
	raw, err := json.Marshal(result.Response)
	if err != nil {
		return nil, fmt.Errorf("destroy: encode response: %w", err)
	}
	return DestroyResult(raw), nil
}

// Ping checks that the credentials are accepted by the Admin API.
func (c *Client) Ping(ctx context.Context) error {
	result, err := c.media.Admin.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if message := strings.TrimSpace(result.Error.Message); message != "" {
		return &APIError{Operation: "ping", Message: message}
	}
	if result.Status != "ok" {
		return fmt.Errorf("ping: unexpected status %q", result.Status)
	}
	return nil
}

func (c *Client) endpoint(parts ...string) string {
	segments := append([]string{c.cfg.APIBase, "v1_1", url.PathEscape(c.cfg.CloudName)}, parts...)
	return strings.Join(segments, "/")
}

func (c *Client) do(request *http.Request, operation string, dest interface{}) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return newAPIError(operation, response)
	}
	if err := json.NewDecoder(response.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: empty response body", operation)
		}
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func newAPIError(operation string, response *http.Response) *APIError {
	apiErr := &APIError{StatusCode: response.StatusCode, Operation: operation}
	body, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

type sdkLogWriter struct {
	logger *slog.Logger
}

func (w sdkLogWriter) Debug(v ...interface{}) {
	w.logger.Debug(fmt.Sprint(v...))
}

func (w sdkLogWriter) Error(v ...interface{}) {
	w.logger.Error(fmt.Sprint(v...))
}

var _ sdklogger.LogWriter = sdkLogWriter{}
