package backend

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
	"time"

	"clipto/internal/config"
	"clipto/internal/logging"
	"clipto/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 512
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

// Client talks to the Clipto REST API.
type Client struct {
	baseURL    string
	gateway    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client from the backend section of cfg.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	client := &Client{logger: logging.NewNop()}
	if cfg != nil {
		client.baseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
		client.gateway = strings.TrimRight(cfg.Backend.MetadataGateway, "/")
		client.token = strings.TrimSpace(cfg.Backend.Token)
		if d := cfg.BackendTimeout(); d > 0 {
			timeout = d
		}
	}
	client.httpClient = &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "backend")
	return client
}

// CreateUploadLink creates the upload job and returns its uuid and target URL.
func (c *Client) CreateUploadLink(ctx context.Context, req UploadLinkRequest) (UploadLink, error) {
	var link UploadLink
	if err := c.doJSON(ctx, http.MethodPost, "/upload/link", nil, req, &link); err != nil {
		return UploadLink{}, err
	}
	if strings.TrimSpace(link.JobUUID) == "" || strings.TrimSpace(link.UploadURL) == "" {
		return UploadLink{}, services.Wrap(services.ErrUnexpected, "upload", "link", "response missing job_uuid or upload_url", nil)
	}
	return link, nil
}

// ResumableURL opens a resumable session on uploadURL. Storage providers that
// answer with a Location header get that session URL; otherwise uploadURL is
// already resumable and is returned unchanged.
func (c *Client) ResumableURL(ctx context.Context, uploadURL string) (string, error) {
	uploadURL = strings.TrimSpace(uploadURL)
	if _, err := url.ParseRequestURI(uploadURL); err != nil {
		return "", services.Wrap(services.ErrUnexpected, "upload", "resumable url", "invalid upload url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build resumable request: %w", err)
	}
	req.Header.Set("x-goog-resumable", "start")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "upload", "resumable url", "open upload session", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	if location := strings.TrimSpace(resp.Header.Get("Location")); location != "" && resp.StatusCode < http.StatusBadRequest {
		return location, nil
	}
	return uploadURL, nil
}

// UploadStatus fetches the transcode state of an upload job.
func (c *Client) UploadStatus(ctx context.Context, uploadUUID string) (UploadStatus, error) {
	var status UploadStatus
	path := "/upload/status/" + url.PathEscape(strings.TrimSpace(uploadUUID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &status); err != nil {
		return UploadStatus{}, err
	}
	return status, nil
}

// Finalize turns a transcoded upload into metadata and returns its id.
func (c *Client) Finalize(ctx context.Context, req FinalizeRequest) (FinalizeResult, error) {
	var result FinalizeResult
	if err := c.doJSON(ctx, http.MethodPost, "/upload/finalize", nil, req, &result); err != nil {
		return FinalizeResult{}, err
	}
	if strings.TrimSpace(result.ArweaveMetadata) == "" {
		return FinalizeResult{}, services.Wrap(services.ErrUnexpected, "transcode", "finalize", "response missing arweave_metadata", nil)
	}
	return result, nil
}

// MetadataURL resolves a token URI against the metadata gateway.
func (c *Client) MetadataURL(uri string) string {
	uri = strings.TrimSpace(uri)
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri
	}
	return c.gateway + "/" + strings.TrimLeft(uri, "/")
}

// Metadata downloads the raw metadata document behind uri.
func (c *Client) Metadata(ctx context.Context, uri string) ([]byte, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, services.Wrap(services.ErrValidation, "metadata", "fetch", "token uri is empty", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MetadataURL(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("build metadata request: %w", err)
	}
	return c.send(req, "metadata")
}

// IndexRequest asks the backend to index a delivery transaction.
func (c *Client) IndexRequest(ctx context.Context, req IndexRequest) (IndexResult, error) {
	if strings.TrimSpace(req.TxHash) == "" {
		return IndexResult{}, services.Wrap(services.ErrValidation, "indexing", "index request", "transaction hash is empty", nil)
	}
	var result IndexResult
	if err := c.doJSON(ctx, http.MethodPost, "/request/index", nil, req, &result); err != nil {
		return IndexResult{}, err
	}
	return result, nil
}

// Request looks up a booking request by its backend id.
func (c *Client) Request(ctx context.Context, id, creator, version string) (Request, error) {
	query := url.Values{}
	if creator = strings.TrimSpace(creator); creator != "" {
		query.Set("creator", creator)
	}
	if version = strings.TrimSpace(version); version != "" {
		query.Set("version", version)
	}
	var resp requestsResponse
	path := "/request/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return Request{}, err
	}
	if len(resp.Requests) == 0 {
		return Request{}, services.Wrap(services.ErrNotFound, "request", "lookup", "request "+id+" not found", nil)
	}
	return resp.Requests[0], nil
}

// User fetches the creator profile for address.
func (c *Client) User(ctx context.Context, address string) (User, error) {
	var user User
	path := "/user/" + url.PathEscape(strings.ToLower(strings.TrimSpace(address)))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// CreateUser registers a new creator profile.
func (c *Client) CreateUser(ctx context.Context, user SignedUser) error {
	return c.doJSON(ctx, http.MethodPost, "/user/create", nil, user, nil)
}

// UpdateUser replaces an existing creator profile.
func (c *Client) UpdateUser(ctx context.Context, user SignedUser) error {
	path := "/user/" + url.PathEscape(strings.ToLower(strings.TrimSpace(user.Address)))
	return c.doJSON(ctx, http.MethodPut, path, nil, user, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	payload, err := c.send(req, path)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrUnexpected, "backend", path, "decode response", err)
	}
	return nil
}

func (c *Client) send(req *http.Request, op string) ([]byte, error) {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "backend", op, "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "backend", op, "read response", err)
	}
	c.logger.Debug("backend request",
		logging.String("method", req.Method),
		logging.String("path", req.URL.Path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet := string(payload)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		statusErr := &StatusError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode, Body: snippet}
		return nil, services.Wrap(classifyStatus(resp.StatusCode), "backend", op, "", statusErr)
	}
	return payload, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return services.ErrNotFound
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return services.ErrTransient
	default:
		return services.ErrUnexpected
	}
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
