// ABOUTME: HTTP client for the Botfy REST backend mounted under /api
// ABOUTME: Builds requests with bearer/tenant headers, applies timeouts and normalizes errors

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is used when neither a configured URL nor an origin is known.
	DefaultBaseURL = "http://127.0.0.1:8000"

	// DefaultTimeout bounds ordinary JSON calls.
	DefaultTimeout = 15 * time.Second

	// DefaultUploadTimeout bounds uploads and agent chat.
	DefaultUploadTimeout = 60 * time.Second

	// maxResponseSize limits response body reads.
	maxResponseSize = 10 * 1024 * 1024
)

// ResolveBaseURL picks the backend base URL and normalizes it to end in /api.
// origin must be a host that forwards /api to the backend. The dashboard's own
// URL never qualifies: its /api routes are served locally.
func ResolveBaseURL(configured, origin string) string {
	raw := configured
	if raw == "" {
		raw = origin
	}
	if raw == "" {
		raw = DefaultBaseURL
	}

	base := strings.TrimRight(raw, "/")
	if strings.HasSuffix(base, "/api") {
		return base
	}
	return base + "/api"
}

// Credentials identify the caller to the backend. Both fields are optional;
// public endpoints (login, widget) are called with the zero value.
type Credentials struct {
	Token    string
	TenantID string
}

// Options configures a Client.
type Options struct {
	BaseURL       string // backend.url; empty falls back to DefaultBaseURL
	Timeout       time.Duration
	UploadTimeout time.Duration
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	logger        *slog.Logger
}

// New creates a backend client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:       ResolveBaseURL(opts.BaseURL, ""),
		httpClient:    opts.HTTPClient,
		timeout:       opts.Timeout,
		uploadTimeout: opts.UploadTimeout,
		logger:        opts.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.uploadTimeout <= 0 {
		c.uploadTimeout = DefaultUploadTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "backend")
	return c
}

// BaseURL returns the resolved base URL, always ending in /api.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type callOptions struct {
	timeout time.Duration
	query   url.Values
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

// WithTimeout overrides the call timeout.
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) { o.timeout = d }
}

// WithQuery adds a query parameter. Empty values are skipped.
func WithQuery(key, value string) CallOption {
	return func(o *callOptions) {
		if value == "" {
			return
		}
		if o.query == nil {
			o.query = url.Values{}
		}
		o.query.Set(key, value)
	}
}

type requestIDKey struct{}

// ContextWithRequestID makes outgoing calls reuse an inbound request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by ContextWithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Do sends a JSON request. body may be nil. When out is nil the response
// body is discarded, so endpoints that answer with an empty 2xx succeed.
func (c *Client) Do(ctx context.Context, creds Credentials, method, path string, body, out any, opts ...CallOption) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	co := callOptions{timeout: c.timeout}
	for _, opt := range opts {
		opt(&co)
	}

	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.send(ctx, creds, method, path, reader, contentType, out, co)
}

// Upload posts a single file as multipart/form-data under field. It uses the
// upload timeout unless a WithTimeout option overrides it.
func (c *Client) Upload(ctx context.Context, creds Credentials, path, field, filename string, content io.Reader, out any, opts ...CallOption) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copying upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}

	co := callOptions{timeout: c.uploadTimeout}
	for _, opt := range opts {
		opt(&co)
	}
	return c.send(ctx, creds, http.MethodPost, path, &buf, mw.FormDataContentType(), out, co)
}

func (c *Client) buildURL(path string, query url.Values) (string, string) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	apiPath := "/api" + path

	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("_path", apiPath)

	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + path + sep + q.Encode(), apiPath
}

func (c *Client) send(ctx context.Context, creds Credentials, method, path string, body io.Reader, contentType string, out any, co callOptions) error {
	target, apiPath := c.buildURL(path, co.query)

	callCtx, cancel := context.WithTimeout(ctx, co.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
	}
	if creds.TenantID != "" {
		req.Header.Set("x-tenant-id", creds.TenantID)
	}
	req.Header.Set("X-Request-Path", apiPath)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			"method", method,
			"path", apiPath,
			"request_id", requestID,
			"error", err,
		)
		return c.transportError(ctx, callCtx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return c.transportError(ctx, callCtx, err)
	}
	if int64(len(data)) > maxResponseSize {
		return fmt.Errorf("response exceeds maximum size of %d bytes", maxResponseSize)
	}

	c.logger.Debug("backend request",
		"method", method,
		"path", apiPath,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Error{Kind: ErrEmptyResponse, Status: resp.StatusCode, Message: msgEmptyResponse}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: ErrInvalidJSON, Status: resp.StatusCode, Message: msgInvalidJSON, Err: err}
	}
	return nil
}

// transportError classifies failures that happened before a status was read.
func (c *Client) transportError(parent, call context.Context, err error) error {
	if parent.Err() == context.Canceled {
		return fmt.Errorf("request canceled: %w", parent.Err())
	}
	if call.Err() == context.DeadlineExceeded || isTimeout(err) {
		return &Error{Kind: ErrTimeout, Message: msgTimeout, Err: err}
	}
	return &Error{Kind: ErrUnreachable, Message: msgUnreachable + unreachableHint(c.baseURL), Err: err}
}
