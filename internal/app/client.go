package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tenacious60/aquahealthmonitor/pkg/metrics"
	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// ErrUnauthorized is returned when the gateway rejects the session token.
var ErrUnauthorized = errors.New("gateway rejected the session token")

// Client talks to the gateway's HTTP API. It implements Gateway and, once
// signed in, Session.
type Client struct {
	logger  *slog.Logger
	baseURL string
	http    *http.Client
	metrics *metrics.FrontendMetrics // optional

	mu    sync.RWMutex
	token string
	user  *waterhealth.User
}

// ClientConfig holds the configuration for the gateway Client.
type ClientConfig struct {
	Logger  *slog.Logger
	BaseURL string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Metrics    *metrics.FrontendMetrics
}

// NewClient creates a gateway API client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		logger:  cfg.Logger,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		metrics: cfg.Metrics,
	}, nil
}

// CurrentUser returns the signed-in user, or nil before Login/Signup.
func (c *Client) CurrentUser() *waterhealth.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Signup registers a new account and signs in.
func (c *Client) Signup(ctx context.Context, phone, password, fullName string) (*waterhealth.User, error) {
	body := map[string]string{"phone": phone, "password": password, "full_name": fullName}
	var user waterhealth.User
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/signup", body, &user); err != nil {
		return nil, err
	}

	// A signup does not return a token; follow with a login.
	return c.Login(ctx, phone, password)
}

// Login signs in and retains the session token for subsequent calls.
func (c *Client) Login(ctx context.Context, phone, password string) (*waterhealth.User, error) {
	body := map[string]string{"phone": phone, "password": password}
	var resp struct {
		User  waterhealth.User `json:"user"`
		Token string           `json:"token"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/login", body, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.user = &resp.User
	c.mu.Unlock()

	return &resp.User, nil
}

// Logout drops the session.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()
}

// Select fetches rows from table matching the query.
func (c *Client) Select(ctx context.Context, table string, q SelectQuery) ([]Row, error) {
	var resp struct {
		Rows []Row `json:"rows"`
	}
	path := fmt.Sprintf("/api/v1/records/%s/select", table)
	if err := c.timed(ctx, "select", func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, path, q, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Update applies a partial update and returns the updated row.
func (c *Client) Update(ctx context.Context, table string, req UpdateRequest) (Row, error) {
	var resp struct {
		Row Row `json:"row"`
	}
	path := fmt.Sprintf("/api/v1/records/%s/update", table)
	if err := c.timed(ctx, "update", func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, path, req, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Row, nil
}

// Insert creates a row and returns it with its server-assigned fields.
func (c *Client) Insert(ctx context.Context, table string, record Row) (Row, error) {
	var resp struct {
		Row Row `json:"row"`
	}
	path := fmt.Sprintf("/api/v1/records/%s/insert", table)
	if err := c.timed(ctx, "insert", func(ctx context.Context) error {
		return c.call(ctx, http.MethodPost, path, map[string]any{"record": record}, &resp)
	}); err != nil {
		return nil, err
	}
	return resp.Row, nil
}

// Upload stores an object and returns its public URL.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, data []byte) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("key", key); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, key))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := form.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/objects/%s", c.baseURL, bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	var resp struct {
		PublicURL string `json:"public_url"`
	}
	if err := c.timed(ctx, "upload", func(context.Context) error {
		return c.do(req, &resp)
	}); err != nil {
		return "", err
	}
	return resp.PublicURL, nil
}

// call issues a JSON request against the gateway and decodes the response.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		var remote struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&remote); decodeErr == nil && remote.Error != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, remote.Error)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// timed wraps a gateway call with the client metrics.
func (c *Client) timed(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.metrics == nil {
		return fn(ctx)
	}

	timer := prometheus.NewTimer(c.metrics.GatewayCallDuration.WithLabelValues(operation))
	err := fn(ctx)
	timer.ObserveDuration()

	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.GatewayCalls.WithLabelValues(operation, status).Inc()
	return err
}
