package fastspring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/fastspring-cashier/pkg/config"
	"github.com/fatflowers/fastspring-cashier/pkg/metrics"
)

const DefaultBaseURL = "https://api.fastspring.com"

// Client talks to the Fastspring REST API with HTTP basic auth.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	metrics  metrics.ProcessMetrics
	log      *zap.SugaredLogger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m metrics.ProcessMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewClient(username, password string, log *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 15 * time.Second},
		metrics:  metrics.NoopProcessMetrics{},
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newClientFromConfig(cfg *cfgpkg.Config, log *zap.SugaredLogger) (*Client, error) {
	timeout := cfg.Fastspring.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	m, err := metrics.NewProcessMetrics(prometheus.DefaultRegisterer, "cashier")
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.Fastspring.Username, cfg.Fastspring.Password, log,
		WithBaseURL(cfg.Fastspring.APIBaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithMetrics(m),
	), nil
}

var Module = fx.Options(
	fx.Provide(newClientFromConfig),
)

// ClientError is returned for every non-2xx response.
type ClientError struct {
	StatusCode int
	Method     string
	Path       string
	Body       []byte
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("fastspring %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, string(e.Body))
}

// HasEmailError reports whether Fastspring rejected the request because of the
// account email, which is how it signals that the account already exists.
func (e *ClientError) HasEmailError() bool {
	var body struct {
		Error map[string]json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return false
	}
	_, ok := body.Error["email"]
	return ok
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveProcess("fastspring_"+strings.ToLower(method), "error", time.Since(start))
		return fmt.Errorf("fastspring %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	c.metrics.ObserveProcess("fastspring_"+strings.ToLower(method), strconv.Itoa(resp.StatusCode), time.Since(start))
	c.log.Debugw("fastspring_request", "method", method, "path", path, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ClientError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: respBody}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode fastspring response: %w", err)
	}
	return nil
}

func (c *Client) CreateAccount(ctx context.Context, req *AccountRequest) (*AccountResponse, error) {
	var out AccountResponse
	if err := c.do(ctx, http.MethodPost, "/accounts", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateAccount(ctx context.Context, accountID string, req *AccountRequest) (*AccountResponse, error) {
	var out AccountResponse
	if err := c.do(ctx, http.MethodPost, "/accounts/"+url.PathEscape(accountID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	var out Account
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccounts lists accounts matching filter, e.g. {"email": ...}.
func (c *Client) GetAccounts(ctx context.Context, filter map[string]string) (*AccountsResponse, error) {
	q := url.Values{}
	for k, v := range filter {
		q.Set(k, v)
	}
	var out AccountsResponse
	if err := c.do(ctx, http.MethodGet, "/accounts", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAccountManagementURI returns the authenticated self-service URL set.
func (c *Client) GetAccountManagementURI(ctx context.Context, accountID string) (*AccountsResponse, error) {
	var out AccountsResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID)+"/authenticate", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSession(ctx context.Context, req *SessionRequest) (*Session, error) {
	var out Session
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
