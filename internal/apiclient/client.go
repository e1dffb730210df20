package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxErrorBody = 512

type Config struct {
	BaseURL    string
	Token      string
	TenantSlug string
	TenantID   string
	Timeout    time.Duration
}

// Observer receives one call per upstream request. status is 0 when the
// request never got a response.
type Observer interface {
	ObserveUpstream(method string, path string, status int, elapsed time.Duration)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	tenantSlug string
	tenantID   string
	observer   Observer
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      strings.TrimSpace(cfg.Token),
		tenantSlug: strings.TrimSpace(cfg.TenantSlug),
		tenantID:   strings.TrimSpace(cfg.TenantID),
	}
}

func (c *Client) WithObserver(observer Observer) *Client {
	c.observer = observer
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type ctxKey int

const (
	tokenKey ctxKey = iota
	idempotencyKey
)

// WithToken attaches the caller's bearer token; it takes precedence over the
// configured service token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, strings.TrimSpace(token))
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithIdempotencyKey pins the Idempotency-Key sent with the next mutation,
// so a browser retry of the same submit reuses the key.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey, strings.TrimSpace(key))
}

func idempotencyFrom(ctx context.Context) string {
	key, _ := ctx.Value(idempotencyKey).(string)
	return key
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.Do(ctx, http.MethodGet, path, query, nil, out)
	return err
}

// GetPage is Get that also returns pagination meta when the API sends it.
func (c *Client) GetPage(ctx context.Context, path string, query url.Values, out any) (Meta, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// GetWithSetupFallback tries path and, when that fails, /setup + path.
func (c *Client) GetWithSetupFallback(ctx context.Context, path string, query url.Values, out any) error {
	_, err := c.GetPageWithSetupFallback(ctx, path, query, out)
	return err
}

func (c *Client) GetPageWithSetupFallback(ctx context.Context, path string, query url.Values, out any) (Meta, error) {
	meta, err := c.Do(ctx, http.MethodGet, path, query, nil, out)
	if err == nil || !IsFallbackable(err) || strings.HasPrefix(path, "/setup/") {
		return meta, err
	}
	meta, setupErr := c.Do(ctx, http.MethodGet, "/setup"+path, query, nil, out)
	if setupErr != nil {
		return meta, errors.Join(err, setupErr)
	}
	return meta, nil
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	_, err := c.Do(ctx, http.MethodPost, path, nil, body, out)
	return err
}

func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	_, err := c.Do(ctx, http.MethodPut, path, nil, body, out)
	return err
}

func (c *Client) Patch(ctx context.Context, path string, body any, out any) error {
	_, err := c.Do(ctx, http.MethodPatch, path, nil, body, out)
	return err
}

func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

// Do sends one request and decodes the enveloped payload into out (when out
// is non-nil).
func (c *Client) Do(ctx context.Context, method string, path string, query url.Values, body any, out any) (Meta, error) {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return Meta{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Meta{}, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Meta{}, statusError(method, path, resp.StatusCode, payload)
	}
	if out == nil {
		return Meta{}, nil
	}

	data, meta := unwrap(payload)
	if len(bytes.TrimSpace(data)) == 0 {
		return meta, &DecodeError{Path: path, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return meta, &DecodeError{Path: path, Err: err}
	}
	return meta, nil
}

// Download is a streamed binary response. The caller must close Body.
type Download struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

func (c *Client) Download(ctx context.Context, path string) (*Download, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(http.MethodGet, path, resp.StatusCode, payload)
	}

	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	if filename == "" {
		segments := strings.Split(strings.Trim(path, "/"), "/")
		filename = segments[len(segments)-1]
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Download{Filename: filename, ContentType: contentType, Size: resp.ContentLength, Body: resp.Body}, nil
}

func (c *Client) send(ctx context.Context, method string, path string, query url.Values, body any) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request for %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		key := idempotencyFrom(ctx)
		if key == "" {
			key = uuid.NewString()
		}
		req.Header.Set("Idempotency-Key", key)
	}
	token := tokenFrom(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.tenantSlug != "" {
		req.Header.Set("X-Tenant-Slug", c.tenantSlug)
	}
	if c.tenantID != "" {
		req.Header.Set("X-Tenant-Id", c.tenantID)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, started)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[apiclient] WARN: %s %s failed: %v", method, path, err)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUnavailable, method, path, err)
	}
	c.observe(method, path, resp.StatusCode, started)
	return resp, nil
}

func (c *Client) observe(method string, path string, status int, started time.Time) {
	if c.observer != nil {
		c.observer.ObserveUpstream(method, path, status, time.Since(started))
	}
}

func statusError(method string, path string, status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return &StatusError{Method: method, Path: path, StatusCode: status, Body: text}
}
