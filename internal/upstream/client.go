package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/resilience"
)

const maxResponseBody = 4 << 20

// Doer executes an outbound request. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client talks JSON to the upstream commerce API, relaying the caller's
// bearer token from the request context.
type Client struct {
	baseURL *url.URL
	http    Doer
	logger  zerolog.Logger
}

// New builds a client for baseURL.
func New(baseURL string, doer Doer, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("upstream: invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream: base url %q must be absolute", baseURL)
	}
	if doer == nil {
		return nil, errors.New("upstream: http client not configured")
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{baseURL: u, http: doer, logger: logger}, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")}).String()
}

// doJSON sends in (when non-nil) as JSON and decodes a 2xx reply into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	raw, err := c.send(ctx, method, path, "application/json", body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return common.NewAppError("UPSTREAM_BAD_RESPONSE", "upstream returned an unexpected payload", http.StatusBadGateway, err)
	}
	return nil
}

// send performs the request and returns the raw 2xx body. Non-2xx replies
// become *common.AppError: 4xx pass through, everything else is a 502.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token, ok := common.AccessToken(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.Header.Set(middleware.RequestIDHeader, reqID)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, resilience.ErrOpenCircuit) {
			return nil, common.NewAppError("UPSTREAM_UNAVAILABLE", "upstream temporarily unavailable", http.StatusServiceUnavailable, err)
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("method", method).Str("path", path).Msg("upstream_request_failed")
		return nil, common.NewAppError("UPSTREAM_UNAVAILABLE", "upstream request failed", http.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, common.NewAppError("UPSTREAM_UNAVAILABLE", "upstream response interrupted", http.StatusBadGateway, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, statusError(resp.StatusCode, raw)
}

// statusError converts an upstream error reply into an AppError, keeping the
// upstream message when it uses the same error envelope.
func statusError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &envelope)
	message := strings.TrimSpace(envelope.Error.Message)
	if message == "" {
		message = strings.TrimSpace(envelope.Message)
	}
	if status >= 500 || status < 400 {
		return common.NewAppError("UPSTREAM_ERROR", "upstream failed to process the request", http.StatusBadGateway, fmt.Errorf("upstream status %d", status))
	}
	code := strings.TrimSpace(envelope.Error.Code)
	if code == "" {
		code = strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return common.NewAppError(code, message, status, fmt.Errorf("upstream status %d", status))
}

// Ping reports whether the upstream API answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("health"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream health returned %d", resp.StatusCode)
	}
	return nil
}
