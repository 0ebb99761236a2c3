// Package upstream is the thin HTTP layer used by every provider client. It
// sends one request, reads the whole body, and records logs and metrics.
// Interpreting status codes and bodies is left to the caller because each
// provider is treated differently.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dasmlab/kashi/pkg/failure"
	"github.com/dasmlab/kashi/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// Client sends requests to a single named provider.
type Client struct {
	provider   string
	httpClient *http.Client
	logger     *logrus.Logger
}

// Response is a fully read provider response.
type Response struct {
	StatusCode int
	StatusText string
	Body       []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewClient creates a client for provider. A zero timeout means requests
// wait for the provider indefinitely.
func NewClient(provider string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		provider: provider,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Provider returns the provider name used in logs and metrics.
func (c *Client) Provider() string {
	return c.provider
}

// PostJSON encodes payload as JSON and POSTs it to url. Extra headers are
// applied after Content-Type.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, header http.Header) (*Response, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		c.logger.WithError(err).WithField("provider", c.provider).Error("Failed to encode request body")
		return nil, failure.Wrap(failure.KindInput, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, buf)
	if err != nil {
		return nil, failure.Wrap(failure.KindInput, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(req)
}

// Get issues a GET request to url.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure.Wrap(failure.KindInput, "create request", err)
	}
	return c.Do(req)
}

// Do sends req and reads the entire response body.
func (c *Client) Do(req *http.Request) (*Response, error) {
	fields := logrus.Fields{
		"provider": c.provider,
		"method":   req.Method,
		"url":      req.URL.Redacted(),
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(c.provider, 0, time.Since(startTime), 0)
		c.logger.WithError(err).WithFields(fields).Error("Provider request failed")
		return nil, failure.Wrap(failure.KindNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(startTime)
	metrics.RecordUpstream(c.provider, resp.StatusCode, duration, len(body))
	if err != nil {
		c.logger.WithError(err).WithFields(fields).Error("Failed to read provider response")
		return nil, failure.Wrap(failure.KindNetwork, "read response", err)
	}

	c.logger.WithFields(fields).WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
		"body_bytes":  len(body),
	}).Debug("Provider request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Body:       body,
	}, nil
}

// statusText returns the reason phrase of resp without the numeric code,
// e.g. "Forbidden" for "403 Forbidden".
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(resp.Status)
	if code := strconv.Itoa(resp.StatusCode); strings.HasPrefix(text, code) {
		text = strings.TrimSpace(text[len(code):])
	}
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return text
}
