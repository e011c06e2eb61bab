// Package executor performs the upstream HTTP calls to the Catastro services.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
)

// ErrUpstreamStatus wraps every non-2xx upstream response.
var ErrUpstreamStatus = errors.New("upstream status")

const errorBodyLimit = 8 << 10

type Interface interface {
	Get(ctx context.Context, upstream, endpoint string, params url.Values, accept string) ([]byte, error)
	Post(ctx context.Context, upstream, endpoint string, body []byte, contentType, accept string) ([]byte, error)
}

type Executor struct {
	logger    *slog.Logger
	client    *http.Client
	userAgent string
	startNow  func() time.Time // for tests
}

func New(logger *slog.Logger, client *http.Client, userAgent string) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{
		logger:    logger,
		client:    client,
		userAgent: userAgent,
		startNow:  time.Now,
	}
}

// Get issues a GET to endpoint with params merged into its query string.
func (e *Executor) Get(ctx context.Context, upstream, endpoint string, params url.Values, accept string) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", upstream, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return e.do(req, upstream, accept)
}

func (e *Executor) Post(ctx context.Context, upstream, endpoint string, body []byte, contentType, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return e.do(req, upstream, accept)
}

func (e *Executor) do(req *http.Request, upstream, accept string) ([]byte, error) {
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := e.startNow()
	resp, err := e.client.Do(req)
	if err != nil {
		observability.ObserveUpstreamStatus(upstream, 0)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency(upstream, dur.Seconds())
	observability.ObserveUpstreamStatus(upstream, resp.StatusCode)

	e.logger.DebugContext(req.Context(), "upstream call",
		"upstream", upstream,
		"method", req.Method,
		"status", resp.StatusCode,
		"duration", dur.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("%s: %w %d: %s", upstream, ErrUpstreamStatus, resp.StatusCode, string(b))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
