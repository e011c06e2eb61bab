// Package mcp answers Model Context Protocol requests over the tool registry.
// The stdio and HTTP transports share one Handler.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/logger"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/tools"
	"github.com/carlosGalisteo/catastro-mcp-server/pkg/protocol"
)

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
	outcomeError  = "error"
)

type Options struct {
	Name         string
	Version      string
	Instructions string
	ToolTimeout  time.Duration
	Logger       *slog.Logger
}

type Handler struct {
	registry *tools.Registry
	opts     Options
	logger   *slog.Logger

	initialized atomic.Bool
	mu          sync.Mutex
	client      protocol.Implementation
}

func NewHandler(registry *tools.Registry, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Name == "" {
		opts.Name = "catastro-mcp"
	}
	return &Handler{
		registry: registry,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// Initialized reports whether the client sent notifications/initialized.
func (h *Handler) Initialized() bool {
	return h.initialized.Load()
}

// Client is the implementation announced by the last initialize request.
func (h *Handler) Client() protocol.Implementation {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

// Readiness is true once at least one tool is registered.
func (h *Handler) Readiness() (bool, map[string]string) {
	n := len(h.registry.Names())
	checks := map[string]string{"tools": strconv.Itoa(n)}
	if h.initialized.Load() {
		checks["client_initialized"] = "true"
	}
	return n > 0, checks
}

// Handle dispatches one request. Notifications return a nil result; the
// transport must not answer them. A returned error is always a
// *protocol.Error.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.ErrorContext(ctx, "handler panic recovered",
				"method", method, "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			result = nil
			err = &protocol.Error{Code: protocol.CodeInternalError, Message: fmt.Sprintf("internal error: %v", p)}
		}
	}()

	switch method {
	case "initialize":
		return h.initialize(params)
	case "ping":
		return map[string]any{}, nil
	case "tools/list":
		return h.listTools(), nil
	case "tools/call":
		return h.callTool(ctx, params)
	case "notifications/initialized":
		h.initialized.Store(true)
		h.logger.DebugContext(ctx, "client initialized")
		return nil, nil
	}
	if strings.HasPrefix(method, "notifications/") {
		return nil, nil
	}
	return nil, &protocol.Error{
		Code:    protocol.CodeMethodNotFound,
		Message: fmt.Sprintf("Method not found: %s", method),
	}
}

func (h *Handler) initialize(params json.RawMessage) (any, error) {
	var p protocol.InitializeParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.client = p.ClientInfo
	h.mu.Unlock()

	h.logger.Info("mcp initialize",
		"client", p.ClientInfo.Name,
		"client_version", p.ClientInfo.Version,
		"requested_protocol", p.ProtocolVersion)

	return protocol.InitializeResult{
		ProtocolVersion: negotiateProtocolVersion(p.ProtocolVersion),
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		ServerInfo:   protocol.Implementation{Name: h.opts.Name, Version: h.opts.Version},
		Instructions: h.opts.Instructions,
	}, nil
}

func negotiateProtocolVersion(requested string) string {
	for _, v := range protocol.SupportedVersions {
		if requested == v {
			return v
		}
	}
	return protocol.LatestVersion
}

func (h *Handler) listTools() protocol.ListToolsResult {
	list := h.registry.List()
	out := protocol.ListToolsResult{Tools: make([]protocol.Tool, 0, len(list))}
	for _, t := range list {
		pt := protocol.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
		if annotated, ok := t.(tools.AnnotatedTool); ok {
			pt.Title = annotated.Title()
			pt.Annotations = annotated.Annotations()
		}
		out.Tools = append(out.Tools, pt)
	}
	return out
}

func (h *Handler) callTool(ctx context.Context, params json.RawMessage) (any, error) {
	var p protocol.CallToolParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, &protocol.Error{Code: protocol.CodeInvalidParams, Message: "tool name is required"}
	}

	ctx = logger.WithTool(ctx, p.Name)
	start := time.Now()
	res, err := h.registry.ExecuteWithTimeout(ctx, p.Name, p.Arguments, h.opts.ToolTimeout)
	elapsed := time.Since(start)

	if err != nil {
		var te *tools.ToolError
		if errors.As(err, &te) {
			h.logger.WarnContext(ctx, "tool call rejected", "err", te.Message)
			return nil, &protocol.Error{Code: te.Code, Message: te.Message}
		}
		observability.ObserveToolCall(p.Name, outcomeError, elapsed.Seconds())
		h.logger.ErrorContext(ctx, "tool call failed", "err", err, "duration_ms", elapsed.Milliseconds())
		return protocol.CallToolResult{
			Content: []protocol.Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}

	text, err := json.Marshal(res)
	if err != nil {
		observability.ObserveToolCall(p.Name, outcomeError, elapsed.Seconds())
		return nil, &protocol.Error{Code: protocol.CodeInternalError, Message: fmt.Sprintf("marshal result: %v", err)}
	}

	outcome := outcomeOK
	if reportsFailure(text) {
		outcome = outcomeFailed
	}
	observability.ObserveToolCall(p.Name, outcome, elapsed.Seconds())
	h.logger.InfoContext(ctx, "tool call",
		"outcome", outcome, "duration_ms", elapsed.Milliseconds(), "bytes", len(text))

	return protocol.CallToolResult{
		Content: []protocol.Content{{Type: "text", Text: string(text)}},
	}, nil
}

// reportsFailure is true for results shaped {"ok": false, ...}.
func reportsFailure(text []byte) bool {
	if !bytes.HasPrefix(bytes.TrimSpace(text), []byte("{")) {
		return false
	}
	var probe struct {
		OK *bool `json:"ok"`
	}
	if err := json.Unmarshal(text, &probe); err != nil {
		return false
	}
	return probe.OK != nil && !*probe.OK
}

func unmarshalParams(params json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &protocol.Error{Code: protocol.CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
