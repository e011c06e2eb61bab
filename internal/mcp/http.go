package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/logger"
	"github.com/carlosGalisteo/catastro-mcp-server/pkg/protocol"
)

const maxBodyBytes = 1 << 20

// HTTPHandler serves one JSON-RPC message per POST. Notifications are
// acknowledged with 202 and no body.
func HTTPHandler(h *Handler, log *slog.Logger) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := http.StatusOK
		defer func() {
			observability.ObserveHTTP(r.Method, "/mcp", status, time.Since(start).Seconds())
		}()

		if r.Method != http.MethodPost {
			status = http.StatusMethodNotAllowed
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", status)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
				http.Error(w, "request body too large", status)
				return
			}
			status = http.StatusBadRequest
			http.Error(w, "read body: "+err.Error(), status)
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, status, protocol.Response{
				JSONRPC: protocol.Version,
				Error:   &protocol.Error{Code: protocol.CodeParseError, Message: "Parse error"},
			})
			return
		}
		if req.JSONRPC != protocol.Version || req.Method == "" {
			writeJSON(w, status, protocol.Response{
				JSONRPC: protocol.Version,
				ID:      req.ID,
				Error:   &protocol.Error{Code: protocol.CodeInvalidRequest, Message: "Invalid Request"},
			})
			return
		}

		ctx := logger.WithTransport(r.Context(), "http")
		res, err := h.Handle(ctx, req.Method, req.Params)

		if req.IsNotification() {
			if err != nil {
				log.WarnContext(ctx, "notification failed", "method", req.Method, "err", err)
			}
			status = http.StatusAccepted
			w.WriteHeader(status)
			return
		}

		resp := protocol.Response{JSONRPC: protocol.Version, ID: req.ID}
		if err != nil {
			var pe *protocol.Error
			if !errors.As(err, &pe) {
				pe = &protocol.Error{Code: protocol.CodeInternalError, Message: err.Error()}
			}
			resp.Error = pe
		} else {
			if res == nil {
				res = map[string]any{}
			}
			resp.Result = res
		}
		writeJSON(w, status, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
