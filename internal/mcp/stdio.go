package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/logger"
	"github.com/carlosGalisteo/catastro-mcp-server/pkg/protocol"
)

type stdioReadWriteCloser struct {
	reader io.Reader
	writer io.Writer
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }

func (s *stdioReadWriteCloser) Close() error {
	if c, ok := s.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ServeStdio speaks newline-delimited JSON-RPC on in/out until the client
// closes its end or ctx is cancelled. Requests are handled concurrently so a
// slow tool call does not block ping.
func ServeStdio(ctx context.Context, h *Handler, in io.Reader, out io.Writer, log *slog.Logger) error {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx = logger.WithTransport(ctx, "stdio")

	rwc := &stdioReadWriteCloser{reader: in, writer: out}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(
		func(ctx context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			return dispatch(ctx, h, req)
		},
	)))

	log.Info("mcp stdio serving")
	select {
	case <-ctx.Done():
		_ = conn.Close()
		return nil
	case <-conn.DisconnectNotify():
		log.Info("mcp stdio client disconnected")
		return nil
	}
}

func dispatch(ctx context.Context, h *Handler, req *jsonrpc2.Request) (any, error) {
	var params json.RawMessage
	if req.Params != nil {
		params = *req.Params
	}
	if !req.Notif {
		ctx = logger.WithRequestID(ctx, req.ID.String())
	}

	res, err := h.Handle(ctx, req.Method, params)
	if err != nil {
		var pe *protocol.Error
		if errors.As(err, &pe) {
			return nil, &jsonrpc2.Error{Code: int64(pe.Code), Message: pe.Message}
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
	}
	if res == nil && !req.Notif {
		res = map[string]any{}
	}
	return res, nil
}
