package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewSlog_CarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Transport: "stdio"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTool(ctx, "parcela_gml_por_rc")
	ctx = WithRefcat(ctx, "9872023VH5797S")
	log.InfoContext(ctx, "tool call", "elapsed_ms", 12)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"msg":        "tool call",
		"level":      "info",
		"transport":  "stdio",
		"request_id": "req-1",
		"tool":       "parcela_gml_por_rc",
		"refcat":     "9872023VH5797S",
		"elapsed_ms": float64(12),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s=%v want %v (record %v)", k, rec[k], v, rec)
		}
	}
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id=%q", id)
	}
}

func TestNewSlog_ErrorsGroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %s", buf.String())
	}

	log.WithGroup("upstream").Warn("request failed", "err", errors.New("status 503"), "name", "wfs")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["upstream.err"] != "status 503" || rec["upstream.name"] != "wfs" || rec["level"] != "warn" {
		t.Fatalf("record=%v", rec)
	}

	buf.Reset()
	zl = Build(Config{Level: "debug"}, &buf)
	NewSlog(&zl).With("component", "export").Debug("sink write")
	if !strings.Contains(buf.String(), `"component":"export"`) {
		t.Fatalf("debug record=%s", buf.String())
	}
}
