package tools

import (
	"context"
	"encoding/json"
	"time"
)

type HealthTool struct {
	started   time.Time
	toolCount func() int
}

func NewHealthTool(toolCount func() int) *HealthTool {
	return &HealthTool{started: time.Now(), toolCount: toolCount}
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Title() string {
	return "Server health"
}

func (t *HealthTool) Description() string {
	return "Check server health status"
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *HealthTool) Execute(_ context.Context, _ json.RawMessage) (any, error) {
	return map[string]any{
		"status":         "healthy",
		"tools":          t.toolCount(),
		"uptime_seconds": int64(time.Since(t.started).Seconds()),
	}, nil
}
