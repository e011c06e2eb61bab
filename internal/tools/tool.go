package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var errMissingXY = errors.New("x and y are required")

// definition is a Tool backed by a function. Every Catastro tool is one.
type definition struct {
	name        string
	title       string
	description string
	schema      json.RawMessage
	annotations map[string]bool
	run         func(ctx context.Context, input json.RawMessage) (any, error)
}

func (d *definition) Name() string                 { return d.name }
func (d *definition) Title() string                { return d.title }
func (d *definition) Description() string          { return d.description }
func (d *definition) Schema() json.RawMessage      { return d.schema }
func (d *definition) Annotations() map[string]bool { return d.annotations }

func (d *definition) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	return d.run(ctx, input)
}

// decode unmarshals tool arguments into args, which carries its defaults.
// Missing or null arguments keep the defaults.
func decode(name string, input json.RawMessage, args any) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, args); err != nil {
		return NewInvalidArgumentsError(name, err)
	}
	return nil
}

func required(name, field, value string) error {
	if value == "" {
		return NewInvalidArgumentsError(name, fmt.Errorf("%s is required", field))
	}
	return nil
}

// property builds one JSON Schema property.
type property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
}

func objectSchema(props map[string]property, req ...string) json.RawMessage {
	if req == nil {
		req = []string{}
	}
	b, err := json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   req,
	})
	if err != nil {
		panic(err)
	}
	return b
}

func str(desc string) property { return property{Type: "string", Description: desc} }

func strDefault(desc, def string) property {
	return property{Type: "string", Description: desc, Default: def}
}

func num(desc string) property { return property{Type: "number", Description: desc} }

func integer(desc string, def int) property {
	return property{Type: "integer", Description: desc, Default: def}
}
