// Package export writes parcel GML and GeoJSON artifacts to a sink and
// announces completed exports.
package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrExists is returned when overwrite is off and the artifact exists.
	ErrExists = errors.New("export: artifact already exists")
	// ErrOutsideRoot is returned for locations that escape the export root.
	ErrOutsideRoot = errors.New("export: location outside export root")
)

// Artifact describes one written object.
type Artifact struct {
	Location string `json:"path"`
	Bytes    int    `json:"bytes"`
	Checksum string `json:"xxhash64"`
}

// Sink stores export artifacts. dir is a caller-chosen sub-location; sinks
// interpret it relative to their own root.
type Sink interface {
	Name() string
	Write(ctx context.Context, dir, name string, data []byte, overwrite bool) (Artifact, error)
}

func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

func artifact(location string, data []byte) Artifact {
	return Artifact{Location: location, Bytes: len(data), Checksum: Checksum(data)}
}
