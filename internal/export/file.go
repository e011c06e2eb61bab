package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
)

// FileSink writes artifacts below a fixed root directory.
type FileSink struct {
	root string
}

func NewFileSink(root string) (*FileSink, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("export root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("export root %q: %w", root, err)
	}
	return &FileSink{root: abs}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Root() string { return s.root }

// Path resolves dir and name below the root. A relative dir is taken
// relative to the root; an absolute one must already be inside it.
func (s *FileSink) Path(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid file name %q", ErrOutsideRoot, name)
	}
	base := s.root
	if dir = strings.TrimSpace(dir); dir != "" {
		if filepath.IsAbs(dir) {
			base = filepath.Clean(dir)
		} else {
			base = filepath.Join(s.root, dir)
		}
	}
	if !within(s.root, base) {
		return "", fmt.Errorf("%w: %s is not inside %s", ErrOutsideRoot, base, s.root)
	}
	return filepath.Join(base, name), nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *FileSink) Write(_ context.Context, dir, name string, data []byte, overwrite bool) (Artifact, error) {
	start := time.Now()
	a, err := s.write(dir, name, data, overwrite)
	observability.ObserveSinkOp(s.Name(), "write", err, time.Since(start).Seconds())
	return a, err
}

func (s *FileSink) write(dir, name string, data []byte, overwrite bool) (Artifact, error) {
	path, err := s.Path(dir, name)
	if err != nil {
		return Artifact{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return Artifact{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", path, err)
	}
	return artifact(path, data), nil
}
