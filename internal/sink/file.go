// Package sink provides durable destinations for sampled items.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSink writes each sample to <dir>/<key>.txt.
type FileSink struct {
	dir string
}

// NewFileSink creates the sample directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("sample directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sample directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Write stores payload under key, replacing any previous sample with the same key.
func (s *FileSink) Write(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, key+".txt")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write sample %s: %w", key, err)
	}
	return nil
}

// Dir returns the directory samples are written to.
func (s *FileSink) Dir() string {
	return s.dir
}
