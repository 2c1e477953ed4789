package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileSource persists the CSV as a local file. Replace writes to a temp file
// in the same directory and renames it over the target, which is atomic on
// POSIX filesystems.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch implements Source.
func (f *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.Path, err)
	}
	return data, nil
}

// Replace implements Source.
func (f *FileSource) Replace(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %q -> %q: %w", tmpName, f.Path, err)
	}
	return nil
}

var _ Source = (*FileSource)(nil)
