package operation

import (
	"context"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// 💾 osFileStore implements FileStore against a real working tree.
type osFileStore struct {
	baseDir string
}

// NewFileStore returns a FileStore rooted at baseDir.
func NewFileStore(baseDir string) FileStore {
	return &osFileStore{baseDir: filepath.Clean(baseDir)}
}

func (s *osFileStore) abs(path string) string {
	return filepath.Join(s.baseDir, path)
}

func (s *osFileStore) ReadFile(ctx context.Context, path string) ([]byte, error) {
	content, err := os.ReadFile(s.abs(path))
	if err != nil {
		return nil, errors.Errorf("reading file: %w", err)
	}
	return content, nil
}

func (s *osFileStore) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(s.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Errorf("checking file existence: %w", err)
}

// WriteFileAtomic writes content through a temp file plus rename, so the
// target is never observable half-written.
func (s *osFileStore) WriteFileAtomic(ctx context.Context, path string, content []byte) error {
	absPath := s.abs(path)
	tempPath := absPath + ".tmp"

	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tempPath, absPath); err != nil {
		os.Remove(tempPath) // Clean up temp file
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}
