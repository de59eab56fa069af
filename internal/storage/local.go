package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName rejects upload names that are not a single path element.
var ErrInvalidName = errors.New("invalid file name")

// LocalStore appends upload chunks to files under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

// ValidName reports whether name can be used as a file name inside one
// upload directory.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 255 {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return !strings.Contains(name, "..")
}

// PathFor returns the file path for an upload held in its own directory.
func (s *LocalStore) PathFor(dir, name string) (string, error) {
	if !ValidName(dir) || !ValidName(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, dir, name), nil
}

// Append writes everything from r to the end of path, creating it if
// needed, and returns the number of bytes written.
func (s *LocalStore) Append(path string, r io.Reader) (int64, error) {
	if err := s.inside(path); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		return n, fmt.Errorf("append to %s: %w", path, err)
	}
	if closeErr != nil {
		return n, fmt.Errorf("close %s: %w", path, closeErr)
	}
	return n, nil
}

// Remove deletes the upload directory that holds path.
func (s *LocalStore) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := s.inside(path); err != nil {
		return err
	}
	dir := filepath.Dir(filepath.Clean(path))
	if dir == s.root {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

func (s *LocalStore) inside(path string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is outside %s", ErrInvalidName, path, s.root)
	}
	return nil
}
