// Package site resolves static files under the configured base directory.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	IndexPage    = "/index.html"
	NotFoundPage = "/notfound.html"
)

var (
	ErrNotFound = errors.New("static file not found")
	// ErrOutsideRoot is returned for paths that resolve above the base directory.
	ErrOutsideRoot = errors.New("path escapes site root")
)

var mimeTypes = map[string]string{
	".html": "text/html; charset=UTF-8",
	".css":  "text/css; charset=UTF-8",
	".js":   "application/javascript; charset=UTF-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// ContentType maps a file name to the MIME type it is served with.
func ContentType(name string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// HasExtension reports whether the last segment of a URL path names a file.
func HasExtension(urlPath string) bool {
	return path.Ext(path.Base(urlPath)) != ""
}

type File struct {
	Path        string
	ContentType string
	Data        []byte
}

type Site struct {
	root string
}

func New(baseDir string) (*Site, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve site dir: %w", err)
	}
	return &Site{root: abs}, nil
}

func (s *Site) Root() string {
	return s.root
}

// Resolve maps a URL path to a file inside the base directory.
func (s *Site) Resolve(urlPath string) (string, error) {
	if strings.ContainsRune(urlPath, 0) {
		return "", ErrOutsideRoot
	}
	rel := filepath.FromSlash(strings.TrimPrefix(urlPath, "/"))
	full := filepath.Join(s.root, rel)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}

	// reject symlinks that point outside the root
	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve %s: %w", urlPath, err)
	}
	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve site dir: %w", err)
	}
	if real != realRoot && !strings.HasPrefix(real, realRoot+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return full, nil
}

// Read loads a regular file for urlPath.
func (s *Site) Read(urlPath string) (*File, error) {
	full, err := s.Resolve(urlPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", full, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	return &File{Path: full, ContentType: ContentType(full), Data: data}, nil
}
