package site

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSite(t *testing.T) *Site {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>home</h1>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "css", "app.css"), []byte("body{}"), 0o644))
	s, err := New(dir)
	require.NoError(t, err)
	return s
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"index.html": "text/html; charset=UTF-8",
		"a.CSS":      "text/css; charset=UTF-8",
		"app.js":     "application/javascript; charset=UTF-8",
		"logo.png":   "image/png",
		"p.jpg":      "image/jpeg",
		"p.jpeg":     "image/jpeg",
		"anim.gif":   "image/gif",
		"data.bin":   "application/octet-stream",
		"README":     "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, ContentType(name), name)
	}
}

func TestHasExtension(t *testing.T) {
	assert.True(t, HasExtension("/css/app.css"))
	assert.True(t, HasExtension("/favicon.ico"))
	assert.False(t, HasExtension("/users/list"))
	assert.False(t, HasExtension("/v1.2/list"))
}

func TestRead(t *testing.T) {
	s := newTestSite(t)

	f, err := s.Read(IndexPage)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=UTF-8", f.ContentType)
	assert.Equal(t, "<h1>home</h1>", string(f.Data))

	f, err = s.Read("/css/app.css")
	require.NoError(t, err)
	assert.Equal(t, "text/css; charset=UTF-8", f.ContentType)

	_, err = s.Read("/missing.js")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Read("/css")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_RejectsTraversal(t *testing.T) {
	s := newTestSite(t)
	outside := filepath.Join(filepath.Dir(s.Root()), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	_, err := s.Resolve("/../secret.txt")
	require.ErrorIs(t, err, ErrOutsideRoot)

	_, err = s.Read("/css/../../secret.txt")
	require.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolve_RejectsEscapingSymlink(t *testing.T) {
	s := newTestSite(t)
	target := filepath.Join(t.TempDir(), "elsewhere.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(target, filepath.Join(s.Root(), "link.txt")))

	_, err := s.Read("/link.txt")
	require.ErrorIs(t, err, ErrOutsideRoot)
}
