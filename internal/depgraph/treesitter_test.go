package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const goSource = `package svc

import "errors"

func Serve(addr string) error {
	if addr == "" {
		return errors.New("empty addr")
	}
	return nil
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

var topLevel = 42
`

const pySource = `import os


def load(path):
    def normalize(p):
        return os.path.abspath(p)

    return normalize(path)


CONSTANT = 1
`

func TestTreeSitterLocator_GoFunctions(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "svc/server.go", goSource)

	loc := NewTreeSitterLocator(dir)
	ctx := context.Background()

	fn, err := loc.EnclosingFunction(ctx, "svc/server.go", 6)
	require.NoError(t, err)
	assert.Equal(t, "Serve", fn)

	fn, err = loc.EnclosingFunction(ctx, "svc/server.go", 13)
	require.NoError(t, err)
	assert.Equal(t, "Close", fn)

	// A line outside any function resolves to "".
	fn, err = loc.EnclosingFunction(ctx, "svc/server.go", 18)
	require.NoError(t, err)
	assert.Empty(t, fn)
}

func TestTreeSitterLocator_PythonInnermost(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "lib/paths.py", pySource)

	loc := NewTreeSitterLocator(dir)
	ctx := context.Background()

	// Nested function: the innermost span wins.
	fn, err := loc.EnclosingFunction(ctx, "lib/paths.py", 5)
	require.NoError(t, err)
	assert.Equal(t, "normalize", fn)

	fn, err = loc.EnclosingFunction(ctx, "lib/paths.py", 7)
	require.NoError(t, err)
	assert.Equal(t, "load", fn)
}

func TestTreeSitterLocator_UnsupportedExtension(t *testing.T) {
	loc := NewTreeSitterLocator(t.TempDir())
	fn, err := loc.EnclosingFunction(context.Background(), "README.md", 3)
	require.NoError(t, err)
	assert.Empty(t, fn)
}

func TestTreeSitterLocator_MissingFile(t *testing.T) {
	loc := NewTreeSitterLocator(t.TempDir())
	_, err := loc.EnclosingFunction(context.Background(), "gone.go", 3)
	assert.Error(t, err)
}
