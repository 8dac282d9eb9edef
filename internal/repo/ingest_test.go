package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varun/sleuth/internal/fault"
)

func writeFixture(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, content, 0644))
	}
}

func TestIngest(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, src, map[string][]byte{
		"main.go":            []byte("package main\n\nfunc main() {}\n"),
		"sub/util.go":        []byte("package sub\n"),
		".gitignore":         []byte("secret.txt\n"),
		"secret.txt":         []byte("token=abc\n"),
		"logo.bin":           {0x00, 0x01, 0x02, 0xFF},
		"node_modules/x.js":  []byte("module.exports = 1\n"),
		"dist/bundle.min.js": []byte("!function(){}\n"),
	})

	svc := NewService(t.TempDir())
	repoID, err := svc.Ingest(src)
	require.NoError(t, err)
	require.Len(t, repoID, 8)

	files, err := svc.Files(repoID)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "main.go")
	assert.Contains(t, paths, "sub/util.go")
	assert.NotContains(t, paths, "secret.txt", "gitignored file must be skipped")
	assert.NotContains(t, paths, "logo.bin", "binary file must be skipped")
	assert.NotContains(t, paths, "node_modules/x.js")
	assert.NotContains(t, paths, "dist/bundle.min.js")
	assert.True(t, sortedStrings(paths), "snapshot must be path-sorted: %v", paths)
}

func TestIngestIdempotentID(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, src, map[string][]byte{"a.go": []byte("package a\n")})

	svc := NewService(t.TempDir())
	id1, err := svc.Ingest(src)
	require.NoError(t, err)
	id2, err := svc.Ingest(src)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "re-ingesting the same path yields the same id")
}

func TestIngestMissingSource(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.Ingest(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestFilesUnknownRepo(t *testing.T) {
	svc := NewService(t.TempDir())
	_, err := svc.Files("ffffffff")
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}

func TestLines(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, src, map[string][]byte{
		"three.txt":      []byte("a\nb\nc\n"),
		"no_newline.txt": []byte("a\nb"),
		"empty.txt":      []byte(""),
	})

	svc := NewService(t.TempDir())
	repoID, err := svc.Ingest(src)
	require.NoError(t, err)

	lines, err := svc.Lines(repoID)
	require.NoError(t, err)
	assert.Equal(t, 3, lines["three.txt"])
	assert.Equal(t, 2, lines["no_newline.txt"])
	assert.Equal(t, 0, lines["empty.txt"])
}

func TestContentNumbersLines(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, src, map[string][]byte{"f.txt": []byte("first\nsecond\n")})

	svc := NewService(t.TempDir())
	repoID, err := svc.Ingest(src)
	require.NoError(t, err)

	content, err := svc.Content(repoID)
	require.NoError(t, err)
	assert.Contains(t, content, "--- START FILE: f.txt ---")
	assert.Contains(t, content, "   1 | first")
	assert.Contains(t, content, "   2 | second")
}

func TestExcerptBounded(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, src, map[string][]byte{
		"big.txt": []byte(strings.Repeat("some repeated line of content\n", 500)),
	})

	svc := NewService(t.TempDir())
	repoID, err := svc.Ingest(src)
	require.NoError(t, err)

	excerpt, err := svc.Excerpt(repoID, 300)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(excerpt), 300)
	assert.True(t, strings.HasPrefix(excerpt, "FILES:\n"))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
