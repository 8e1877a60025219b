package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens-dev/repolens/internal/snapshot"
)

// writeFile creates path under root with the given content, making parent
// directories as needed.
func writeFile(t *testing.T, root, path, content string) {
	t.Helper()

	full := filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestLoad_SortsByPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "zz.go", "package zz\n")
	writeFile(t, root, "aa.go", "package aa\n")
	writeFile(t, root, "mid/file.go", "package mid\n")

	snap, err := snapshot.Load(root)
	require.NoError(t, err)

	paths := make([]string, 0, snap.Len())
	for _, file := range snap.Files() {
		paths = append(paths, file.Path)
	}

	assert.Equal(t, []string{"aa.go", "mid/file.go", "zz.go"}, paths)
}

func TestLoad_SkipsVCSAndVendoredDirs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, ".git/config", "[core]\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = 1\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")

	snap, err := snapshot.Load(root)
	require.NoError(t, err)

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "main.go", snap.Files()[0].Path)
}

func TestLoad_SkipsUnreadableDirectory(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "locked/hidden.txt", "secret\n")

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	snap, err := snapshot.Load(root)
	require.NoError(t, err)

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "main.go", snap.Files()[0].Path)
}

func TestLoad_SkipsBinaryFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{0x00, 0x01, 0xff, 0xfe}, 0o644))

	snap, err := snapshot.Load(root)
	require.NoError(t, err)

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "main.go", snap.Files()[0].Path)
}

func TestLoad_EmptyDirFails(t *testing.T) {
	t.Parallel()

	_, err := snapshot.Load(t.TempDir())

	require.ErrorIs(t, err, snapshot.ErrEmptySnapshot)
}

func TestLoad_MissingRootFails(t *testing.T) {
	t.Parallel()

	_, err := snapshot.Load(filepath.Join(t.TempDir(), "does-not-exist"))

	require.Error(t, err)
}

func TestLoad_DetectsLanguage(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "app.py", "import os\n\nprint(os.name)\n")

	snap, err := snapshot.Load(root)
	require.NoError(t, err)

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "Python", snap.Files()[0].Language)
}

func TestFromFiles(t *testing.T) {
	t.Parallel()

	snap, err := snapshot.FromFiles("/repo/demo", []snapshot.File{
		{Path: "b.go", Content: []byte("package b\n")},
		{Path: "a.py", Content: []byte("import sys\n")},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, "a.py", snap.Files()[0].Path)
	assert.Equal(t, "Python", snap.Files()[0].Language)
	assert.Equal(t, int64(len("package b\n")+len("import sys\n")), snap.TotalSize())
	assert.Equal(t, "demo", snap.Identity())
}

func TestFromFiles_EmptyFails(t *testing.T) {
	t.Parallel()

	_, err := snapshot.FromFiles("/repo/demo", nil)

	require.ErrorIs(t, err, snapshot.ErrEmptySnapshot)
}
