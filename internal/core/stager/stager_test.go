package stager_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfell/cinnabar-go/internal/core/stager"
)

// writeTree creates the given relative-path -> content files under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func TestStage_MergesVendorAndSource(t *testing.T) {
	t.Parallel()
	vendorDir := t.TempDir()
	sourceDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "tree")

	writeTree(t, vendorDir, map[string]string{
		"dep/util.py":  "x=1",
		"dep/extra.py": "y=2",
	})
	writeTree(t, sourceDir, map[string]string{
		"log.py":         "print(1)",
		"pkg/handler.py": "def handle(): pass",
	})

	require.NoError(t, stager.Stage(vendorDir, sourceDir, scratch))

	for rel, want := range map[string]string{
		"dep/util.py":    "x=1",
		"dep/extra.py":   "y=2",
		"log.py":         "print(1)",
		"pkg/handler.py": "def handle(): pass",
	} {
		data, err := os.ReadFile(filepath.Join(scratch, filepath.FromSlash(rel)))
		require.NoError(t, err, "expected %s in scratch tree", rel)
		assert.Equal(t, want, string(data))
	}
}

func TestStage_SourceWinsOnConflict(t *testing.T) {
	t.Parallel()
	vendorDir := t.TempDir()
	sourceDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "tree")

	writeTree(t, vendorDir, map[string]string{"settings.py": "vendored"})
	writeTree(t, sourceDir, map[string]string{"settings.py": "from source"})

	require.NoError(t, stager.Stage(vendorDir, sourceDir, scratch))

	data, err := os.ReadFile(filepath.Join(scratch, "settings.py"))
	require.NoError(t, err)
	assert.Equal(t, "from source", string(data), "source file must shadow the vendored one")
}

func TestStage_EmptyVendorDirAllowed(t *testing.T) {
	t.Parallel()
	sourceDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "tree")
	writeTree(t, sourceDir, map[string]string{"app.py": "pass"})

	require.NoError(t, stager.Stage("", sourceDir, scratch))

	_, err := os.Stat(filepath.Join(scratch, "app.py"))
	assert.NoError(t, err)
}

func TestStage_PreservesExecBit(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	sourceDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "tree")
	scriptPath := filepath.Join(sourceDir, "run.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\n"), 0755))

	require.NoError(t, stager.Stage("", sourceDir, scratch))

	info, err := os.Stat(filepath.Join(scratch, "run.sh"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0111, "exec bit should survive staging")
}

func TestStage_PreservesSymlinks(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	sourceDir := t.TempDir()
	scratch := filepath.Join(t.TempDir(), "tree")
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "real.py"), []byte("pass"), 0644))
	require.NoError(t, os.Symlink("real.py", filepath.Join(sourceDir, "alias.py")))

	require.NoError(t, stager.Stage("", sourceDir, scratch))

	target, err := os.Readlink(filepath.Join(scratch, "alias.py"))
	require.NoError(t, err)
	assert.Equal(t, "real.py", target)
}

func TestStage_MissingSourceDirFails(t *testing.T) {
	t.Parallel()
	scratch := filepath.Join(t.TempDir(), "tree")
	err := stager.Stage("", filepath.Join(t.TempDir(), "missing"), scratch)
	assert.Error(t, err)
}
