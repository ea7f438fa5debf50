package lockfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfell/cinnabar-go/internal/core/lockfile"
)

func TestLoad_MissingFileReturnsNewLockfile(t *testing.T) {
	t.Parallel()
	lf, err := lockfile.Load(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, lf)
	assert.Equal(t, lockfile.APIVersion, lf.ApiVersion)
	assert.Nil(t, lf.Build)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	lf := lockfile.New()
	lf.RecordBuild("dist/myservice.zip", "sha256:abc123", 1743508800, true)
	require.NoError(t, lockfile.Save(tempDir, lf))

	loaded, err := lockfile.Load(tempDir)
	require.NoError(t, err)
	require.NotNil(t, loaded.Build)
	assert.Equal(t, "dist/myservice.zip", loaded.Build.Archive)
	assert.Equal(t, "sha256:abc123", loaded.Build.Hash)
	assert.Equal(t, int64(1743508800), loaded.Build.Stamp)
	assert.True(t, loaded.Build.Precompiled)
}

func TestRecordBuild_ReplacesPreviousRecord(t *testing.T) {
	t.Parallel()
	lf := lockfile.New()
	lf.RecordBuild("dist/a.zip", "sha256:old", 1, false)
	lf.RecordBuild("dist/a.zip", "sha256:new", 2, true)

	assert.Equal(t, "sha256:new", lf.Build.Hash)
	assert.Equal(t, int64(2), lf.Build.Stamp)
}

func TestLoad_FillsMissingAPIVersion(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	lockfilePath := filepath.Join(tempDir, lockfile.LockfileName)
	content := `
[build]
archive = "dist/a.zip"
hash = "sha256:abc"
stamp = 5
precompiled = false
`
	require.NoError(t, os.WriteFile(lockfilePath, []byte(content), 0644))

	lf, err := lockfile.Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, lockfile.APIVersion, lf.ApiVersion)
	require.NotNil(t, lf.Build)
	assert.Equal(t, "sha256:abc", lf.Build.Hash)
}

func TestLoad_CorruptFileFails(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	lockfilePath := filepath.Join(tempDir, lockfile.LockfileName)
	require.NoError(t, os.WriteFile(lockfilePath, []byte("[build\n"), 0644))

	_, err := lockfile.Load(tempDir)
	assert.Error(t, err)
}
