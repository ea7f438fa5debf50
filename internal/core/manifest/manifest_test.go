package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfell/cinnabar-go/internal/core/manifest"
)

func sampleManifest() manifest.Manifest {
	return manifest.Manifest{
		SchemaID:      manifest.SchemaID,
		SchemaVersion: manifest.SchemaVersion,
		Package:       "myservice",
		Version:       "1.2.0",
		Stamp:         1743508800,
		Precompiled:   true,
		ArchiveHash:   "sha256:abc",
		Entries: []manifest.EntryHash{
			{Path: "dep/util.py", Hash: "sha256:d1"},
			{Path: "log.py", Hash: "sha256:d2"},
		},
	}
}

func TestEncode_CanonicalAndStable(t *testing.T) {
	t.Parallel()
	first, err := manifest.Encode(sampleManifest())
	require.NoError(t, err)
	second, err := manifest.Encode(sampleManifest())
	require.NoError(t, err)

	assert.Equal(t, first, second, "encoding must be byte-stable")
	assert.NotContains(t, string(first), "\n", "JCS output is a single line")
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()
	data, err := manifest.Encode(sampleManifest())
	require.NoError(t, err)

	decoded, err := manifest.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sampleManifest(), decoded)
}

func TestDecode_RejectsForeignSchema(t *testing.T) {
	t.Parallel()
	_, err := manifest.Decode([]byte(`{"schema_id":"something.else"}`))
	assert.Error(t, err)
}

func TestWriteLoad_Sidecar(t *testing.T) {
	t.Parallel()
	archivePath := filepath.Join(t.TempDir(), "app.zip")

	require.NoError(t, manifest.Write(archivePath, sampleManifest()))

	sidecar := manifest.SidecarPath(archivePath)
	assert.Equal(t, archivePath+".manifest.json", sidecar)
	_, err := os.Stat(sidecar)
	require.NoError(t, err)

	loaded, err := manifest.Load(archivePath)
	require.NoError(t, err)
	assert.Equal(t, sampleManifest(), loaded)
}

func TestLoad_MissingSidecar(t *testing.T) {
	t.Parallel()
	_, err := manifest.Load(filepath.Join(t.TempDir(), "app.zip"))
	assert.True(t, os.IsNotExist(err))
}
