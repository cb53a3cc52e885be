package artifact

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/artifactmesh/core"
)

func TestArchive_RoundTrip(t *testing.T) {
	src := NewRegistry()
	_, err := src.CreatePackage("bundle")
	require.NoError(t, err)

	_, err = src.AddArtifact("bundle", "note", "hello", map[string]any{core.MetadataName: "greeting"})
	require.NoError(t, err)
	_, err = src.AddArtifact("bundle", "table", map[string]any{"rows": []any{}}, nil)
	require.NoError(t, err)
	require.NoError(t, src.AddPipeline("bundle", []core.HistoryRecord{
		{Tool: "read_csv", Package: "bundle", Timestamp: time.Now().UTC()},
	}))

	path := filepath.Join(t.TempDir(), "bundle")
	written, err := src.ExportPackage("bundle", path)
	require.NoError(t, err)
	assert.Equal(t, path+".zip", written, "zip suffix is appended")

	dst := NewRegistry()
	pkg, err := dst.ImportPackage(written)
	require.NoError(t, err)
	assert.Equal(t, "bundle", pkg.Name)
	assert.Equal(t, 2, pkg.Len())
	assert.Len(t, pkg.Pipelines(), 1)
	assert.Equal(t, "bundle", dst.ActivePackage(), "imported package becomes active when none is")

	got, err := dst.GetByName("bundle", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestArchive_ExportUnknownPackage(t *testing.T) {
	r := NewRegistry()
	_, err := r.ExportPackage("missing", filepath.Join(t.TempDir(), "x.zip"))
	assert.ErrorIs(t, err, core.ErrNotFound)
}
