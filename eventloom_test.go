package eventloom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAndBuildCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
start_with: [hello]
events:
  hello:
    print: stdout
    data: hi
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	cat, err := BuildCatalog(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
	assert.True(t, cat.Has("hello"))
}

func TestBuildCatalogRejectsInvalidDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
events:
  a:
    pass: {}
    next_event: missing
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	_, err = BuildCatalog(cfg)
	assert.Error(t, err)
}
