package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsZeroValue(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &ProjectConfig{}, cfg)
}

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := `batchSize: 3
lineWindow: 50
batchTimeout: 90s
workerEndpoints:
  - http://localhost:9200
verbose: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mend.yml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, 50, cfg.LineWindow)
	assert.Equal(t, "90s", cfg.BatchTimeout)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.WorkerEndpoints)
	assert.True(t, cfg.Verbose)
}

func TestLoad_MalformedYAMLIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mend.yml"), []byte("batchSize: [oops"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}
