package appconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
snapshot_path: /var/lib/shuttle/snapshot.db.zst
env: production
warm_endpoint_cache: true
warm_rate_per_second: 4
excluded_route_keyword: 점검
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/shuttle/snapshot.db.zst", cfg.SnapshotPath)
	assert.Equal(t, Production, cfg.Env())
	assert.True(t, cfg.WarmEndpointCache)
	assert.Equal(t, 4, cfg.WarmRatePerSecond)
	assert.Equal(t, "점검", cfg.ExcludedRouteKeyword)
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, "snapshot_path: snapshot.db\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Env())
	assert.False(t, cfg.WarmEndpointCache)
	assert.Zero(t, cfg.WarmRatePerSecond)
}

func TestLoadFromFileRejectsMissingSnapshotPath(t *testing.T) {
	path := writeConfig(t, "env: test\n")

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFileRejectsUnknownEnv(t *testing.T) {
	path := writeConfig(t, "snapshot_path: snapshot.db\nenv: staging\n")

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvFromString(t *testing.T) {
	assert.Equal(t, Test, EnvFromString("test"))
	assert.Equal(t, Production, EnvFromString("production"))
	assert.Equal(t, Development, EnvFromString("development"))
	assert.Equal(t, Development, EnvFromString("anything else"))
}

func TestEnvironmentString(t *testing.T) {
	assert.Equal(t, "test", Test.String())
	assert.Equal(t, "production", Production.String())
	assert.Equal(t, "development", Development.String())
}
