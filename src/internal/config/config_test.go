package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MEMGW_STORAGE_DIR", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "0.0.0.0", cfg.Server.EffectiveHost)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
	assert.Equal(t, filepath.Join(home, ".memory-gateway"), cfg.StorageDir)
	assert.Equal(t, ModeGrouped, cfg.Retrieval.Mode)
	assert.Equal(t, "standard", cfg.Retrieval.Taxonomy)
	assert.Equal(t, 5, cfg.Retrieval.DefaultSearchLimit)
	assert.Equal(t, 3, cfg.Retrieval.DefaultTaskLimit)
	assert.Equal(t, 20, cfg.Retrieval.MaxLimit)
	assert.Empty(t, cfg.Seed.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverride(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(t.TempDir(), "gw.yaml")
	body := `server:
  addr: "127.0.0.1:9090"
retrieval:
  mode: FLAT
  taxonomy: identity
  max_limit: 10
seed:
  path: "~/seeds/memories.yaml"
  reload_schedule: "0 */5 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.EffectiveHost)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ModeFlat, cfg.Retrieval.Mode)
	assert.Equal(t, "identity", cfg.Retrieval.Taxonomy)
	assert.Equal(t, 10, cfg.Retrieval.MaxLimit)
	assert.Equal(t, filepath.Join(home, "seeds", "memories.yaml"), cfg.Seed.Path)
	assert.Equal(t, "0 */5 * * * *", cfg.Seed.ReloadSchedule)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("MEMGW_STORAGE_DIR", dir)
	t.Setenv("MEMGW_RETRIEVAL_TAXONOMY", "identity")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.StorageDir)
	assert.Equal(t, "identity", cfg.Retrieval.Taxonomy)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad addr", "server:\n  addr: \"nohostport\"\n"},
		{"bad port", "server:\n  addr: \":http\"\n"},
		{"bad mode", "retrieval:\n  mode: tree\n"},
		{"bad taxonomy", "retrieval:\n  taxonomy: dewey\n"},
		{"default above max", "retrieval:\n  max_limit: 2\n"},
		{"zero max", "retrieval:\n  max_limit: 0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "gw.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	require.NotPanics(t, func() { Default() })

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ModeGrouped, cfg.Retrieval.Mode)
}
