package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"memory-gateway/src/internal/config"
	"memory-gateway/src/internal/memory"
	"memory-gateway/src/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminHealth(t *testing.T) {
	s := setupTestServer(t, nil)

	resp := do(s, http.MethodGet, "/api/admin/v1/health", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decode[adminHealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 3, got.Records)
	assert.Equal(t, "identity", got.Taxonomy)
	assert.Equal(t, config.ModeGrouped, got.Mode)
	assert.Equal(t, "builtin:identity", got.LastLoad.Source)
	assert.NotEmpty(t, got.System)
	assert.Empty(t, got.Jobs)
}

func TestAdminConfig(t *testing.T) {
	s := setupTestServer(t, nil)

	resp := do(s, http.MethodGet, "/api/admin/v1/config", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decode[config.Config](t, resp.Body.Bytes())
	assert.Equal(t, 20, got.Retrieval.MaxLimit)
	assert.Equal(t, ":8080", got.Server.Addr)
}

func TestAdminConfig_ReadOnly(t *testing.T) {
	s := setupTestServer(t, nil)
	resp := do(s, http.MethodPost, "/api/admin/v1/config", jsonBody{"retrieval": jsonBody{"max_limit": 1}})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdminMemories(t *testing.T) {
	s := setupTestServer(t, nil)

	resp := do(s, http.MethodGet, "/api/admin/v1/memories", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decode[memoriesResponse](t, resp.Body.Bytes())
	assert.Equal(t, "identity", got.Taxonomy)
	require.Len(t, got.Memories, 3)
	assert.Equal(t, "mem_001", got.Memories[0].MemoryID)
	assert.NotEmpty(t, got.Memories[0].Provenance)
	assert.Equal(t, []string{"vehicle", "tesla", "vin"}, got.Memories[0].Keywords)
}

func TestAdminReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: memory.IdentitySeed()[:1]}))

	s := setupTestServer(t, func(c *config.Config) { c.Seed.Path = path })

	searchBody := jsonBody{"query": "normandy"}
	assert.JSONEq(t, `{"results": []}`, do(s, http.MethodPost, "/memories/search", searchBody).Body.String())

	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: memory.IdentitySeed()}))
	resp := do(s, http.MethodPost, "/api/admin/v1/reload", nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"records":3`)

	got := decode[searchResponse](t, do(s, http.MethodPost, "/memories/search", searchBody).Body.Bytes())
	require.Len(t, got.Results, 1)
	assert.Equal(t, "mem_002", got.Results[0].Memory.MemoryID)
}

func TestAdminReload_FailureKeepsServing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: memory.IdentitySeed()}))

	s := setupTestServer(t, func(c *config.Config) { c.Seed.Path = path })
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	resp := do(s, http.MethodPost, "/api/admin/v1/reload", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	got := decode[searchResponse](t, do(s, http.MethodPost, "/memories/search", jsonBody{"query": "registration"}).Body.Bytes())
	assert.Len(t, got.Results, 1)
}

func TestAdminSnapshot(t *testing.T) {
	s := setupTestServer(t, nil)

	resp := do(s, http.MethodPost, "/api/admin/v1/snapshot", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	got := decode[map[string]string](t, resp.Body.Bytes())
	path := got["path"]
	require.NotEmpty(t, path)

	ds, err := storage.LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, "identity", ds.Taxonomy)
	assert.Len(t, ds.Records, 3)
}
