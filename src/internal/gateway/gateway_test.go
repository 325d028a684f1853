package gateway

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"memory-gateway/src/internal/config"
	"memory-gateway/src/internal/memory"
	"memory-gateway/src/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, mutate func(*config.Config)) (*Gateway, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.StorageDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	st, err := storage.New(cfg.StorageDir)
	require.NoError(t, err)
	gw, err := New(cfg, st)
	require.NoError(t, err)
	return gw, cfg
}

func TestNew_BuiltinSeed(t *testing.T) {
	gw, _ := newGateway(t, func(c *config.Config) { c.Retrieval.Taxonomy = "identity" })

	assert.Equal(t, 3, gw.Store().Len())
	assert.Equal(t, memory.IdentityTaxonomy.Name, gw.Taxonomy().Name)

	state := gw.LastLoad()
	assert.Equal(t, "builtin:identity", state.Source)
	assert.Equal(t, 3, state.Records)
	assert.False(t, state.LoadedAt.IsZero())

	var persisted LoadState
	require.NoError(t, gw.Storage.LoadState(stateName, &persisted))
	assert.Equal(t, state.Source, persisted.Source)
}

func TestRetrievalDelegates(t *testing.T) {
	gw, _ := newGateway(t, func(c *config.Config) { c.Retrieval.Taxonomy = "identity" })

	hits := gw.Search("registration", 2)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.7275, hits[0].Score)

	res := gw.RetrieveForTask("Plan reconnaissance debrief", "travel", 5)
	require.Contains(t, res.Groups, memory.Episodic)
	assert.Len(t, res.Provenance, 1)

	flat := gw.RetrieveContext("", "work", 5)
	require.Len(t, flat, 1)
	assert.Equal(t, "mem_003", flat[0].Record.MemoryID)
}

func TestNew_RejectsInvalidSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	bad := []memory.Record{{MemoryID: "m1", Salience: 2, MemoryType: memory.Semantic}}
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: bad}))

	cfg := config.Default()
	cfg.StorageDir = dir
	cfg.Seed.Path = path
	st, err := storage.New(dir)
	require.NoError(t, err)

	_, err = New(cfg, st)
	assert.ErrorIs(t, err, memory.ErrInvalidSalience)
}

func TestNew_TaxonomyMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Taxonomy: "identity", Records: memory.IdentitySeed()}))

	cfg := config.Default()
	cfg.StorageDir = dir
	cfg.Seed.Path = path
	st, err := storage.New(dir)
	require.NoError(t, err)

	_, err = New(cfg, st)
	assert.ErrorIs(t, err, ErrTaxonomyMismatch)
}

func TestNew_BadSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.StorageDir = t.TempDir()
	cfg.Seed.ReloadSchedule = "every minute"
	st, err := storage.New(cfg.StorageDir)
	require.NoError(t, err)

	_, err = New(cfg, st)
	assert.Error(t, err)
}

func TestReload_SwapsStoreWholesale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: memory.StandardSeed()[:2]}))

	gw, _ := newGateway(t, func(c *config.Config) { c.Seed.Path = path })
	before := gw.Store()
	assert.Equal(t, 2, before.Len())

	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: memory.StandardSeed()}))
	state, err := gw.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, state.Records)
	assert.Equal(t, 4, gw.Store().Len())

	// The previous store is untouched by the swap.
	assert.Equal(t, 2, before.Len())
}

func TestReload_FailureKeepsLiveStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: memory.StandardSeed()}))

	gw, _ := newGateway(t, func(c *config.Config) { c.Seed.Path = path })
	live := gw.Store()

	dup := append(memory.StandardSeed(), memory.StandardSeed()[0])
	require.NoError(t, storage.WriteDataset(path, storage.Dataset{Records: dup}))

	_, err := gw.Reload(context.Background())
	assert.ErrorIs(t, err, memory.ErrDuplicateID)
	assert.Same(t, live, gw.Store())
}

func TestReload_Concurrent(t *testing.T) {
	gw, _ := newGateway(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gw.Reload(context.Background())
			assert.NoError(t, err)
			assert.NotEmpty(t, gw.Search("ranking", 5))
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, gw.Store().Len())
}

func TestReload_CancelledContext(t *testing.T) {
	gw, _ := newGateway(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the load wins the race or the cancellation does; the store stays valid.
	_, err := gw.Reload(ctx)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 4, gw.Store().Len())
}

func TestSnapshot_ReloadableAsSeed(t *testing.T) {
	gw, cfg := newGateway(t, func(c *config.Config) { c.Retrieval.Taxonomy = "identity" })

	path, err := gw.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, gw.Storage.SnapshotDir(), filepath.Dir(path))

	cfg.Seed.Path = path
	state, err := gw.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, state.Source)
	assert.Equal(t, 3, state.Records)
}

func TestScheduledReload(t *testing.T) {
	gw, _ := newGateway(t, func(c *config.Config) { c.Seed.ReloadSchedule = "* * * * * *" })
	first := gw.LastLoad().LoadedAt

	jobs := gw.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "seed-reload", jobs[0].Name)

	gw.Start()
	defer gw.Stop()

	assert.Eventually(t, func() bool {
		return gw.LastLoad().LoadedAt.After(first)
	}, 3*time.Second, 50*time.Millisecond)
}
