package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"memory-gateway/src/internal/config"
	"memory-gateway/src/internal/cron"
	"memory-gateway/src/internal/memory"
	"memory-gateway/src/internal/storage"
	"memory-gateway/src/internal/system"

	"golang.org/x/sync/singleflight"
)

var ErrTaxonomyMismatch = errors.New("seed taxonomy does not match configured taxonomy")

const stateName = "seed_state"

// LoadState describes the dataset currently served.
type LoadState struct {
	Source   string    `json:"source"`
	Taxonomy string    `json:"taxonomy"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Gateway owns the live record store. Retrievals read one store snapshot per
// call; reloads build a new store and swap it in whole.
type Gateway struct {
	Config   *config.Config
	Storage  *storage.Storage
	taxonomy memory.Taxonomy

	store   atomic.Pointer[memory.Store]
	state   atomic.Pointer[LoadState]
	reloads singleflight.Group
	cronMgr *cron.CronManager
}

func New(cfg *config.Config, st *storage.Storage) (*Gateway, error) {
	tx, err := memory.TaxonomyByName(cfg.Retrieval.Taxonomy)
	if err != nil {
		return nil, err
	}
	gw := &Gateway{
		Config:   cfg,
		Storage:  st,
		taxonomy: tx,
		cronMgr:  cron.NewCronManager(),
	}

	if _, err := gw.load(); err != nil {
		return nil, err
	}

	if spec := strings.TrimSpace(cfg.Seed.ReloadSchedule); spec != "" {
		id, err := gw.cronMgr.AddJob("seed-reload", spec, func(ctx context.Context) error {
			_, err := gw.Reload(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
		slog.Info("scheduled seed reload", "job_id", id, "spec", spec)
	}
	return gw, nil
}

// Start runs scheduled jobs until Stop is called.
func (gw *Gateway) Start() {
	gw.cronMgr.Start()
}

func (gw *Gateway) Stop() {
	<-gw.cronMgr.Stop().Done()
}

func (gw *Gateway) Store() *memory.Store {
	return gw.store.Load()
}

func (gw *Gateway) Taxonomy() memory.Taxonomy {
	return gw.taxonomy
}

func (gw *Gateway) LastLoad() LoadState {
	if s := gw.state.Load(); s != nil {
		return *s
	}
	return LoadState{}
}

func (gw *Gateway) Jobs() []cron.Job {
	return gw.cronMgr.Jobs()
}

func (gw *Gateway) Search(query string, limit int) []memory.ScoredRecord {
	return gw.Store().Search(query, limit)
}

func (gw *Gateway) RetrieveForTask(task, branch string, limit int) memory.TaskResult {
	return gw.Store().RetrieveForTask(task, branch, limit)
}

func (gw *Gateway) RetrieveContext(task, branch string, limit int) []memory.ScoredRecord {
	return gw.Store().RetrieveContext(task, branch, limit)
}

// Reload rebuilds the store from the seed source. Concurrent calls share one
// load. A failed load leaves the live store untouched.
func (gw *Gateway) Reload(ctx context.Context) (LoadState, error) {
	ch := gw.reloads.DoChan("reload", func() (interface{}, error) {
		return gw.load()
	})
	select {
	case <-ctx.Done():
		return LoadState{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return LoadState{}, res.Err
		}
		return res.Val.(LoadState), nil
	}
}

// Snapshot writes the live store to a msgpack file and returns its path.
func (gw *Gateway) Snapshot() (string, error) {
	s := gw.Store()
	path, err := gw.Storage.SaveSnapshot(storage.Dataset{Taxonomy: s.Taxonomy().Name, Records: s.AllRecords()})
	if err != nil {
		return "", err
	}
	slog.Info("wrote store snapshot", "path", path, "records", s.Len())
	return path, nil
}

func (gw *Gateway) load() (LoadState, error) {
	ds, source, err := gw.readSeed()
	if err != nil {
		slog.Error("seed load failed", "source", source, "error", err)
		return LoadState{}, err
	}

	s, err := memory.NewStore(ds.Records, gw.taxonomy)
	if err != nil {
		slog.Error("seed rejected", "source", source, "error", err)
		return LoadState{}, fmt.Errorf("build store from %s: %w", source, err)
	}

	state := LoadState{
		Source:   source,
		Taxonomy: gw.taxonomy.Name,
		Records:  s.Len(),
		LoadedAt: time.Now().UTC(),
	}
	gw.store.Store(s)
	gw.state.Store(&state)

	if gw.Storage != nil {
		if err := gw.Storage.SaveState(stateName, state); err != nil {
			slog.Warn("failed to persist seed state", "error", err)
		}
	}
	slog.Info("memory store loaded", "source", source, "taxonomy", state.Taxonomy, "records", state.Records)
	system.LogMemoryUsage("seed_load")
	return state, nil
}

func (gw *Gateway) readSeed() (storage.Dataset, string, error) {
	path := gw.Config.Seed.Path
	if path == "" {
		return storage.Dataset{Taxonomy: gw.taxonomy.Name, Records: memory.DefaultSeed(gw.taxonomy)}, "builtin:" + gw.taxonomy.Name, nil
	}

	ds, err := storage.LoadDataset(path)
	if err != nil {
		return storage.Dataset{}, path, err
	}
	if ds.Taxonomy != "" && !strings.EqualFold(ds.Taxonomy, gw.taxonomy.Name) {
		return storage.Dataset{}, path, fmt.Errorf("%w: seed %q, configured %q", ErrTaxonomyMismatch, ds.Taxonomy, gw.taxonomy.Name)
	}
	return ds, path, nil
}
