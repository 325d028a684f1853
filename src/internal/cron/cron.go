package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job describes a scheduled function for status reporting.
type Job struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type entry struct {
	id   cron.EntryID
	name string
	spec string
}

// CronManager runs named jobs on six-field (seconds first) cron schedules.
type CronManager struct {
	c    *cron.Cron
	jobs map[string]entry
	mu   sync.RWMutex
}

func NewCronManager() *CronManager {
	return &CronManager{
		c:    cron.New(cron.WithSeconds()),
		jobs: make(map[string]entry),
	}
}

func (m *CronManager) Start() {
	m.c.Start()
}

// Stop halts scheduling and returns a context that is done once running jobs finish.
func (m *CronManager) Stop() context.Context {
	return m.c.Stop()
}

// AddJob schedules fn under spec and returns the generated job id.
func (m *CronManager) AddJob(name, spec string, fn func(ctx context.Context) error) (string, error) {
	id := name + "-" + uuid.New().String()[:8]
	entryID, err := m.c.AddFunc(spec, func() {
		start := time.Now()
		if err := fn(context.Background()); err != nil {
			slog.Error("cron job failed", "job_id", id, "spec", spec, "error", err)
			return
		}
		slog.Info("cron job finished", "job_id", id, "spec", spec, "duration", time.Since(start))
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	m.mu.Lock()
	m.jobs[id] = entry{id: entryID, name: name, spec: spec}
	m.mu.Unlock()
	return id, nil
}

func (m *CronManager) RemoveJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.jobs[id]; ok {
		m.c.Remove(e.id)
		delete(m.jobs, id)
	}
}

// Jobs lists scheduled jobs ordered by id.
func (m *CronManager) Jobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Job, 0, len(m.jobs))
	for id, e := range m.jobs {
		ce := m.c.Entry(e.id)
		out = append(out, Job{ID: id, Name: e.name, Spec: e.spec, Next: ce.Next, Prev: ce.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
