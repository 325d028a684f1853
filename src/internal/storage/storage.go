package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

type Storage struct {
	baseDir string
	mu      sync.RWMutex
}

func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "snapshots"), 0755); err != nil {
		return nil, err
	}
	return &Storage{baseDir: baseDir}, nil
}

func (s *Storage) GetBaseDir() string {
	return s.baseDir
}

func (s *Storage) SnapshotDir() string {
	return filepath.Join(s.baseDir, "snapshots")
}

// SaveSnapshot writes ds as a msgpack seed file under the snapshots directory
// and returns its path. Snapshots can be fed back in as seed.path.
func (s *Storage) SaveSnapshot(ds Dataset) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	doc := toDocument(ds)
	doc.CreatedAt = &now
	data, err := msgpack.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := fmt.Sprintf("snapshot-%s-%s.msgpack", now.Format("20060102T150405Z"), uuid.New().String()[:8])
	path := filepath.Join(s.SnapshotDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

func (s *Storage) SaveState(name string, state interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.baseDir, name+".json")
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Storage) LoadState(name string, state interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.baseDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, state)
}
