package system

import (
	"log/slog"
	"runtime"
)

// MemStats is a megabyte-rounded view of runtime.MemStats.
type MemStats struct {
	AllocMB      uint64 `json:"alloc_mb"`
	TotalAllocMB uint64 `json:"total_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	HeapObjects  uint64 `json:"heap_objects"`
	NumGC        uint32 `json:"num_gc"`
}

func ReadMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemStats{
		AllocMB:      bToMb(m.Alloc),
		TotalAllocMB: bToMb(m.TotalAlloc),
		SysMB:        bToMb(m.Sys),
		HeapObjects:  m.HeapObjects,
		NumGC:        m.NumGC,
	}
}

// LogMemoryUsage logs the current memory usage of the process.
func LogMemoryUsage(tag string) {
	m := ReadMemStats()
	slog.Debug("memory usage",
		"tag", tag,
		"alloc_mb", m.AllocMB,
		"total_alloc_mb", m.TotalAllocMB,
		"sys_mb", m.SysMB,
		"heap_objects", m.HeapObjects,
		"num_gc", m.NumGC,
	)
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
