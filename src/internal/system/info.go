package system

import (
	"fmt"
	"runtime"
)

// GetInfo returns the current system information in a human-readable way.
func GetInfo() string {
	return fmt.Sprintf("OS: %s, Architecture: %s, Go Version: %s, CPUs: %d, Goroutines: %d",
		runtime.GOOS, runtime.GOARCH, runtime.Version(), runtime.NumCPU(), runtime.NumGoroutine())
}
