package system

import (
	"log/slog"
	"runtime"
)

// LogMemoryUsage logs the heap and goroutine counts of this process.
func LogMemoryUsage(tag string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	slog.Info("process memory",
		"tag", tag,
		"heap_alloc_mb", toMiB(m.HeapAlloc),
		"sys_mb", toMiB(m.Sys),
		"num_gc", m.NumGC,
		"goroutines", runtime.NumGoroutine(),
	)
}

func toMiB(b uint64) uint64 {
	return b >> 20
}
