package metrics

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryUsage returns the used memory ratio, 1 - available/total. It is
// sampled on every call.
func MemoryUsage(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read virtual memory: %w", err)
	}
	if vm.Total == 0 {
		return 0, nil
	}
	return clamp(1 - float64(vm.Available)/float64(vm.Total)), nil
}
