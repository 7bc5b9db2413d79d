// Package metrics samples the host and bot figures shown on the status page.
package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Ticks is a whole-system CPU time snapshot.
type Ticks struct {
	Busy  float64
	Total float64
}

// TickSource returns the current whole-system CPU times.
type TickSource func(ctx context.Context) (Ticks, error)

// SystemTicks reads aggregated CPU times for all cores.
func SystemTicks(ctx context.Context) (Ticks, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return Ticks{}, fmt.Errorf("read cpu times: %w", err)
	}
	if len(times) == 0 {
		return Ticks{}, fmt.Errorf("read cpu times: no data")
	}
	t := times[0]
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	return Ticks{Busy: total - t.Idle, Total: total}, nil
}

// CPUSampler turns two successive tick snapshots into a utilization ratio.
// The rate is 0 until the second snapshot has been taken.
type CPUSampler struct {
	source TickSource

	mu     sync.Mutex
	last   Ticks
	primed bool
	rate   float64
}

func NewCPUSampler(source TickSource) *CPUSampler {
	if source == nil {
		source = SystemTicks
	}
	return &CPUSampler{source: source}
}

// Sample takes a snapshot and, when a previous one exists, updates the rate
// to Δbusy/Δtotal between them.
func (s *CPUSampler) Sample(ctx context.Context) error {
	now, err := s.source(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primed {
		if dt := now.Total - s.last.Total; dt > 0 {
			s.rate = clamp((now.Busy - s.last.Busy) / dt)
		}
	}
	s.last = now
	s.primed = true
	return nil
}

// Rate returns the most recent utilization ratio in [0, 1].
func (s *CPUSampler) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
