package metrics

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// BotClock tracks when each bot connected and falls back to the process
// uptime for bots whose connection was never observed.
type BotClock struct {
	processStart time.Time

	mu      sync.RWMutex
	started map[string]time.Time
}

// NewBotClock uses processStart as the origin for the process uptime.
func NewBotClock(processStart time.Time) *BotClock {
	return &BotClock{
		processStart: processStart,
		started:      make(map[string]time.Time),
	}
}

// Connected records the connect timestamp of the bot with the given SID.
func (c *BotClock) Connected(sid string, at time.Time) {
	c.mu.Lock()
	c.started[sid] = at
	c.mu.Unlock()
}

// Uptime returns how long the bot has been connected at now.
func (c *BotClock) Uptime(sid string, now time.Time) time.Duration {
	c.mu.RLock()
	at, ok := c.started[sid]
	c.mu.RUnlock()
	if ok {
		return now.Sub(at)
	}
	return c.ProcessUptime(now)
}

// ProcessUptime returns the time elapsed since the process started.
func (c *BotClock) ProcessUptime(now time.Time) time.Duration {
	return now.Sub(c.processStart)
}

// ProcessStart reports when the current process was created, or fallback
// when the OS does not expose it.
func ProcessStart(ctx context.Context, fallback time.Time) time.Time {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.Debug("process lookup failed", "error", err)
		return fallback
	}
	ms, err := p.CreateTimeWithContext(ctx)
	if err != nil || ms <= 0 {
		slog.Debug("process create time unavailable", "error", err)
		return fallback
	}
	return time.UnixMilli(ms)
}
