package metrics

import (
	"context"
	"sync"
	"time"

	"status-image/src/internal/analytics"
	"status-image/src/internal/bot"
)

// MessageStats is the number of messages a bot sent and received.
type MessageStats struct {
	Send    int64 `json:"send"`
	Receive int64 `json:"receive"`
}

// CountSource aggregates stored message counts over [from, to) day numbers.
type CountSource interface {
	Aggregate(ctx context.Context, from, to int) ([]analytics.Row, error)
}

// MessageCounter caches the previous day's message counts keyed by bot SID
// and only queries the source again once the calendar day changes.
type MessageCounter struct {
	source CountSource
	now    func() time.Time

	mu     sync.Mutex
	day    int
	valid  bool
	counts map[string]MessageStats
}

// NewMessageCounter builds a counter. now defaults to time.Now.
func NewMessageCounter(source CountSource, now func() time.Time) *MessageCounter {
	if now == nil {
		now = time.Now
	}
	return &MessageCounter{source: source, now: now}
}

// Get returns the cached counts, recomputing them when the day number
// differs from the one they were computed for.
func (c *MessageCounter) Get(ctx context.Context) (map[string]MessageStats, error) {
	now := c.now()
	day := analytics.DateNumber(now)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.day == day {
		return c.counts, nil
	}

	from := analytics.DateNumber(analytics.StartOfDay(now).AddDate(0, 0, -1))
	rows, err := c.source.Aggregate(ctx, from, day)
	if err != nil {
		return c.counts, err
	}

	counts := make(map[string]MessageStats, len(rows))
	for _, r := range rows {
		sid := bot.SID(r.Platform, r.SelfID)
		st := counts[sid]
		switch r.Type {
		case analytics.Send:
			st.Send = r.Count
		case analytics.Receive:
			st.Receive = r.Count
		}
		counts[sid] = st
	}
	c.counts = counts
	c.day = day
	c.valid = true
	return counts, nil
}

// Day returns the day number of the cached counts and whether any exist.
func (c *MessageCounter) Day() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day, c.valid
}
