package statusimage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"status-image/src/internal/bot"
	"status-image/src/internal/config"
	"status-image/src/internal/metrics"
	"status-image/src/internal/render"
)

// BotStatus is one bot as shown on the page.
type BotStatus struct {
	SID         string     `json:"sid"`
	Platform    string     `json:"platform"`
	SelfID      string     `json:"self_id"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar,omitempty"`
	Status      bot.Status `json:"status"`
	StatusLabel string     `json:"status_label"`
	Uptime      int64      `json:"uptime_seconds"`
	Sent        int64      `json:"sent"`
	Received    int64      `json:"received"`
}

// Snapshot is the data one status page is rendered from.
type Snapshot struct {
	Time          time.Time   `json:"time"`
	CPU           float64     `json:"cpu"`
	Memory        float64     `json:"memory"`
	OS            string      `json:"os"`
	ProcessUptime int64       `json:"process_uptime_seconds"`
	Bots          []BotStatus `json:"bots"`
}

// Snapshot collects the current metrics. Failing sources degrade to zero
// values so the page can always be drawn.
func (p *Plugin) Snapshot(ctx context.Context) Snapshot {
	now := p.deps.Now()

	memory, err := p.deps.Memory(ctx)
	if err != nil {
		slog.Warn("failed to read memory usage", "error", err)
	}

	var counts map[string]metrics.MessageStats
	if p.messages != nil {
		counts, err = p.messages.Get(ctx)
		if err != nil {
			slog.Warn("failed to read message counts", "error", err)
		}
	}

	snap := Snapshot{
		Time:          now,
		CPU:           p.cpu.Rate(),
		Memory:        memory,
		OS:            p.OS(),
		ProcessUptime: int64(p.clock.ProcessUptime(now).Seconds()),
		Bots:          []BotStatus{},
	}
	if p.deps.Bots == nil {
		return snap
	}
	for _, b := range p.deps.Bots.Bots() {
		sid := bot.SID(b.Platform(), b.SelfID())
		user := b.User()
		status := b.Status()
		stats := counts[sid]
		snap.Bots = append(snap.Bots, BotStatus{
			SID:         sid,
			Platform:    b.Platform(),
			SelfID:      b.SelfID(),
			Name:        user.DisplayName(),
			Avatar:      user.Avatar,
			Status:      status,
			StatusLabel: status.Label(p.opts.Locale),
			Uptime:      int64(p.clock.Uptime(sid, now).Seconds()),
			Sent:        stats.Send,
			Received:    stats.Receive,
		})
	}
	return snap
}

// HTML renders the status page for the current snapshot and theme.
func (p *Plugin) HTML(ctx context.Context) (string, error) {
	snap := p.Snapshot(ctx)
	th := p.Theme()

	info := render.Info{
		AssetURL:    p.opts.AssetURL,
		Background:  p.background(th.Pick()),
		DarkMode:    th.DarkMode,
		MaskOpacity: th.MaskOpacity,
		Locale:      p.opts.Locale,
		CPU:         snap.CPU,
		Memory:      snap.Memory,
		OS:          snap.OS,
		AppName:     config.AppName,
		AppVersion:  p.opts.AppVersion,
	}
	for _, b := range snap.Bots {
		info.Bots = append(info.Bots, render.BotCard{
			Name:     b.Name,
			Avatar:   b.Avatar,
			Platform: b.Platform,
			Status:   b.Status,
			Uptime:   time.Duration(b.Uptime) * time.Second,
			Sent:     b.Sent,
			Received: b.Received,
		})
	}
	return render.Page(info)
}

// Image renders the status page and screenshots it as PNG.
func (p *Plugin) Image(ctx context.Context) ([]byte, error) {
	if p.deps.Renderer == nil {
		return nil, fmt.Errorf("no renderer configured")
	}
	html, err := p.HTML(ctx)
	if err != nil {
		return nil, err
	}
	img, err := p.deps.Renderer.Render(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render status image: %w", err)
	}
	return img, nil
}

// background turns a theme background into a URL the browser can load.
// Absolute URLs pass through, anything else is relative to the assets.
func (p *Plugin) background(bg string) string {
	if bg == "" {
		bg = render.DefaultBackground
	}
	if strings.Contains(bg, "://") || strings.HasPrefix(bg, "data:") {
		return bg
	}
	return strings.TrimRight(p.opts.AssetURL, "/") + "/" + strings.TrimLeft(bg, "/")
}
