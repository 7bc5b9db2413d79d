// Package statusimage renders the bot network status page and serves it as
// the status-image chat command.
package statusimage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"status-image/src/internal/bot"
	"status-image/src/internal/cron"
	"status-image/src/internal/metrics"
	"status-image/src/internal/osinfo"
	"status-image/src/internal/render"
	"status-image/src/internal/theme"
)

// BotSource lists the bots shown on the page.
type BotSource interface {
	Bots() []bot.Bot
}

type Options struct {
	Command       string
	Locale        string
	AssetURL      string
	AppVersion    string
	Theme         string
	CPUInterval   time.Duration
	OSInfoTimeout time.Duration
}

// Deps are the collaborators of the plugin. Counts and Ticks may be nil:
// without Counts every bot shows zero messages, without Ticks the host CPU
// is read through gopsutil.
type Deps struct {
	Bots      BotSource
	Themes    *theme.Set
	Renderer  render.Renderer
	Scheduler *cron.Scheduler
	Counts    metrics.CountSource
	Ticks     metrics.TickSource
	Memory    func(ctx context.Context) (float64, error)
	Resolver  *osinfo.Resolver
	Now       func() time.Time
}

// Plugin owns the state the status page is built from: bot connect times,
// the CPU sampler, the cached message counts and the OS identity.
type Plugin struct {
	opts     Options
	deps     Deps
	clock    *metrics.BotClock
	cpu      *metrics.CPUSampler
	messages *metrics.MessageCounter

	// ownsScheduler is set when New created the scheduler itself, so
	// Start and Stop drive it.
	ownsScheduler bool

	mu        sync.RWMutex
	os        string
	themeName string
}

func New(opts Options, deps Deps) *Plugin {
	if opts.Command == "" {
		opts.Command = "status-image"
	}
	if opts.CPUInterval <= 0 {
		opts.CPUInterval = 5 * time.Second
	}
	if opts.OSInfoTimeout <= 0 {
		opts.OSInfoTimeout = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Memory == nil {
		deps.Memory = metrics.MemoryUsage
	}
	if deps.Resolver == nil {
		deps.Resolver = osinfo.NewResolver()
	}
	if deps.Themes == nil {
		deps.Themes = theme.NewSet(theme.Theme{Name: theme.DefaultName, MaskOpacity: 0.15})
	}
	owns := deps.Scheduler == nil
	if owns {
		deps.Scheduler = cron.NewScheduler()
	}

	p := &Plugin{
		opts:      opts,
		deps:      deps,
		clock:     metrics.NewBotClock(metrics.ProcessStart(context.Background(), deps.Now())),
		cpu:       metrics.NewCPUSampler(deps.Ticks),
		os:        "unknown",
		themeName: opts.Theme,

		ownsScheduler: owns,
	}
	if deps.Counts != nil {
		p.messages = metrics.NewMessageCounter(deps.Counts, deps.Now)
	}
	return p
}

// Attach subscribes to bot logins so per-bot uptime starts at connect time.
func (p *Plugin) Attach(ev *bot.Events) {
	ev.OnLogin(func(b bot.Bot, at time.Time) {
		p.clock.Connected(bot.SID(b.Platform(), b.SelfID()), at)
	})
}

// Start takes the first CPU snapshot, schedules the periodic ones, warms
// the message count cache and resolves the OS identity in the background.
func (p *Plugin) Start(ctx context.Context) error {
	if err := p.cpu.Sample(ctx); err != nil {
		slog.Warn("initial cpu sample failed", "error", err)
	}
	err := p.deps.Scheduler.Every("status-image.cpu", p.opts.CPUInterval, func() {
		if err := p.cpu.Sample(context.Background()); err != nil {
			slog.Debug("cpu sample failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cpu sampler: %w", err)
	}

	if p.messages != nil {
		if _, err := p.messages.Get(ctx); err != nil {
			slog.Warn("failed to load message counts", "error", err)
		}
		// Refresh right after midnight so the first request of the day
		// does not pay for the query.
		err := p.deps.Scheduler.Add("status-image.messages", "5 0 0 * * *", func() {
			if _, err := p.messages.Get(context.Background()); err != nil {
				slog.Warn("failed to refresh message counts", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule message count refresh: %w", err)
		}
	}
	if p.ownsScheduler {
		p.deps.Scheduler.Start()
	}

	go func() {
		rctx, cancel := context.WithTimeout(context.Background(), p.opts.OSInfoTimeout)
		defer cancel()
		id := <-p.deps.Resolver.ResolveAsync(rctx)
		p.mu.Lock()
		p.os = id.String()
		p.mu.Unlock()
		slog.Info("resolved os identity", "platform", id.Platform, "distro", id.Distro, "release", id.Release)
	}()
	return nil
}

// Stop halts the scheduler New created and waits for running jobs. A
// scheduler passed in through Deps is left to its owner.
func (p *Plugin) Stop() {
	if p.ownsScheduler {
		<-p.deps.Scheduler.Stop().Done()
	}
}

// OS returns the cached OS identity line.
func (p *Plugin) OS() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.os
}

// Theme returns the active theme.
func (p *Plugin) Theme() theme.Theme {
	p.mu.RLock()
	name := p.themeName
	p.mu.RUnlock()
	return p.deps.Themes.Get(name)
}

// SetTheme switches the active theme. Unknown names are rejected.
func (p *Plugin) SetTheme(name string) error {
	if t := p.deps.Themes.Get(name); t.Name != name {
		return fmt.Errorf("unknown theme %q", name)
	}
	p.mu.Lock()
	p.themeName = name
	p.mu.Unlock()
	return nil
}

// Themes lists the available theme names.
func (p *Plugin) Themes() []string {
	return p.deps.Themes.Names()
}

// Command returns the chat command that replies with the status image.
func (p *Plugin) Command() bot.Command {
	return bot.Command{
		Name:        p.opts.Command,
		Description: "show the bot network status",
		Action:      p.Handle,
	}
}

// Handle renders the status image and sends it back where sess came from.
func (p *Plugin) Handle(ctx context.Context, sess *bot.Session) error {
	img, err := p.Image(ctx)
	if err != nil {
		return err
	}
	return sess.Bot.SendImage(ctx, sess.Target, img, "")
}
