package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"status-image/src/internal/analytics"
	"status-image/src/internal/bot"
	"status-image/src/internal/channels"
	"status-image/src/internal/config"
	"status-image/src/internal/cron"
	"status-image/src/internal/render"
	"status-image/src/internal/statusimage"
	"status-image/src/internal/storage"
	"status-image/src/internal/system"
	"status-image/src/internal/theme"
)

// generatedImageTTL is how long rendered images stay downloadable.
const generatedImageTTL = 24 * time.Hour

type Gateway struct {
	Config    *config.Config
	Storage   *storage.Storage
	Analytics *analytics.Store
	Events    *bot.Events
	Plugin    *statusimage.Plugin
	Themes    *theme.Set

	scheduler *cron.Scheduler
	renderer  *render.Chrome

	cfgMu sync.RWMutex

	mu       sync.RWMutex
	channels map[string]channels.Channel
	commands map[string]bot.Command

	inflight sync.WaitGroup
}

// New wires storage, analytics, the status plugin and the configured chat
// channels together. Nothing connects until Start and Run are called.
func New(ctx context.Context, cfg *config.Config, st *storage.Storage, version string) (*Gateway, error) {
	gw := &Gateway{
		Config:    cfg,
		Storage:   st,
		Events:    bot.NewEvents(),
		scheduler: cron.NewScheduler(),
		channels:  make(map[string]channels.Channel),
		commands:  make(map[string]bot.Command),
	}

	if cfg.Analytics.Enabled {
		store, err := analytics.Open(st.AnalyticsPath())
		if err != nil {
			return nil, fmt.Errorf("open analytics: %w", err)
		}
		gw.Analytics = store
	}

	gw.Themes = theme.NewSet(theme.Theme{
		Name:        theme.DefaultName,
		DarkMode:    cfg.Theme.DarkMode,
		MaskOpacity: cfg.Theme.MaskOpacity,
		Backgrounds: cfg.Theme.Backgrounds,
	})
	if err := gw.Themes.LoadDir(st.ThemesDir()); err != nil {
		slog.Warn("failed to load themes", "dir", st.ThemesDir(), "error", err)
	}

	gw.renderer = render.NewChrome(render.ChromeConfig{
		RemoteURL: cfg.Render.RemoteURL,
		ExecPath:  cfg.Render.ExecPath,
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		Selector:  cfg.Render.Selector,
		Timeout:   cfg.Render.Timeout,
		Settle:    cfg.Render.Settle,
	})

	deps := statusimage.Deps{
		Bots:      gw,
		Themes:    gw.Themes,
		Renderer:  gw.renderer,
		Scheduler: gw.scheduler,
	}
	// A nil *analytics.Store must not become a non-nil interface.
	if gw.Analytics != nil {
		deps.Counts = gw.Analytics
	}
	gw.Plugin = statusimage.New(statusimage.Options{
		Command:       cfg.Plugin.Command,
		Locale:        cfg.Plugin.Locale,
		AssetURL:      cfg.Render.AssetURL,
		AppVersion:    version,
		Theme:         cfg.Theme.Name,
		CPUInterval:   cfg.Plugin.CPUInterval,
		OSInfoTimeout: cfg.Plugin.OSInfoTimeout,
	}, deps)
	gw.Plugin.Attach(gw.Events)
	gw.AddCommand(gw.Plugin.Command())

	gw.Events.OnMessage(gw.handleMessage)
	gw.Events.OnSent(func(b bot.Bot, at time.Time) {
		gw.record(analytics.Send, b, at)
	})

	if cfg.Channels.IRC.Enabled {
		gw.Register(channels.NewIRC(cfg.Channels.IRC, gw.Events, gw))
		slog.Info("irc channel initialized", "server", cfg.Channels.IRC.Host)
	}
	if cfg.Channels.Whatsapp.Enabled {
		ch, err := channels.NewWhatsapp(ctx, st.WhatsappDir(), cfg.Channels.Whatsapp, gw.Events)
		if err != nil {
			slog.Warn("failed to initialize whatsapp channel", "error", err)
		} else {
			gw.Register(ch)
			slog.Info("whatsapp channel initialized")
		}
	}

	return gw, nil
}

// Register adds a channel under its platform name.
func (gw *Gateway) Register(ch channels.Channel) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.channels[ch.Platform()] = ch
}

// AddCommand makes a command available to every channel.
func (gw *Gateway) AddCommand(cmd bot.Command) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.commands[cmd.Name] = cmd
}

// Commands lists the registered commands by name.
func (gw *Gateway) Commands() []bot.Command {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	out := make([]bot.Command, 0, len(gw.commands))
	for _, c := range gw.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Bots returns the registered channels ordered by platform.
func (gw *Gateway) Bots() []bot.Bot {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	names := make([]string, 0, len(gw.channels))
	for n := range gw.channels {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]bot.Bot, 0, len(names))
	for _, n := range names {
		out = append(out, gw.channels[n])
	}
	return out
}

func (gw *Gateway) channel(name string) (channels.Channel, error) {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	if ch, ok := gw.channels[name]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("channel %q not found", name)
}

func (gw *Gateway) ChannelInfo(name string) (map[string]any, error) {
	ch, err := gw.channel(name)
	if err != nil {
		return nil, err
	}
	return ch.Info(), nil
}

func (gw *Gateway) ChannelEnroll(ctx context.Context, name string) error {
	ch, err := gw.channel(name)
	if err != nil {
		return err
	}
	return ch.Enroll(ctx)
}

func (gw *Gateway) ChannelSend(ctx context.Context, name, target, text string) error {
	ch, err := gw.channel(name)
	if err != nil {
		return err
	}
	return ch.Send(ctx, target, text)
}

// Publish stores a rendered image and returns the public URL it is served
// from.
func (gw *Gateway) Publish(ctx context.Context, image []byte) (string, error) {
	name, err := gw.Storage.SaveImage(image)
	if err != nil {
		return "", err
	}
	return gw.Config.Server.PublicURL + "/api/v1/files/" + name, nil
}

// SetTheme switches the active theme and persists the choice.
func (gw *Gateway) SetTheme(name string) error {
	if err := gw.Plugin.SetTheme(name); err != nil {
		return err
	}
	gw.cfgMu.Lock()
	defer gw.cfgMu.Unlock()
	gw.Config.Theme.Name = name
	if err := config.SaveTheme(gw.Config); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ConfigSnapshot returns a copy of the running configuration that is safe to
// read while the theme changes.
func (gw *Gateway) ConfigSnapshot() config.Config {
	gw.cfgMu.RLock()
	defer gw.cfgMu.RUnlock()
	return *gw.Config
}

func (gw *Gateway) handleMessage(ctx context.Context, sess *bot.Session) {
	gw.record(analytics.Receive, sess.Bot, sess.Timestamp)

	name, _, ok := bot.ParseCommand(sess.Content, gw.Config.Plugin.Prefixes)
	if !ok {
		return
	}
	gw.mu.RLock()
	cmd, found := gw.commands[name]
	gw.mu.RUnlock()
	if !found {
		return
	}

	slog.Info("running command", "command", name, "platform", sess.Bot.Platform(), "author", sess.Author)
	gw.inflight.Add(1)
	go func() {
		defer gw.inflight.Done()
		if err := cmd.Action(ctx, sess); err != nil {
			slog.Error("command failed", "command", name, "platform", sess.Bot.Platform(), "error", err)
		}
	}()
}

func (gw *Gateway) record(typ analytics.Type, b bot.Bot, at time.Time) {
	if gw.Analytics == nil {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	err := gw.Analytics.Record(context.Background(), analytics.Event{
		Type:     typ,
		Platform: b.Platform(),
		SelfID:   b.SelfID(),
		At:       at,
	})
	if err != nil {
		slog.Warn("failed to record message", "type", typ, "platform", b.Platform(), "error", err)
	}
}

// Start launches the status plugin and the maintenance jobs.
func (gw *Gateway) Start(ctx context.Context) error {
	if err := gw.Plugin.Start(ctx); err != nil {
		return err
	}
	if err := gw.scheduler.Add("maintenance", "0 30 3 * * *", gw.maintain); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	gw.scheduler.Start()
	return nil
}

// maintain drops analytics rows past retention and expired images.
func (gw *Gateway) maintain() {
	now := time.Now()
	if gw.Analytics != nil && gw.Config.Analytics.RetentionDays > 0 {
		before := analytics.DateNumber(now.AddDate(0, 0, -gw.Config.Analytics.RetentionDays))
		n, err := gw.Analytics.Prune(context.Background(), before)
		if err != nil {
			slog.Warn("failed to prune analytics", "error", err)
		} else if n > 0 {
			slog.Info("pruned analytics rows", "count", n)
		}
	}
	n, err := gw.Storage.PruneImages(now.Add(-generatedImageTTL))
	if err != nil {
		slog.Warn("failed to prune generated images", "error", err)
	} else if n > 0 {
		slog.Info("pruned generated images", "count", n)
	}
	system.LogMemoryUsage("maintenance")
}

// Run runs every channel until ctx is cancelled. A channel that fails is
// logged and left offline; the others keep running.
func (gw *Gateway) Run(ctx context.Context) error {
	var g errgroup.Group
	for _, b := range gw.Bots() {
		g.Go(func() error {
			if err := b.Run(ctx); err != nil {
				slog.Error("channel stopped", "platform", b.Platform(), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close stops scheduling, waits for running commands and releases the
// browser and the database.
func (gw *Gateway) Close() error {
	<-gw.scheduler.Stop().Done()
	gw.Plugin.Stop()
	gw.inflight.Wait()
	gw.renderer.Close()
	if gw.Analytics != nil {
		return gw.Analytics.Close()
	}
	return nil
}
