package statusimage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"status-image/src/internal/analytics"
	"status-image/src/internal/bot"
	"status-image/src/internal/cron"
	"status-image/src/internal/metrics"
	"status-image/src/internal/osinfo"
	"status-image/src/internal/shell"
	"status-image/src/internal/theme"
)

type fakeBot struct {
	platform, self string
	status         bot.Status

	mu     sync.Mutex
	images [][]byte
	target string
}

func (b *fakeBot) Platform() string   { return b.platform }
func (b *fakeBot) SelfID() string     { return b.self }
func (b *fakeBot) Status() bot.Status { return b.status }
func (b *fakeBot) User() bot.User     { return bot.User{ID: b.self, Name: "Bot " + b.self} }
func (b *fakeBot) Send(ctx context.Context, target, text string) error {
	return nil
}
func (b *fakeBot) SendImage(ctx context.Context, target string, image []byte, caption string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images = append(b.images, image)
	b.target = target
	return nil
}
func (b *fakeBot) Run(ctx context.Context) error { return nil }

type botList []bot.Bot

func (l botList) Bots() []bot.Bot { return l }

type fakeCounts struct {
	rows []analytics.Row
	err  error
}

func (f *fakeCounts) Aggregate(ctx context.Context, from, to int) ([]analytics.Row, error) {
	return f.rows, f.err
}

type fakeRenderer struct {
	html string
	err  error
}

func (r *fakeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	r.html = html
	if r.err != nil {
		return nil, r.err
	}
	return []byte("PNG"), nil
}

func ticks(values ...metrics.Ticks) metrics.TickSource {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (metrics.Ticks, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v, nil
	}
}

func newTestPlugin(t *testing.T, bots botList, renderer *fakeRenderer) *Plugin {
	t.Helper()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local)
	themes := theme.NewSet(theme.Theme{Name: theme.DefaultName, MaskOpacity: 0.15})
	if err := themes.Add(theme.Theme{Name: "night", DarkMode: true, MaskOpacity: 0.4, Backgrounds: []string{"https://example.com/bg.png"}}); err != nil {
		t.Fatal(err)
	}
	p := New(Options{Locale: "en", AssetURL: "http://localhost:8080/assets/", AppVersion: "1.2.3"}, Deps{
		Bots:     bots,
		Themes:   themes,
		Renderer: renderer,
		Counts: &fakeCounts{rows: []analytics.Row{
			{Type: analytics.Send, Platform: "irc", SelfID: "alice", Count: 7},
			{Type: analytics.Receive, Platform: "irc", SelfID: "alice", Count: 11},
		}},
		Ticks:  ticks(metrics.Ticks{Busy: 10, Total: 100}, metrics.Ticks{Busy: 60, Total: 200}),
		Memory: func(ctx context.Context) (float64, error) { return 0.5, nil },
		Resolver: &osinfo.Resolver{
			Platform: "linux",
			Run: func(ctx context.Context, command string) (shell.Result, error) {
				return shell.Result{Stdout: "NAME=\"Ubuntu\"\nVERSION=\"22.04.3 LTS (Jammy Jellyfish)\"\n"}, nil
			},
		},
		Scheduler: cron.NewScheduler(),
		Now:       func() time.Time { return now },
	})
	return p
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	alice := &fakeBot{platform: "irc", self: "alice", status: bot.Online}
	bob := &fakeBot{platform: "whatsapp", self: "bob", status: bot.Reconnect}
	p := newTestPlugin(t, botList{alice, bob}, &fakeRenderer{})

	ctx := context.Background()
	if err := p.cpu.Sample(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.cpu.Sample(ctx); err != nil {
		t.Fatal(err)
	}

	snap := p.Snapshot(ctx)
	if snap.CPU != 0.5 {
		t.Errorf("CPU = %v, want 0.5", snap.CPU)
	}
	if snap.Memory != 0.5 {
		t.Errorf("Memory = %v, want 0.5", snap.Memory)
	}
	if snap.OS != "unknown" {
		t.Errorf("OS before resolve = %q, want unknown", snap.OS)
	}
	if len(snap.Bots) != 2 {
		t.Fatalf("got %d bots, want 2", len(snap.Bots))
	}
	a := snap.Bots[0]
	if a.SID != "irc:alice" || a.Sent != 7 || a.Received != 11 || a.Name != "Bot alice" {
		t.Errorf("alice = %+v", a)
	}
	if b := snap.Bots[1]; b.Sent != 0 || b.StatusLabel != "Reconnecting" {
		t.Errorf("bob = %+v", b)
	}
}

func TestSnapshotDegradesOnSourceErrors(t *testing.T) {
	t.Parallel()

	p := New(Options{}, Deps{
		Counts: &fakeCounts{err: errors.New("db locked")},
		Ticks:  ticks(metrics.Ticks{}),
		Memory: func(ctx context.Context) (float64, error) { return 0, errors.New("no meminfo") },
	})
	snap := p.Snapshot(context.Background())
	if snap.Memory != 0 || snap.CPU != 0 || len(snap.Bots) != 0 {
		t.Errorf("snapshot = %+v, want zero values", snap)
	}
}

func TestBotUptimeStartsAtLogin(t *testing.T) {
	t.Parallel()

	alice := &fakeBot{platform: "irc", self: "alice", status: bot.Online}
	p := newTestPlugin(t, botList{alice}, &fakeRenderer{})
	ev := bot.NewEvents()
	p.Attach(ev)

	now := p.deps.Now()
	ev.EmitLogin(alice, now.Add(-90*time.Minute))

	snap := p.Snapshot(context.Background())
	if got := snap.Bots[0].Uptime; got != 90*60 {
		t.Errorf("uptime = %d, want %d", got, 90*60)
	}
}

func TestStartResolvesOS(t *testing.T) {
	t.Parallel()

	p := newTestPlugin(t, nil, &fakeRenderer{})
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.deps.Scheduler.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.OS() != "Ubuntu 22.04.3 LTS" {
		if time.Now().After(deadline) {
			t.Fatalf("OS = %q, want resolved identity", p.OS())
		}
		time.Sleep(10 * time.Millisecond)
	}

	names := p.deps.Scheduler.Names()
	if len(names) != 2 {
		t.Errorf("scheduled jobs = %v, want cpu and message refresh", names)
	}
}

func TestStartRunsOwnScheduler(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		cur metrics.Ticks
	)
	p := New(Options{CPUInterval: time.Second}, Deps{
		Ticks: func(ctx context.Context) (metrics.Ticks, error) {
			mu.Lock()
			defer mu.Unlock()
			cur.Busy += 30
			cur.Total += 100
			return cur, nil
		},
		Memory: func(ctx context.Context) (float64, error) { return 0.5, nil },
		Resolver: &osinfo.Resolver{
			Platform: "linux",
			Run: func(ctx context.Context, command string) (shell.Result, error) {
				return shell.Result{}, errors.New("not available")
			},
		},
	})
	if !p.ownsScheduler {
		t.Fatal("plugin without a scheduler should create its own")
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for p.cpu.Rate() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("cpu rate still zero, scheduler never sampled")
		}
		time.Sleep(50 * time.Millisecond)
	}
	if got := p.cpu.Rate(); got < 0.29 || got > 0.31 {
		t.Errorf("cpu rate = %v, want 0.3", got)
	}
}

func TestHTMLUsesTheme(t *testing.T) {
	t.Parallel()

	alice := &fakeBot{platform: "irc", self: "alice", status: bot.Online}
	p := newTestPlugin(t, botList{alice}, &fakeRenderer{})

	html, err := p.HTML(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "http://localhost:8080/assets/bg/default.svg") {
		t.Error("default theme should use the bundled background")
	}
	if !strings.Contains(html, "Bot alice") {
		t.Error("bot name missing from page")
	}

	if err := p.SetTheme("night"); err != nil {
		t.Fatal(err)
	}
	html, err = p.HTML(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "https://example.com/bg.png") {
		t.Error("night theme background missing")
	}
	if err := p.SetTheme("missing"); err == nil {
		t.Error("SetTheme accepted an unknown theme")
	}
}

func TestCommandSendsImage(t *testing.T) {
	t.Parallel()

	alice := &fakeBot{platform: "irc", self: "alice", status: bot.Online}
	r := &fakeRenderer{}
	p := newTestPlugin(t, botList{alice}, r)

	cmd := p.Command()
	if cmd.Name != "status-image" {
		t.Errorf("command name = %q", cmd.Name)
	}
	sess := &bot.Session{Bot: alice, Target: "#ops", Content: "/status-image"}
	if err := cmd.Action(context.Background(), sess); err != nil {
		t.Fatal(err)
	}
	if len(alice.images) != 1 || string(alice.images[0]) != "PNG" || alice.target != "#ops" {
		t.Errorf("images = %q to %q", alice.images, alice.target)
	}
	if !strings.Contains(r.html, "<html") {
		t.Error("renderer did not receive the page")
	}
}

func TestImageRenderError(t *testing.T) {
	t.Parallel()

	p := newTestPlugin(t, nil, &fakeRenderer{err: errors.New("chrome gone")})
	if _, err := p.Image(context.Background()); err == nil || !strings.Contains(err.Error(), "chrome gone") {
		t.Errorf("err = %v, want wrapped renderer error", err)
	}
}
