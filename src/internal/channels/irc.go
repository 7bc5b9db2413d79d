package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/girc"

	"status-image/src/internal/bot"
	"status-image/src/internal/config"
)

const ircReconnectDelay = 15 * time.Second

type IRC struct {
	cfg    config.IRCConfig
	client *girc.Client
	events *bot.Events
	images ImageHost
	status bot.StatusCell

	mu  sync.Mutex
	ctx context.Context
}

func NewIRC(cfg config.IRCConfig, events *bot.Events, images ImageHost) *IRC {
	gcfg := girc.Config{
		Server: cfg.Host,
		Port:   cfg.Port,
		Nick:   cfg.Nick,
		User:   cfg.User,
		Name:   cfg.Realname,
		SSL:    cfg.TLS,
	}
	if cfg.Password != nil {
		gcfg.ServerPass = *cfg.Password
	}

	i := &IRC{
		cfg:    cfg,
		client: girc.New(gcfg),
		events: events,
		images: images,
		ctx:    context.Background(),
	}

	i.client.Handlers.Add(girc.CONNECTED, func(c *girc.Client, e girc.Event) {
		slog.Info("IRC connected", "server", cfg.Host, "nick", c.GetNick())
		i.status.Store(bot.Online)
		if cfg.NickServ.Enabled {
			c.Cmd.Message("NickServ", fmt.Sprintf("IDENTIFY %s", cfg.NickServ.Password))
		}
		for _, ch := range cfg.Channels {
			c.Cmd.Join(ch)
		}
		i.events.EmitLogin(i, time.Now())
	})

	i.client.Handlers.Add(girc.DISCONNECTED, func(c *girc.Client, e girc.Event) {
		slog.Warn("IRC disconnected", "server", cfg.Host)
		i.status.Store(bot.Disconnect)
	})

	i.client.Handlers.Add(girc.PRIVMSG, func(c *girc.Client, e girc.Event) {
		if e.Source == nil || len(e.Params) == 0 || e.Source.Name == c.GetNick() {
			return
		}
		target := e.Params[0]
		if !allowed(cfg.Allowlist, cfg.Blocklist, target, e.Source.Name) {
			return
		}
		i.events.EmitMessage(i.runContext(), &bot.Session{
			Bot:       i,
			Target:    replyTarget(target, e.Source.Name),
			Author:    e.Source.Name,
			Content:   e.Last(),
			Timestamp: e.Timestamp,
		})
	})

	return i
}

// replyTarget answers in the channel a message came from, or privately to
// the sender of a direct message.
func replyTarget(target, sender string) string {
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		return target
	}
	return sender
}

func (i *IRC) runContext() context.Context {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ctx
}

func (i *IRC) Platform() string { return "irc" }

func (i *IRC) SelfID() string { return i.cfg.Nick }

func (i *IRC) Status() bot.Status { return i.status.Load() }

func (i *IRC) User() bot.User {
	nick := i.cfg.Nick
	if i.client.IsConnected() {
		nick = i.client.GetNick()
	}
	return bot.User{ID: i.cfg.Nick, Name: i.cfg.Realname, Nick: nick}
}

func (i *IRC) Info() map[string]any {
	return map[string]any{
		"connected": i.client.IsConnected(),
		"nick":      i.client.GetNick(),
		"server":    i.cfg.Host,
		"channels":  i.cfg.Channels,
		"status":    i.Status(),
	}
}

// Enroll drops the current connection; Run reconnects right away.
func (i *IRC) Enroll(ctx context.Context) error {
	if i.client.IsConnected() {
		i.client.Quit("reconnecting")
	}
	return nil
}

func (i *IRC) Send(ctx context.Context, target, text string) error {
	if !i.client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}
	i.client.Cmd.Message(target, text)
	i.events.EmitSent(i, time.Now())
	return nil
}

// SendImage publishes the image and posts its link, since IRC has no way to
// carry the file itself.
func (i *IRC) SendImage(ctx context.Context, target string, image []byte, caption string) error {
	if i.images == nil {
		return fmt.Errorf("irc: no image host configured")
	}
	url, err := i.images.Publish(ctx, image)
	if err != nil {
		return fmt.Errorf("irc: publish image: %w", err)
	}
	text := url
	if caption != "" {
		text = caption + " " + url
	}
	return i.Send(ctx, target, text)
}

// Run connects and keeps reconnecting until ctx is cancelled.
func (i *IRC) Run(ctx context.Context) error {
	i.mu.Lock()
	i.ctx = ctx
	i.mu.Unlock()
	stop := context.AfterFunc(ctx, func() {
		i.client.Close()
	})
	defer stop()

	i.status.Store(bot.Connect)
	for {
		err := i.client.Connect()
		if ctx.Err() != nil {
			i.status.Store(bot.Offline)
			return nil
		}
		if err != nil {
			slog.Error("IRC connect error", "server", i.cfg.Host, "error", err)
		}
		i.status.Store(bot.Reconnect)
		select {
		case <-ctx.Done():
			i.status.Store(bot.Offline)
			return nil
		case <-time.After(ircReconnectDelay):
		}
	}
}
