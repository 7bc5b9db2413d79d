package channels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"status-image/src/internal/bot"
	"status-image/src/internal/config"
)

type Whatsapp struct {
	cfg    config.WhatsappConfig
	client *whatsmeow.Client
	events *bot.Events
	status bot.StatusCell
	qrOut  io.Writer

	mu  sync.Mutex
	ctx context.Context
}

// NewWhatsapp opens the device store under dir. The client only connects
// once Run is called, and only if a device has been enrolled before.
func NewWhatsapp(ctx context.Context, dir string, cfg config.WhatsappConfig, events *bot.Events) (*Whatsapp, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create whatsapp dir: %w", err)
	}
	dsn := "file:" + filepath.Join(dir, "whatsapp.db") + "?_foreign_keys=on"

	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}

	w := &Whatsapp{
		cfg:    cfg,
		client: whatsmeow.NewClient(deviceStore, nil),
		events: events,
		qrOut:  os.Stdout,
		ctx:    context.Background(),
	}
	w.client.EnableAutoReconnect = true
	w.client.AddEventHandler(w.handle)
	return w, nil
}

func (w *Whatsapp) handle(evt any) {
	switch v := evt.(type) {
	case *events.Connected:
		slog.Info("whatsapp connected", "jid", w.SelfID())
		w.status.Store(bot.Online)
		w.events.EmitLogin(w, time.Now())
	case *events.Disconnected:
		slog.Warn("whatsapp disconnected")
		w.status.Store(bot.Reconnect)
	case *events.LoggedOut:
		slog.Warn("whatsapp logged out", "reason", v.Reason.String())
		w.status.Store(bot.Offline)
	case *events.Message:
		if v.Info.IsFromMe {
			return
		}
		text := messageText(v.Message)
		if text == "" {
			return
		}
		chat, sender := v.Info.Chat.String(), v.Info.Sender.ToNonAD().String()
		if !allowed(w.cfg.Allowlist, w.cfg.Blocklist, chat, sender) {
			return
		}
		w.events.EmitMessage(w.runContext(), &bot.Session{
			Bot:       w,
			Target:    chat,
			Author:    sender,
			Content:   text,
			Timestamp: v.Info.Timestamp,
		})
	}
}

// messageText extracts the plain text of a chat message.
func messageText(m *waE2E.Message) string {
	if m == nil {
		return ""
	}
	if s := m.GetConversation(); s != "" {
		return s
	}
	return m.GetExtendedTextMessage().GetText()
}

func (w *Whatsapp) runContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

func (w *Whatsapp) Platform() string { return "whatsapp" }

func (w *Whatsapp) SelfID() string {
	if id := w.client.Store.ID; id != nil {
		return id.User
	}
	return ""
}

func (w *Whatsapp) Status() bot.Status { return w.status.Load() }

func (w *Whatsapp) User() bot.User {
	return bot.User{ID: w.SelfID(), Name: w.client.Store.PushName}
}

func (w *Whatsapp) Info() map[string]any {
	return map[string]any{
		"connected": w.client.IsConnected(),
		"logged_in": w.client.Store.ID != nil,
		"push_name": w.client.Store.PushName,
		"status":    w.Status(),
	}
}

// Enroll logs out any existing device and prints a pairing QR code to the
// terminal.
func (w *Whatsapp) Enroll(ctx context.Context) error {
	if w.client.Store.ID != nil {
		if err := w.client.Logout(ctx); err != nil {
			return fmt.Errorf("whatsapp logout: %w", err)
		}
	}
	w.client.Disconnect()

	qrChan, err := w.client.GetQRChannel(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	go func() {
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				slog.Info("whatsapp QR code", "code", evt.Code)
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, w.qrOut)
			case "success":
				slog.Info("whatsapp login successful")
			default:
				slog.Warn("whatsapp pairing ended", "event", evt.Event)
			}
		}
	}()
	w.status.Store(bot.Connect)
	return w.client.Connect()
}

func (w *Whatsapp) Send(ctx context.Context, target, text string) error {
	return w.send(ctx, target, &waE2E.Message{Conversation: proto.String(text)})
}

func (w *Whatsapp) SendImage(ctx context.Context, target string, image []byte, caption string) error {
	up, err := w.client.Upload(ctx, image, whatsmeow.MediaImage)
	if err != nil {
		return fmt.Errorf("whatsapp upload: %w", err)
	}
	return w.send(ctx, target, imageMessage(up, caption))
}

func imageMessage(up whatsmeow.UploadResponse, caption string) *waE2E.Message {
	img := &waE2E.ImageMessage{
		Mimetype:      proto.String("image/png"),
		URL:           proto.String(up.URL),
		DirectPath:    proto.String(up.DirectPath),
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    proto.Uint64(up.FileLength),
	}
	if caption != "" {
		img.Caption = proto.String(caption)
	}
	return &waE2E.Message{ImageMessage: img}
}

func (w *Whatsapp) send(ctx context.Context, target string, msg *waE2E.Message) error {
	jid, err := types.ParseJID(target)
	if err != nil {
		return fmt.Errorf("invalid JID %s: %w", target, err)
	}
	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("whatsapp send: %w", err)
	}
	w.events.EmitSent(w, time.Now())
	return nil
}

// Run connects an enrolled device and stays connected until ctx is done.
func (w *Whatsapp) Run(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	if w.client.Store.ID == nil {
		slog.Info("whatsapp not logged in, use the admin enroll endpoint to pair a device")
		w.status.Store(bot.Offline)
	} else {
		w.status.Store(bot.Connect)
		if err := w.client.Connect(); err != nil {
			w.status.Store(bot.Offline)
			return fmt.Errorf("whatsapp connect: %w", err)
		}
	}
	<-ctx.Done()
	w.client.Disconnect()
	w.status.Store(bot.Offline)
	return nil
}
